package candidate

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// SanitizeLabel removes control characters and collapses whitespace so a
// multi-line command renders on a single terminal line.
func SanitizeLabel(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// TruncateLabel ensures label occupies at most maxWidth terminal cells.
// If truncation is needed, appends "..." to indicate truncation.
func TruncateLabel(label string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(label) <= maxWidth {
		return label
	}
	if maxWidth < 3 {
		return strings.Repeat(".", maxWidth)
	}
	return runewidth.Truncate(label, maxWidth, "...")
}
