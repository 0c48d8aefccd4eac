package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// WrapText wraps text to fit within a given display width, breaking on word
// boundaries when possible. It handles newlines in the input and returns a
// slice of lines that fit within maxWidth. Height truncation is handled by
// the caller during rendering, not here.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = expandTabs(line)
		if line == "" {
			result = append(result, "")
			continue
		}

		// If line fits, keep it as is
		if runewidth.StringWidth(line) <= maxWidth {
			result = append(result, line)
			continue
		}

		result = append(result, wrapLine(line, maxWidth)...)
	}

	return result
}

// wrapLine wraps a single line that is too long, breaking on word boundaries when possible
func wrapLine(line string, maxWidth int) []string {
	var result []string
	var current strings.Builder
	currentWidth := 0

	for _, word := range splitWords(line) {
		wordWidth := runewidth.StringWidth(word)

		// If word itself is wider than maxWidth, break it forcefully
		if wordWidth > maxWidth {
			if currentWidth > 0 {
				result = append(result, current.String())
				current.Reset()
				currentWidth = 0
			}
			result = append(result, breakWord(word, maxWidth)...)
			continue
		}

		spaceNeeded := wordWidth
		if currentWidth > 0 {
			spaceNeeded++ // for the space before the word
		}

		if currentWidth+spaceNeeded > maxWidth {
			result = append(result, current.String())
			current.Reset()
			current.WriteString(word)
			currentWidth = wordWidth
			continue
		}

		if currentWidth > 0 {
			current.WriteString(" ")
			currentWidth++
		}
		current.WriteString(word)
		currentWidth += wordWidth
	}

	if currentWidth > 0 {
		result = append(result, current.String())
	}

	return result
}

// breakWord splits word into chunks no wider than maxWidth cells
func breakWord(word string, maxWidth int) []string {
	var chunks []string
	var chunk strings.Builder
	width := 0

	for _, r := range word {
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth && width > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			width = 0
		}
		chunk.WriteRune(r)
		width += w
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}

// splitWords splits text on runs of whitespace
func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

func expandTabs(line string) string {
	return strings.ReplaceAll(line, "\t", "    ")
}
