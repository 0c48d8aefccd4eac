package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yiblet/rewind/internal/candidate"
)

// SearchMsg represents messages that the query input handles
type SearchMsg interface {
	isSearchMsg()
}

// Search message implementations
type AppendInputMsg struct {
	Text string
}

func (AppendInputMsg) isSearchMsg() {}

type DeleteCharMsg struct{}

func (DeleteCharMsg) isSearchMsg() {}

type DeleteWordMsg struct{}

func (DeleteWordMsg) isSearchMsg() {}

type ClearInputMsg struct{}

func (ClearInputMsg) isSearchMsg() {}

// SearchModel holds the filter query typed by the user
type SearchModel struct {
	Input string
}

// NewSearchModel creates an empty query
func NewSearchModel() SearchModel {
	return SearchModel{}
}

// Update applies msg and reports whether the query text changed
func (s *SearchModel) Update(msg SearchMsg) bool {
	before := s.Input

	switch m := msg.(type) {
	case AppendInputMsg:
		s.Input += m.Text
	case DeleteCharMsg:
		if s.Input != "" {
			_, size := utf8.DecodeLastRuneInString(s.Input)
			s.Input = s.Input[:len(s.Input)-size]
		}
	case DeleteWordMsg:
		trimmed := strings.TrimRightFunc(s.Input, unicode.IsSpace)
		idx := strings.LastIndexFunc(trimmed, unicode.IsSpace)
		s.Input = trimmed[:idx+1]
	case ClearInputMsg:
		s.Input = ""
	}

	return s.Input != before
}

// Matches reports whether every rune of query appears in text in order,
// ignoring case. Spaces in query are ignored.
func Matches(query, text string) bool {
	rest := strings.ToLower(text)
	for _, r := range strings.ToLower(query) {
		if unicode.IsSpace(r) {
			continue
		}
		idx := strings.IndexRune(rest, r)
		if idx < 0 {
			return false
		}
		rest = rest[idx+utf8.RuneLen(r):]
	}
	return true
}

// FilterItems returns the indexes of items whose label matches query, in
// their original order. Arrival order is recency order, so it is kept.
func FilterItems(items []candidate.Candidate, query string, from int) []int {
	var matched []int
	for i := from; i < len(items); i++ {
		if Matches(query, items[i].Label()) {
			matched = append(matched, i)
		}
	}
	return matched
}
