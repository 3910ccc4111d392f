package notes

import (
	"strings"

	"notes-go/internal/model"
)

// Filter is the session-only state narrowing the visible notes.
type Filter struct {
	SearchTerm       string // case-insensitive substring; empty matches everything
	SelectedCategory string // category id; empty means all categories
}

// IsZero reports whether the filter lets every note through.
func (f Filter) IsZero() bool {
	return f.SearchTerm == "" && f.SelectedCategory == ""
}

// Matches reports whether n passes both the search and the category filter.
func (f Filter) Matches(n model.Note) bool {
	return f.matchesSearch(n, strings.ToLower(f.SearchTerm)) && f.matchesCategory(n)
}

func (f Filter) matchesSearch(n model.Note, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), term) || strings.Contains(strings.ToLower(n.Content), term) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func (f Filter) matchesCategory(n model.Note) bool {
	return f.SelectedCategory == "" || n.Category == f.SelectedCategory
}

// FilterNotes returns copies of the notes matching f, in their original order.
// It has no side effects; the result is never nil.
func FilterNotes(notes []model.Note, f Filter) []model.Note {
	term := strings.ToLower(f.SearchTerm)
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if f.matchesSearch(n, term) && f.matchesCategory(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}
