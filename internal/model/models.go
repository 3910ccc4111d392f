package model

import (
	"slices"
	"time"
)

// Note is a user-authored text record.
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	Category  string    `json:"category" yaml:"category"` // Category.ID, empty = uncategorized
	Tags      []string  `json:"tags" yaml:"tags"`         // insertion order, duplicates allowed
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy of the note so callers never share the tags slice
// with the store.
func (n Note) Clone() Note {
	c := n
	if n.Tags != nil {
		c.Tags = slices.Clone(n.Tags)
	}
	return c
}

// Category is a named, colored label. A note references at most one.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"` // e.g. "#10B981"
}

// NotePatch carries optional note fields. A nil field means "not supplied".
type NotePatch struct {
	Title    *string
	Content  *string
	Category *string
	Tags     *[]string
}

// Empty reports whether no field is supplied.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil && p.Tags == nil
}

// Apply copies the supplied fields onto n. It does not touch ID or timestamps.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.Tags != nil {
		n.Tags = slices.Clone(*p.Tags)
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
}
