package notes

import (
	"slices"
	"sync"

	"notes-go/internal/model"
)

// DefaultTitle is given to notes created without a title.
const DefaultTitle = "New note"

// DefaultCategoryColor is shown for notes with no category or a category that
// no longer exists.
const DefaultCategoryColor = "#3B82F6"

// NoteStore is the single source of truth for notes, categories and the
// active filter. Every mutation of notes or categories is persisted before
// the call returns; filter changes are never persisted.
//
// Update and delete on an unknown id are no-ops reported through the boolean
// result, never errors. A failed write does not fail the mutation: it is
// reported through the Persistence notifier and the in-memory state stays
// authoritative.
type NoteStore struct {
	persistence  *Persistence
	logger       Logger
	clock        Clock
	idgen        IDGenerator
	defaultTitle string

	mu         sync.RWMutex
	notes      []model.Note
	categories []model.Category
	filter     Filter

	listenersMu  sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
}

// Option configures a NoteStore.
type Option func(*NoteStore)

// WithDefaultTitle overrides the placeholder title for untitled notes.
func WithDefaultTitle(title string) Option {
	return func(s *NoteStore) {
		if title != "" {
			s.defaultTitle = title
		}
	}
}

// NewNoteStore creates a store whose initial state is read from persistence.
// A nil persistence keeps the store purely in memory, starting from
// DefaultSnapshot.
func NewNoteStore(persistence *Persistence, logger Logger, clock Clock, idgen IDGenerator, opts ...Option) *NoteStore {
	if logger == nil {
		logger = NewNopLogger()
	}
	s := &NoteStore{
		persistence:  persistence,
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
		defaultTitle: DefaultTitle,
		listeners:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap := DefaultSnapshot()
	if persistence != nil {
		snap = persistence.Load()
	}
	s.notes = snap.Notes
	s.categories = snap.Categories
	return s
}

// AddNote creates a note from the supplied fields and appends it.
// Unsupplied or empty titles get the placeholder title; other fields default
// to empty values. It never fails.
func (s *NoteStore) AddNote(patch model.NotePatch) model.Note {
	now := s.clock.Now()
	n := model.Note{
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	patch.Apply(&n)
	if n.Title == "" {
		n.Title = s.defaultTitle
	}

	s.mu.Lock()
	n.ID = s.uniqueID(func(id string) bool { return s.noteIndex(id) >= 0 })
	s.notes = append(s.notes, n)
	s.persist()
	s.mu.Unlock()

	s.logger.Info("note added", "id", n.ID)
	s.emit(Event{Type: EventCreate, Subject: SubjectNote, ID: n.ID, Timestamp: now})
	return n.Clone()
}

// UpdateNote replaces the supplied fields of the note with the given id and
// refreshes UpdatedAt. It returns false, changing nothing, if no note matches.
func (s *NoteStore) UpdateNote(id string, patch model.NotePatch) (model.Note, bool) {
	s.mu.Lock()
	i := s.noteIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("update of unknown note ignored", "id", id)
		return model.Note{}, false
	}

	n := s.notes[i].Clone()
	patch.Apply(&n)
	n.UpdatedAt = s.clock.Now()
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}
	s.notes[i] = n
	s.persist()
	s.mu.Unlock()

	s.logger.Info("note updated", "id", id)
	s.emit(Event{Type: EventModify, Subject: SubjectNote, ID: id, Timestamp: n.UpdatedAt})
	return n.Clone(), true
}

// DeleteNote permanently removes the note with the given id.
// It returns false if no note matches.
func (s *NoteStore) DeleteNote(id string) bool {
	s.mu.Lock()
	i := s.noteIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("delete of unknown note ignored", "id", id)
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	s.persist()
	s.mu.Unlock()

	s.logger.Info("note deleted", "id", id)
	s.emit(Event{Type: EventDelete, Subject: SubjectNote, ID: id, Timestamp: s.clock.Now()})
	return true
}

// GetNote returns a copy of the note with the given id.
func (s *NoteStore) GetNote(id string) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.noteIndex(id)
	if i < 0 {
		return model.Note{}, false
	}
	return s.notes[i].Clone(), true
}

// AddCategory creates a category and appends it.
func (s *NoteStore) AddCategory(name, color string) model.Category {
	s.mu.Lock()
	c := model.Category{
		ID:    s.uniqueID(func(id string) bool { return s.categoryIndex(id) >= 0 }),
		Name:  name,
		Color: color,
	}
	s.categories = append(s.categories, c)
	s.persist()
	s.mu.Unlock()

	s.logger.Info("category added", "id", c.ID, "name", name)
	s.emit(Event{Type: EventCreate, Subject: SubjectCategory, ID: c.ID, Timestamp: s.clock.Now()})
	return c
}

// SetSearchTerm replaces the search filter. It is not persisted.
func (s *NoteStore) SetSearchTerm(term string) {
	s.mu.Lock()
	s.filter.SearchTerm = term
	s.mu.Unlock()
	s.emit(Event{Type: EventFilter, Subject: SubjectFilter, Timestamp: s.clock.Now()})
}

// SetSelectedCategory replaces the category filter. An empty id selects all
// categories. It is not persisted.
func (s *NoteStore) SetSelectedCategory(id string) {
	s.mu.Lock()
	s.filter.SelectedCategory = id
	s.mu.Unlock()
	s.emit(Event{Type: EventFilter, Subject: SubjectFilter, Timestamp: s.clock.Now()})
}

// FilteredNotes returns the notes matching the current filter, in insertion
// order. It is recomputed on every call.
func (s *NoteStore) FilteredNotes() []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterNotes(s.notes, s.filter)
}

// Notes returns copies of all notes in insertion order.
func (s *NoteStore) Notes() []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterNotes(s.notes, Filter{})
}

// Categories returns a copy of all categories in insertion order.
func (s *NoteStore) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Filter returns the current filter state.
func (s *NoteStore) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SearchTerm returns the current search filter.
func (s *NoteStore) SearchTerm() string { return s.Filter().SearchTerm }

// SelectedCategory returns the selected category id, empty for all.
func (s *NoteStore) SelectedCategory() string { return s.Filter().SelectedCategory }

// Category looks up a category by id. Dangling references from notes simply
// report false.
func (s *NoteStore) Category(id string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return model.Category{}, false
	}
	return s.categories[i], true
}

// CategoryColor returns the color of the category, or DefaultCategoryColor
// for an empty or unknown id.
func (s *NoteStore) CategoryColor(id string) string {
	if c, ok := s.Category(id); ok && c.Color != "" {
		return c.Color
	}
	return DefaultCategoryColor
}

// CategoryCounts returns the number of notes per category id. Uncategorized
// notes are not counted.
func (s *NoteStore) CategoryCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, n := range s.notes {
		if n.Category != "" {
			counts[n.Category]++
		}
	}
	return counts
}

// Subscribe registers fn to be called after every committed change.
// Listeners run synchronously on the caller's goroutine, after the store lock
// is released, so they may read from the store. The returned function removes
// the listener.
func (s *NoteStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *NoteStore) emit(e Event) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Reload replaces notes and categories with the stored snapshot, discarding
// unsaved in-memory changes. The filter is kept. It reports whether the
// snapshot was readable; saving stays blocked while it is not.
func (s *NoteStore) Reload() bool {
	if s.persistence == nil {
		return true
	}
	s.mu.Lock()
	snap := s.persistence.Load()
	s.notes = snap.Notes
	s.categories = snap.Categories
	s.mu.Unlock()
	return s.persistence.Writable()
}

// persist writes the current collections. Callers hold s.mu.
func (s *NoteStore) persist() {
	if s.persistence == nil {
		return
	}
	// Errors are reported by Persistence; the mutation stands regardless.
	_ = s.persistence.Save(s.notes, s.categories)
}

// uniqueID draws ids until one is unused. Callers hold s.mu.
func (s *NoteStore) uniqueID(taken func(string) bool) string {
	for {
		id := s.idgen.New()
		if !taken(id) {
			return id
		}
		s.logger.Warn("generated id already in use, retrying", "id", id)
	}
}

func (s *NoteStore) noteIndex(id string) int {
	return slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
}

func (s *NoteStore) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c model.Category) bool { return c.ID == id })
}
