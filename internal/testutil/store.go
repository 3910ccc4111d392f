package testutil

import (
	"notes-go/internal/notes"
)

// StoreHarness bundles a NoteStore with the deterministic collaborators it
// was built from, so tests can drive the clock and inspect storage.
type StoreHarness struct {
	Store       *notes.NoteStore
	Persistence *notes.Persistence
	Storage     *FailingStorage
	Notifier    *RecordingNotifier
	Clock       *StubClock
	IDs         *StubIDGenerator
}

// NewTestStore creates a NoteStore backed by in-memory storage wrapped in a
// FailingStorage, using FixedClock, sequential ids and the JSON codec.
func NewTestStore(opts ...notes.Option) *StoreHarness {
	return NewTestStoreWithStorage(NewTestStorage(), opts...)
}

// NewTestStoreWithStorage is NewTestStore over an existing storage, e.g. one
// pre-seeded with a snapshot.
func NewTestStoreWithStorage(inner notes.Storage, opts ...notes.Option) *StoreHarness {
	h := &StoreHarness{
		Storage:  NewFailingStorage(inner),
		Notifier: NewRecordingNotifier(),
		Clock:    FixedClock(),
		IDs:      NewStubIDGenerator(),
	}
	h.Persistence = notes.NewPersistence(h.Storage, notes.JSONCodec{}, "", notes.NewNopLogger(), h.Notifier)
	h.Store = notes.NewNoteStore(h.Persistence, notes.NewNopLogger(), h.Clock, h.IDs, opts...)
	return h
}

// Reload builds a fresh store over the same storage, as a restarted session would.
func (h *StoreHarness) Reload(opts ...notes.Option) *notes.NoteStore {
	return notes.NewNoteStore(h.Persistence, notes.NewNopLogger(), h.Clock, h.IDs, opts...)
}
