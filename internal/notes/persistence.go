package notes

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"notes-go/internal/model"
)

// DefaultStorageKey is the key the snapshot blob is stored under.
const DefaultStorageKey = "notes-app-data"

// ErrUnreadSnapshot is reported by Save while the stored snapshot exists but
// could not be read. Writing then would replace data the store never saw.
var ErrUnreadSnapshot = errors.New("stored snapshot could not be read; refusing to overwrite it")

// DefaultCategories returns the preset categories used when nothing has been
// stored yet.
func DefaultCategories() []model.Category {
	return []model.Category{
		{ID: "1", Name: "Personal", Color: "#3B82F6"},
		{ID: "2", Name: "Work", Color: "#10B981"},
		{ID: "3", Name: "Ideas", Color: "#F59E0B"},
		{ID: "4", Name: "Important", Color: "#EF4444"},
	}
}

// DefaultSnapshot is the state of a store that has never been saved.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Notes:      []model.Note{},
		Categories: DefaultCategories(),
	}
}

// Persistence reads and writes the snapshot blob under a fixed key.
// It never mutates store state: Load produces the initial state and Save
// serializes whatever it is given.
type Persistence struct {
	storage  Storage
	codec    Codec
	key      string
	logger   Logger
	notifier Notifier

	mu      sync.Mutex
	readErr error
}

// NewPersistence creates a Persistence adapter. An empty key selects
// DefaultStorageKey. notifier may be nil.
func NewPersistence(storage Storage, codec Codec, key string, logger Logger, notifier Notifier) *Persistence {
	if key == "" {
		key = DefaultStorageKey
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Persistence{
		storage:  storage,
		codec:    codec,
		key:      key,
		logger:   logger,
		notifier: notifier,
	}
}

// Key returns the storage key the snapshot is written under.
func (p *Persistence) Key() string {
	return p.key
}

// Load reads the stored snapshot. A missing blob yields DefaultSnapshot.
// An unreadable or malformed blob also yields DefaultSnapshot and is reported
// as a non-fatal PersistenceError; Load never fails.
//
// When the blob could not be read at all, Save is blocked until a later Load
// succeeds, so the defaults never overwrite the stored data. A malformed blob
// does not block saving.
func (p *Persistence) Load() Snapshot {
	var buf bytes.Buffer
	if err := p.storage.Get(p.key, &buf); err != nil {
		if errors.Is(err, ErrNotFound) {
			p.setReadErr(nil)
			p.logger.Debug("no stored snapshot, using defaults", "key", p.key)
			return DefaultSnapshot()
		}
		err = fmt.Errorf("reading snapshot: %w", err)
		p.setReadErr(err)
		p.report("load", err)
		return DefaultSnapshot()
	}
	p.setReadErr(nil)

	snap, err := p.codec.Decode(buf.Bytes())
	if err != nil {
		p.report("load", fmt.Errorf("decoding snapshot: %w", err))
		return DefaultSnapshot()
	}

	def := DefaultSnapshot()
	if snap.Notes == nil {
		snap.Notes = def.Notes
	}
	if snap.Categories == nil {
		snap.Categories = def.Categories
	}
	snap.Notes = p.repairNotes(snap.Notes)
	snap.Categories = p.repairCategories(snap.Categories)

	p.logger.Debug("snapshot loaded", "key", p.key, "notes", len(snap.Notes), "categories", len(snap.Categories))
	return snap
}

// Writable reports whether Save will write. It is false after a Load that
// could not read the stored blob.
func (p *Persistence) Writable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readErr == nil
}

func (p *Persistence) setReadErr(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

// Save encodes notes and categories and replaces the stored blob.
// Failures are reported through the notifier and also returned.
func (p *Persistence) Save(notes []model.Note, categories []model.Category) error {
	p.mu.Lock()
	readErr := p.readErr
	p.mu.Unlock()
	if readErr != nil {
		return p.report("save", fmt.Errorf("%w: %v", ErrUnreadSnapshot, readErr))
	}

	if notes == nil {
		notes = []model.Note{}
	}
	if categories == nil {
		categories = []model.Category{}
	}

	data, err := p.codec.Encode(Snapshot{Notes: notes, Categories: categories})
	if err != nil {
		return p.report("save", err)
	}

	if err := p.storage.Put(p.key, bytes.NewReader(data), int64(len(data))); err != nil {
		return p.report("save", fmt.Errorf("writing snapshot: %w", err))
	}

	p.logger.Debug("snapshot saved", "key", p.key, "bytes", len(data))
	return nil
}

func (p *Persistence) report(op string, err error) error {
	perr := &PersistenceError{Op: op, Key: p.key, Err: err}
	if op == "load" {
		p.logger.Warn("stored snapshot unusable, falling back to defaults", "key", p.key, "error", err)
	} else {
		p.logger.Error("snapshot not saved", "key", p.key, "error", err)
	}
	if p.notifier != nil {
		p.notifier.Notify(perr)
	}
	return perr
}

// repairNotes restores the store invariants on data read from storage:
// unique ids, non-nil tags and UpdatedAt never before CreatedAt.
func (p *Persistence) repairNotes(in []model.Note) []model.Note {
	seen := make(map[string]bool, len(in))
	out := make([]model.Note, 0, len(in))
	for _, n := range in {
		if seen[n.ID] {
			p.logger.Warn("dropping note with duplicate id", "id", n.ID)
			continue
		}
		seen[n.ID] = true
		if n.Tags == nil {
			n.Tags = []string{}
		}
		if n.UpdatedAt.Before(n.CreatedAt) {
			n.UpdatedAt = n.CreatedAt
		}
		out = append(out, n)
	}
	return out
}

func (p *Persistence) repairCategories(in []model.Category) []model.Category {
	seen := make(map[string]bool, len(in))
	out := make([]model.Category, 0, len(in))
	for _, c := range in {
		if seen[c.ID] {
			p.logger.Warn("dropping category with duplicate id", "id", c.ID)
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
