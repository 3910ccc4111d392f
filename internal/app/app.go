package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"notes-go/internal/config"
	"notes-go/internal/encryption"
	"notes-go/internal/model"
	"notes-go/internal/notes"
	"notes-go/internal/storage"
)

// UncategorizedName is displayed for notes without a (known) category.
const UncategorizedName = "Uncategorized"

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Options carries the interactive collaborators of a NotesApp.
type Options struct {
	// Passphrase is called once when encrypted storage needs unlocking.
	Passphrase func() (string, error)
	// Stderr receives warnings and errors. Defaults to os.Stderr.
	Stderr io.Writer
}

// CategorySummary is a category together with the number of notes in it.
type CategorySummary struct {
	model.Category
	Count int
}

// NotesApp is the application layer between the CLI and the NoteStore.
// It constructs all dependencies from config, exposes operations that accept
// raw CLI arguments, and releases storage and log handles on Close.
type NotesApp struct {
	cfg     *config.Config
	storage notes.Storage
	store   *notes.NoteStore
	op      *Operation
	logger  notes.Logger
	logFile *os.File
}

// NewNotesApp creates a fully wired NotesApp from the given config.
// operation identifies the CLI command being run (e.g. "add", "list").
// The caller must call Close when done.
func NewNotesApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*NotesApp, error) {
	st, err := storage.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	return newNotesApp(cfg, operation, opts, st)
}

// newNotesApp wires a NotesApp over st, which it owns from here on: st is
// closed on every error path.
func newNotesApp(cfg *config.Config, operation string, opts Options, st notes.Storage) (*NotesApp, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, opts.Stderr)
	if err != nil {
		closeStorage(st)
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	// An unreachable medium fails the command before anything is loaded.
	if err := st.ValidateSetup(); err != nil {
		logger.Error("storage not usable", "storage", cfg.Storage.Type, "error", err)
		closeStorage(st)
		logFile.Close()
		return nil, fmt.Errorf("storage not usable: %w", err)
	}

	if cfg.Encryption.Enabled {
		st, err = unlockStorage(st, cfg.Encryption, opts.Passphrase)
		if err != nil {
			closeStorage(st)
			logFile.Close()
			return nil, err
		}
	}

	codec, err := notes.NewCodec(cfg.Storage.Format)
	if err != nil {
		closeStorage(st)
		logFile.Close()
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	op := NewOperation(operation)
	persistence := notes.NewPersistence(st, codec, cfg.Storage.Key, logger, op)
	store := notes.NewNoteStore(persistence, logger, notes.RealClock{}, notes.UUIDGenerator{},
		notes.WithDefaultTitle(cfg.DefaultTitle))

	logger.Debug("notes app ready", "storage", cfg.Storage.Type, "format", codec.Name(), "encrypted", cfg.Encryption.Enabled)

	return &NotesApp{
		cfg:     cfg,
		storage: st,
		store:   store,
		op:      op,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// unlockStorage wraps st in an EncryptedStorage and unlocks it. On error the
// returned storage is st itself so the caller can close it.
func unlockStorage(st notes.Storage, cfg config.EncryptionConfig, passphrase func() (string, error)) (notes.Storage, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return st, fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return st, fmt.Errorf("encryption is enabled but no keys exist (run `notes config key init`)")
	}
	if passphrase == nil {
		return st, fmt.Errorf("encrypted storage requires a passphrase")
	}

	pass, err := passphrase()
	if err != nil {
		return st, fmt.Errorf("reading passphrase: %w", err)
	}

	es := storage.NewEncryptedStorage(st, enc)
	if err := es.Unlock(pass); err != nil {
		return st, err
	}
	return es, nil
}

func closeStorage(st notes.Storage) error {
	if c, ok := st.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Store returns the underlying NoteStore.
func (a *NotesApp) Store() *notes.NoteStore {
	return a.store
}

// Operation returns the operation tracking this invocation.
func (a *NotesApp) Operation() *Operation {
	return a.op
}

// AddNote creates a note. A non-empty category reference must name an
// existing category by id or name.
func (a *NotesApp) AddNote(patch model.NotePatch) (model.Note, error) {
	if err := a.resolvePatchCategory(&patch); err != nil {
		return model.Note{}, err
	}
	return a.store.AddNote(patch), nil
}

// UpdateNote applies the supplied fields to the note with the given id.
func (a *NotesApp) UpdateNote(id string, patch model.NotePatch) (model.Note, error) {
	if patch.Empty() {
		return model.Note{}, fmt.Errorf("nothing to update")
	}
	if err := a.resolvePatchCategory(&patch); err != nil {
		return model.Note{}, err
	}
	n, ok := a.store.UpdateNote(id, patch)
	if !ok {
		return model.Note{}, fmt.Errorf("note %q not found", id)
	}
	return n, nil
}

// DeleteNote permanently removes the note with the given id.
func (a *NotesApp) DeleteNote(id string) error {
	if !a.store.DeleteNote(id) {
		return fmt.Errorf("note %q not found", id)
	}
	return nil
}

// GetNote returns the note with the given id.
func (a *NotesApp) GetNote(id string) (model.Note, error) {
	n, ok := a.store.GetNote(id)
	if !ok {
		return model.Note{}, fmt.Errorf("note %q not found", id)
	}
	return n, nil
}

// ListNotes sets the session filter and returns the matching notes.
// An empty categoryRef lists all categories.
func (a *NotesApp) ListNotes(search, categoryRef string) ([]model.Note, error) {
	categoryID := ""
	if categoryRef != "" {
		c, err := a.ResolveCategory(categoryRef)
		if err != nil {
			return nil, err
		}
		categoryID = c.ID
	}

	a.store.SetSearchTerm(search)
	a.store.SetSelectedCategory(categoryID)
	return a.store.FilteredNotes(), nil
}

// AddCategory creates a category. color must be a #RRGGBB hex value and the
// name must not already be taken.
func (a *NotesApp) AddCategory(name, color string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, fmt.Errorf("category name must not be empty")
	}
	if !colorPattern.MatchString(color) {
		return model.Category{}, fmt.Errorf("invalid color %q: expected #RRGGBB", color)
	}
	if _, err := a.ResolveCategory(name); err == nil {
		return model.Category{}, fmt.Errorf("category %q already exists", name)
	}
	return a.store.AddCategory(name, strings.ToUpper(color)), nil
}

// Categories returns every category with its note count, in insertion order.
func (a *NotesApp) Categories() []CategorySummary {
	counts := a.store.CategoryCounts()
	cats := a.store.Categories()
	out := make([]CategorySummary, len(cats))
	for i, c := range cats {
		out[i] = CategorySummary{Category: c, Count: counts[c.ID]}
	}
	return out
}

// ResolveCategory finds a category by exact id, then by case-insensitive name.
func (a *NotesApp) ResolveCategory(ref string) (model.Category, error) {
	if c, ok := a.store.Category(ref); ok {
		return c, nil
	}
	for _, c := range a.store.Categories() {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("unknown category %q", ref)
}

// CategoryName returns the display name for a category id.
func (a *NotesApp) CategoryName(id string) string {
	if c, ok := a.store.Category(id); ok {
		return c.Name
	}
	return UncategorizedName
}

// CategoryColor returns the display color for a category id.
func (a *NotesApp) CategoryColor(id string) string {
	return a.store.CategoryColor(id)
}

func (a *NotesApp) resolvePatchCategory(patch *model.NotePatch) error {
	if patch.Category == nil || *patch.Category == "" {
		return nil
	}
	c, err := a.ResolveCategory(*patch.Category)
	if err != nil {
		return err
	}
	patch.Category = &c.ID
	return nil
}

// Close releases storage and log handles. It returns the warnings collected
// during the operation, so a lost write is never silent.
func (a *NotesApp) Close() error {
	var firstErr error

	if err := closeStorage(a.storage); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}

	if warn := a.op.Err(); warn != nil {
		a.logger.Warn("operation finished with warnings", "status", a.op.Status, "count", len(a.op.Warnings()))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", warningSummary(a.op.Warnings()), warn)
		}
	} else {
		a.logger.Debug("operation finished", "status", a.op.Status)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// warningSummary describes collected warnings by what actually failed:
// a write, or only the initial read.
func warningSummary(warnings []error) string {
	loadOnly := true
	for _, w := range warnings {
		var perr *notes.PersistenceError
		if !errors.As(w, &perr) || perr.Op != "load" {
			loadOnly = false
			break
		}
	}
	if loadOnly {
		return "stored notes could not be loaded"
	}
	return "some changes were not saved"
}

// EnableEncryption generates age keys protected by passphrase, re-encrypts an
// existing plaintext snapshot and turns encryption on in the config file at
// configPath.
func EnableEncryption(ctx context.Context, cfg *config.Config, configPath, passphrase string) error {
	if cfg.Encryption.Enabled {
		return fmt.Errorf("encryption is already enabled")
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	st, err := storage.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	defer closeStorage(st)

	key := cfg.Storage.Key
	if key == "" {
		key = notes.DefaultStorageKey
	}

	var plaintext bytes.Buffer
	hasData := true
	if err := st.Get(key, &plaintext); err != nil {
		if !errors.Is(err, notes.ErrNotFound) {
			return fmt.Errorf("reading existing notes: %w", err)
		}
		hasData = false
	}

	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}

	if hasData {
		es := storage.NewEncryptedStorage(st, enc)
		if err := es.Put(key, &plaintext, int64(plaintext.Len())); err != nil {
			return fmt.Errorf("encrypting existing notes: %w", err)
		}
	}

	cfg.Encryption.Enabled = true
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	return nil
}
