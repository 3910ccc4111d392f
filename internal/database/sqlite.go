package database

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"notes-go/internal/database/migrations"
	"notes-go/internal/notes"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements notes.Storage on a single SQLite table:
//
//	blobs(key TEXT PRIMARY KEY, value BLOB, updated_at TEXT)
type SQLiteStorage struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteStorage opens the database at path, applies pending migrations
// and verifies the schema. path can be a file path or ":memory:".
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := NewSQLiteStorageFromDB(db)
	s.path = path
	if err := s.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}
	return s, nil
}

// NewSQLiteStorageFromDB wraps an existing, already migrated connection.
func NewSQLiteStorageFromDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{
		db:  db,
		now: time.Now,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer matches the single-user model, and keeps ":memory:"
	// from handing out a fresh empty database per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest embedded version.
func (s *SQLiteStorage) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Get writes the blob stored under key to w.
func (s *SQLiteStorage) Get(key string, w io.Writer) error {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("key %q: %w", key, notes.ErrNotFound)
		}
		return fmt.Errorf("reading blob: %w", err)
	}

	if _, err := io.Copy(w, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	return nil
}

// Put inserts or replaces the blob stored under key.
func (s *SQLiteStorage) Put(key string, r io.Reader, size int64) error {
	value, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	if int64(len(value)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(value))
	}

	_, err = s.db.Exec(`
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	return nil
}

// ValidateSetup pings the database and checks its schema version.
func (s *SQLiteStorage) ValidateSetup() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return s.CheckMigrations()
}

// Close closes the underlying connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ notes.Storage = (*SQLiteStorage)(nil)
