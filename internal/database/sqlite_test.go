package database

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notes-go/internal/notes"
)

// newTestStorage creates a new in-memory storage with migrations applied.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestSQLiteStorage_Get(t *testing.T) {
	t.Run("returns ErrNotFound for missing key", func(t *testing.T) {
		s := newTestStorage(t)

		var buf bytes.Buffer
		err := s.Get("missing", &buf)
		if !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("returns stored value", func(t *testing.T) {
		s := newTestStorage(t)

		value := `{"notes":[],"categories":[]}`
		if err := s.Put("notes-app-data", strings.NewReader(value), int64(len(value))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := s.Get("notes-app-data", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := buf.String(); got != value {
			t.Errorf("Get() = %q, want %q", got, value)
		}
	})
}

func TestSQLiteStorage_Put(t *testing.T) {
	t.Run("replaces previous value", func(t *testing.T) {
		s := newTestStorage(t)

		for _, v := range []string{"first", "second value"} {
			if err := s.Put("k", strings.NewReader(v), int64(len(v))); err != nil {
				t.Fatalf("Put(%q) error = %v", v, err)
			}
		}

		var buf bytes.Buffer
		if err := s.Get("k", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := buf.String(); got != "second value" {
			t.Errorf("Get() = %q, want %q", got, "second value")
		}

		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM blobs").Scan(&count); err != nil {
			t.Fatalf("counting rows: %v", err)
		}
		if count != 1 {
			t.Errorf("row count = %d, want 1", count)
		}
	})

	t.Run("rejects size mismatch", func(t *testing.T) {
		s := newTestStorage(t)

		if err := s.Put("k", strings.NewReader("abc"), 10); err == nil {
			t.Error("Put() expected error for size mismatch")
		}

		var buf bytes.Buffer
		if err := s.Get("k", &buf); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("Get() after failed Put error = %v, want ErrNotFound", err)
		}
	})

	t.Run("records update time", func(t *testing.T) {
		s := newTestStorage(t)
		fixed := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		s.now = func() time.Time { return fixed }

		if err := s.Put("k", strings.NewReader("v"), 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var raw string
		if err := s.db.QueryRow(`SELECT updated_at FROM blobs WHERE key = ?`, "k").Scan(&raw); err != nil {
			t.Fatalf("reading updated_at: %v", err)
		}
		if want := fixed.Format(time.RFC3339Nano); raw != want {
			t.Errorf("updated_at = %q, want %q", raw, want)
		}
	})
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	if err := s.Put("k", strings.NewReader("durable"), 7); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	var buf bytes.Buffer
	if err := reopened.Get("k", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := buf.String(); got != "durable" {
		t.Errorf("Get() = %q, want %q", got, "durable")
	}
}

func TestSQLiteStorage_ValidateSetup(t *testing.T) {
	s := newTestStorage(t)
	if err := s.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
