package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notes-go/internal/notes"
)

func newTestFileSystemStorage(t *testing.T) (*FileSystemStorage, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "data")
	s, err := NewFileSystemStorage("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemStorage() error = %v", err)
	}
	return s, root
}

func TestFileSystemStorage_PutAndGet(t *testing.T) {
	s, root := newTestFileSystemStorage(t)
	content := `{"notes":[],"categories":[]}`

	if err := s.Put("notes-app-data", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	onDisk, err := os.ReadFile(filepath.Join(root, "notes-app-data"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(onDisk) != content {
		t.Errorf("file content = %q, want %q", onDisk, content)
	}

	var buf bytes.Buffer
	if err := s.Get("notes-app-data", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != content {
		t.Errorf("Get() = %q, want %q", buf.String(), content)
	}
}

func TestFileSystemStorage_PutReplaces(t *testing.T) {
	s, _ := newTestFileSystemStorage(t)

	for _, content := range []string{"a much longer first value", "short"} {
		if err := s.Put("k", strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("Put(%q) error = %v", content, err)
		}
	}

	var buf bytes.Buffer
	if err := s.Get("k", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "short" {
		t.Errorf("Get() = %q, want %q", buf.String(), "short")
	}
}

func TestFileSystemStorage_GetMissing(t *testing.T) {
	s, _ := newTestFileSystemStorage(t)

	err := s.Get("missing", &bytes.Buffer{})
	if !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFileSystemStorage_SizeMismatchLeavesPreviousValue(t *testing.T) {
	s, root := newTestFileSystemStorage(t)

	if err := s.Put("k", strings.NewReader("old"), 3); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("k", strings.NewReader("new value"), 100); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}

	var buf bytes.Buffer
	if err := s.Get("k", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "old" {
		t.Errorf("Get() = %q, want previous value %q", buf.String(), "old")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("root has %d entries, want 1 (temp file not cleaned up)", len(entries))
	}
}

func TestFileSystemStorage_InvalidKeys(t *testing.T) {
	s, _ := newTestFileSystemStorage(t)

	for _, key := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		t.Run(key, func(t *testing.T) {
			if err := s.Put(key, strings.NewReader("x"), 1); err == nil {
				t.Errorf("Put(%q) expected error", key)
			}
			if err := s.Get(key, &bytes.Buffer{}); err == nil {
				t.Errorf("Get(%q) expected error", key)
			}
		})
	}
}

func TestFileSystemStorage_ValidateSetup(t *testing.T) {
	s, root := newTestFileSystemStorage(t)

	if err := s.ValidateSetup(); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if err := s.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error after root removed")
	}
}
