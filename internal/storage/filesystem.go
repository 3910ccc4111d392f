package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"notes-go/internal/notes"
)

// FileSystemStorage is a filesystem-based implementation of notes.Storage.
// Each key is stored as a single file directly under the root directory:
//
//	<root>/
//	  <key>     (one blob per key, replaced atomically on Put)
type FileSystemStorage struct {
	name string
	root string
}

// NewFileSystemStorage creates a new filesystem storage rooted at the given path.
func NewFileSystemStorage(name, root string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileSystemStorage{
		name: name,
		root: root,
	}, nil
}

// Get writes the file stored for key to w.
func (s *FileSystemStorage) Get(key string, w io.Writer) error {
	srcPath, err := s.pathFor(key)
	if err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("key %q: %w", key, notes.ErrNotFound)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// Put replaces the file for key using an atomic write (temp file + rename).
func (s *FileSystemStorage) Put(key string, r io.Reader, size int64) error {
	destPath, err := s.pathFor(key)
	if err != nil {
		return err
	}

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ValidateSetup verifies that the root directory exists and is writable.
func (s *FileSystemStorage) ValidateSetup() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("storage root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root is not a directory: %s", s.root)
	}

	check, err := os.CreateTemp(s.root, ".check-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	check.Close()
	os.Remove(check.Name())

	return nil
}

// pathFor maps a key to its file, rejecting keys that would escape the root.
func (s *FileSystemStorage) pathFor(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// Compile-time check that FileSystemStorage implements notes.Storage interface
var _ notes.Storage = (*FileSystemStorage)(nil)
