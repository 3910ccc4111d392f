package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"notes-go/internal/notes"
)

// MemoryStorage is an in-memory implementation of notes.Storage.
// Values live only as long as the process, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStorage struct {
	name   string
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage with the given name.
func NewMemoryStorage(name string) *MemoryStorage {
	return &MemoryStorage{
		name:   name,
		values: make(map[string][]byte),
	}
}

// Get writes the value stored under key to w.
func (m *MemoryStorage) Get(key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.values[key]
	if !ok {
		return fmt.Errorf("key %q: %w", key, notes.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write value: %w", err)
	}
	return nil
}

// Put stores the value read from r under key.
func (m *MemoryStorage) Put(key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = data
	return nil
}

// Raw returns a copy of the stored bytes for key. Intended for tests that
// need to inspect or corrupt the stored blob.
func (m *MemoryStorage) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.values[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// SetRaw replaces the stored bytes for key without any validation.
func (m *MemoryStorage) SetRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = bytes.Clone(data)
}

// ValidateSetup always succeeds for in-memory storage.
func (m *MemoryStorage) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryStorage implements notes.Storage interface
var _ notes.Storage = (*MemoryStorage)(nil)
