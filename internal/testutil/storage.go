package testutil

import (
	"errors"
	"io"
	"sync"

	"notes-go/internal/notes"
	"notes-go/internal/storage"
)

// ErrInjected is returned by FailingStorage for every failing call.
var ErrInjected = errors.New("injected storage failure")

// NewTestStorage creates a new in-memory storage for testing.
func NewTestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage("test")
}

// FailingStorage wraps a storage and fails reads, writes or setup checks on demand,
// e.g. to simulate a full quota. It counts every Put attempt.
type FailingStorage struct {
	Inner notes.Storage

	mu           sync.Mutex
	failGets     bool
	failPuts     bool
	failValidate bool
	putCalls     int
	getCalls     int
}

// NewFailingStorage wraps inner. Calls pass through until failures are enabled.
func NewFailingStorage(inner notes.Storage) *FailingStorage {
	return &FailingStorage{Inner: inner}
}

// FailPuts toggles failure of subsequent Put calls.
func (s *FailingStorage) FailPuts(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = fail
}

// FailGets toggles failure of subsequent Get calls.
func (s *FailingStorage) FailGets(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGets = fail
}

// FailValidate toggles failure of subsequent ValidateSetup calls.
func (s *FailingStorage) FailValidate(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failValidate = fail
}

// PutCalls returns the number of Put attempts, failed ones included.
func (s *FailingStorage) PutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCalls
}

// GetCalls returns the number of Get attempts, failed ones included.
func (s *FailingStorage) GetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *FailingStorage) Get(key string, w io.Writer) error {
	s.mu.Lock()
	s.getCalls++
	fail := s.failGets
	s.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return s.Inner.Get(key, w)
}

func (s *FailingStorage) Put(key string, r io.Reader, size int64) error {
	s.mu.Lock()
	s.putCalls++
	fail := s.failPuts
	s.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return s.Inner.Put(key, r, size)
}

func (s *FailingStorage) ValidateSetup() error {
	s.mu.Lock()
	fail := s.failValidate
	s.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return s.Inner.ValidateSetup()
}

var _ notes.Storage = (*FailingStorage)(nil)
