package notes

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Storage.Get when no value exists under the key.
var ErrNotFound = errors.New("not found")

// Storage is the key-value medium the snapshot blob is written to.
// Implementations stream through io.Reader/io.Writer; a single key holds a
// single blob and Put replaces any previous value.
type Storage interface {
	// Get writes the value stored under key to w.
	// Returns an error wrapping ErrNotFound if the key has never been written.
	Get(key string, w io.Writer) error

	// Put stores size bytes read from r under key, replacing any prior value.
	Put(key string, r io.Reader, size int64) error

	// ValidateSetup verifies that the medium is reachable and writable.
	ValidateSetup() error
}
