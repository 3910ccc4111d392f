package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"notes-go/internal/notes"
)

// ErrLocked is returned by EncryptedStorage.Get before Unlock has succeeded.
var ErrLocked = errors.New("encrypted storage is locked")

// EncryptedStorage wraps another notes.Storage and keeps every value
// encrypted at rest. Writes only need the public key; reads need the
// storage to be unlocked with the passphrase first.
type EncryptedStorage struct {
	inner     notes.Storage
	encryptor notes.Encryptor
	decrypter notes.DecryptionContext
}

// NewEncryptedStorage wraps inner. The returned storage can write immediately
// but must be unlocked before it can read.
func NewEncryptedStorage(inner notes.Storage, encryptor notes.Encryptor) *EncryptedStorage {
	return &EncryptedStorage{
		inner:     inner,
		encryptor: encryptor,
	}
}

// Unlock decrypts the private key with passphrase so that Get can succeed.
func (s *EncryptedStorage) Unlock(passphrase string) error {
	dc, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking storage: %w", err)
	}
	s.decrypter = dc
	return nil
}

// Get reads the ciphertext for key from the inner storage and writes the
// plaintext to w.
func (s *EncryptedStorage) Get(key string, w io.Writer) error {
	var ciphertext bytes.Buffer
	if err := s.inner.Get(key, &ciphertext); err != nil {
		return err
	}

	if s.decrypter == nil {
		return ErrLocked
	}

	if err := s.decrypter.Decrypt(&ciphertext, w); err != nil {
		return fmt.Errorf("decrypting %q: %w", key, err)
	}
	return nil
}

// Put encrypts the value read from r and stores the ciphertext under key.
func (s *EncryptedStorage) Put(key string, r io.Reader, size int64) error {
	counted := &countingReader{r: r}

	var ciphertext bytes.Buffer
	if err := s.encryptor.Encrypt(counted, &ciphertext); err != nil {
		return fmt.Errorf("encrypting %q: %w", key, err)
	}
	if counted.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counted.n)
	}

	return s.inner.Put(key, &ciphertext, int64(ciphertext.Len()))
}

// ValidateSetup checks the key files and the inner storage.
func (s *EncryptedStorage) ValidateSetup() error {
	if !s.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys are not configured (run `notes config key init`)")
	}
	return s.inner.ValidateSetup()
}

// Close closes the inner storage if it holds resources.
func (s *EncryptedStorage) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ notes.Storage = (*EncryptedStorage)(nil)
