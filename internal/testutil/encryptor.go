package testutil

import (
	"testing"

	"notes-go/internal/encryption"
	"notes-go/internal/notes"
	"notes-go/internal/storage"
)

// TestPassphrase unlocks storages created by NewTestEncryptedStorage.
const TestPassphrase = "correct horse battery staple"

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() notes.Encryptor {
	return encryption.NewTestEncryptor()
}

// NewTestEncryptedStorage wraps inner with a test encryptor and unlocks it
// with TestPassphrase.
func NewTestEncryptedStorage(t *testing.T, inner notes.Storage) *storage.EncryptedStorage {
	t.Helper()

	enc := encryption.NewTestEncryptor()
	if err := enc.Setup(TestPassphrase); err != nil {
		t.Fatalf("failed to set up encryptor: %v", err)
	}

	s := storage.NewEncryptedStorage(inner, enc)
	if err := s.Unlock(TestPassphrase); err != nil {
		t.Fatalf("failed to unlock storage: %v", err)
	}
	return s
}
