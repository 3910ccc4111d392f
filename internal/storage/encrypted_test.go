package storage

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"notes-go/internal/encryption"
	"notes-go/internal/notes"
)

func newTestEncryptedStorage(t *testing.T) (*EncryptedStorage, *MemoryStorage) {
	t.Helper()
	inner := NewMemoryStorage("inner")
	enc := encryption.NewTestEncryptor()
	if err := enc.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return NewEncryptedStorage(inner, enc), inner
}

func TestEncryptedStorage_RoundTrip(t *testing.T) {
	s, inner := newTestEncryptedStorage(t)
	content := `{"notes":[{"id":"a","title":"Groceries"}]}`

	if err := s.Put("notes-app-data", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	raw, ok := inner.Raw("notes-app-data")
	if !ok {
		t.Fatal("inner storage has no value")
	}
	if string(raw) == content {
		t.Error("inner storage holds the unencrypted value")
	}

	if err := s.Unlock("secret"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	var buf bytes.Buffer
	if err := s.Get("notes-app-data", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != content {
		t.Errorf("Get() = %q, want %q", buf.String(), content)
	}
}

func TestEncryptedStorage_GetBeforeUnlock(t *testing.T) {
	s, _ := newTestEncryptedStorage(t)

	if err := s.Put("k", strings.NewReader("v"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := s.Get("k", &bytes.Buffer{})
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Get() error = %v, want ErrLocked", err)
	}
}

func TestEncryptedStorage_GetMissingWhileLocked(t *testing.T) {
	s, _ := newTestEncryptedStorage(t)

	err := s.Get("missing", &bytes.Buffer{})
	if !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestEncryptedStorage_UnlockWrongPassphrase(t *testing.T) {
	s, _ := newTestEncryptedStorage(t)

	if err := s.Unlock("wrong"); err == nil {
		t.Error("Unlock() expected error for wrong passphrase")
	}
}

func TestEncryptedStorage_SizeMismatch(t *testing.T) {
	s, inner := newTestEncryptedStorage(t)

	if err := s.Put("k", strings.NewReader("abc"), 7); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}
	if _, ok := inner.Raw("k"); ok {
		t.Error("ciphertext stored despite size mismatch")
	}
}
