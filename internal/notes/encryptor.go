package notes

import "io"

// Encryptor handles encryption of the stored snapshot and unlocking for
// decryption. Encryption uses the public key only; decryption requires a
// passphrase to unlock the private key, producing a DecryptionContext.
type Encryptor interface {
	// Setup performs one-time key generation. Called by `notes config key init`.
	// Generates a key pair, stores the public key in plaintext, and encrypts
	// the private key with the provided passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext usable for the rest of the process.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory. The unlocked key
// is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
