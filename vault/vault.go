// Package vault provides symmetric field-level encryption for secrets that
// must not reach durable storage in plaintext. Envelopes are Fernet
// tokens: authenticated, versioned, and safe to store as text. Decryption
// fails closed; a tampered or foreign envelope never yields partial
// plaintext.
package vault

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

var (
	// ErrInvalidKey indicates a missing or malformed encryption key at
	// construction time.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrDecryptionFailed indicates a malformed, tampered, or
	// foreign-key envelope.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Envelope is the opaque encrypted representation of a protected value,
// including the metadata needed to decrypt it later. Callers treat it as
// an opaque byte string.
type Envelope []byte

// Vault encrypts and decrypts byte payloads under a single process-wide
// key. The key is read once at construction and held only in memory;
// Vault has no other state and is safe for concurrent use.
type Vault struct {
	key *fernet.Key
}

// New builds a vault from a base64 url-safe encoded 32-byte key.
func New(encodedKey string) (*Vault, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return &Vault{key: key}, nil
}

// GenerateKey returns a fresh random key in the encoding New accepts.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", err
	}
	return key.Encode(), nil
}

// Encrypt seals a plaintext into a fresh envelope. Output differs between
// calls even for identical input: every envelope carries its own random IV,
// so ciphertexts cannot be correlated.
func (v *Vault) Encrypt(plaintext []byte) (Envelope, error) {
	out, err := fernet.EncryptAndSign(plaintext, v.key)
	if err != nil {
		return nil, err
	}
	return Envelope(out), nil
}

// Decrypt opens an envelope produced by Encrypt under the same key.
// Envelopes do not expire; integrity failures report ErrDecryptionFailed.
func (v *Vault) Decrypt(env Envelope) ([]byte, error) {
	plaintext := fernet.VerifyAndDecrypt([]byte(env), 0, []*fernet.Key{v.key})
	if plaintext == nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for string payloads.
func (v *Vault) EncryptString(plaintext string) (string, error) {
	env, err := v.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return string(env), nil
}

// DecryptString is a convenience wrapper for string envelopes.
func (v *Vault) DecryptString(env string) (string, error) {
	plaintext, err := v.Decrypt(Envelope(env))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
