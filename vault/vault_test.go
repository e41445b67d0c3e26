package vault_test

import (
	"errors"
	"testing"

	"github.com/authcore-go/authcore/vault"
)

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := vault.New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNewRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not base64", "!!!not-a-key!!!"},
		{"wrong length", "c2hvcnQ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := vault.New(tt.key); !errors.Is(err, vault.ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)

	plaintexts := []string{"", "secret", "longer secret with spaces and unicode: héllo"}
	for _, plaintext := range plaintexts {
		env, err := v.Encrypt([]byte(plaintext))
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if string(env) == plaintext && plaintext != "" {
			t.Errorf("envelope must not equal plaintext")
		}

		out, err := v.Decrypt(env)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if string(out) != plaintext {
			t.Errorf("round trip = %q, want %q", out, plaintext)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := v.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if string(a) == string(b) {
		t.Error("two envelopes of the same plaintext should differ")
	}
}

func TestDecryptFailsClosed(t *testing.T) {
	v := newTestVault(t)
	env, err := v.Encrypt([]byte("protected"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	t.Run("foreign key", func(t *testing.T) {
		other := newTestVault(t)
		if _, err := other.Decrypt(env); !errors.Is(err, vault.ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed, got %v", err)
		}
	})

	t.Run("tampered envelope", func(t *testing.T) {
		tampered := make(vault.Envelope, len(env))
		copy(tampered, env)
		tampered[len(tampered)/2] ^= 0x01
		if _, err := v.Decrypt(tampered); !errors.Is(err, vault.ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := v.Decrypt(vault.Envelope("not an envelope")); !errors.Is(err, vault.ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed, got %v", err)
		}
	})
}

func TestStringHelpers(t *testing.T) {
	v := newTestVault(t)

	env, err := v.EncryptString("client-secret-value")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	out, err := v.DecryptString(env)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if out != "client-secret-value" {
		t.Errorf("round trip = %q", out)
	}
}
