package authcore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/authcore-go/authcore"
)

func signerConfig(secret string) authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWTSecretKey = secret
	return cfg
}

func TestAssertionSignerRequiresSecret(t *testing.T) {
	if _, err := authcore.NewAssertionSigner(authcore.DefaultConfig()); !errors.Is(err, authcore.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestAssertionRoundTrip(t *testing.T) {
	signer, err := authcore.NewAssertionSigner(signerConfig("test-secret"))
	if err != nil {
		t.Fatalf("NewAssertionSigner: %v", err)
	}

	assertion, err := signer.Sign("identity-42", 5*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	identityID, err := signer.Verify(assertion)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identityID != "identity-42" {
		t.Errorf("subject = %q, want identity-42", identityID)
	}
}

func TestAssertionVerifyFailures(t *testing.T) {
	signer, err := authcore.NewAssertionSigner(signerConfig("test-secret"))
	if err != nil {
		t.Fatalf("NewAssertionSigner: %v", err)
	}
	assertion, err := signer.Sign("identity-42", 5*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	t.Run("garbage", func(t *testing.T) {
		if _, err := signer.Verify("not.a.jwt"); !errors.Is(err, authcore.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := authcore.NewAssertionSigner(signerConfig("different-secret"))
		if err != nil {
			t.Fatalf("NewAssertionSigner: %v", err)
		}
		if _, err := other.Verify(assertion); !errors.Is(err, authcore.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := signerConfig("test-secret")
		cfg.JWTIssuer = "someone-else"
		other, err := authcore.NewAssertionSigner(cfg)
		if err != nil {
			t.Fatalf("NewAssertionSigner: %v", err)
		}
		if _, err := other.Verify(assertion); !errors.Is(err, authcore.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := signer.Sign("identity-42", -time.Minute)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if _, err := signer.Verify(expired); !errors.Is(err, authcore.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
