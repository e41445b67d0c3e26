package authcore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Default token lifetimes, matching DefaultConfig.
const (
	DefaultEmailVerificationTTL = 24 * time.Hour
	DefaultPasswordResetTTL     = time.Hour
	DefaultSessionTTL           = 24 * time.Hour
)

// GenerateTokenValue returns a cryptographically secure random token value:
// 32 bytes of entropy, hex-encoded to 64 characters.
func GenerateTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TokenIssuer generates and validates purpose-tagged, time-bounded tokens
// backed by a TokenStore. It owns no business rules beyond token
// semantics; the engine layers lifecycle policy on top.
type TokenIssuer struct {
	store TokenStore

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewTokenIssuer creates an issuer over the given store.
func NewTokenIssuer(store TokenStore) *TokenIssuer {
	return &TokenIssuer{store: store, now: time.Now}
}

// Issue creates and stores a token for the identity.
func (ti *TokenIssuer) Issue(ctx context.Context, identityID string, purpose TokenPurpose, ttl time.Duration) (*Token, error) {
	value, err := GenerateTokenValue()
	if err != nil {
		return nil, err
	}

	now := ti.now()
	token := &Token{
		Value:      value,
		Purpose:    purpose,
		IdentityID: identityID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := ti.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// Validate checks a token value against the expected purpose and returns
// the owning identity id. The expiry check takes precedence over the
// consumed check: an expired-but-unconsumed token reports ErrTokenExpired,
// never success.
func (ti *TokenIssuer) Validate(ctx context.Context, value string, purpose TokenPurpose) (string, error) {
	token, err := ti.store.GetToken(ctx, value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", err
	}

	if token.Revoked {
		return "", ErrTokenNotFound
	}
	if token.Expired(ti.now()) {
		return "", ErrTokenExpired
	}
	if token.Purpose != purpose {
		return "", ErrTokenPurposeMismatch
	}
	if token.Purpose.SingleUse() && token.Consumed {
		return "", ErrTokenConsumed
	}
	return token.IdentityID, nil
}

// Consume atomically marks a single-use token consumed. Of two concurrent
// calls exactly one succeeds; the loser gets ErrTokenConsumed.
func (ti *TokenIssuer) Consume(ctx context.Context, value string) error {
	won, err := ti.store.ConsumeToken(ctx, value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	if !won {
		return ErrTokenConsumed
	}
	return nil
}

// Revoke explicitly invalidates a token. Idempotent: revoking an unknown
// or already revoked value succeeds.
func (ti *TokenIssuer) Revoke(ctx context.Context, value string) error {
	return ti.store.RevokeToken(ctx, value)
}

// RevokeAllSessions invalidates every live session token of the identity.
func (ti *TokenIssuer) RevokeAllSessions(ctx context.Context, identityID string) error {
	return ti.store.RevokeTokens(ctx, identityID, PurposeSession)
}
