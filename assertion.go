package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionSigner converts a validated session into a short-lived signed
// assertion (an HS256 JWT carrying the identity id) that trusted
// downstream services can verify without a store round-trip. It is a
// transport convenience only: the store-backed session token remains the
// source of truth for revocation, so assertions should be short-lived.
type AssertionSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAssertionSigner builds a signer from the configured JWT secret and
// issuer. Fails with ErrInvalidConfig when the secret is absent.
func NewAssertionSigner(cfg Config) (*AssertionSigner, error) {
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%w: JWT secret key is required", ErrInvalidConfig)
	}
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = "authcore"
	}
	return &AssertionSigner{
		secret: []byte(cfg.JWTSecretKey),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Sign issues an assertion for the identity, valid for ttl.
func (s *AssertionSigner) Sign(identityID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   identityID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks an assertion's signature, issuer, and expiry, returning
// the identity id. Every failure collapses to ErrInvalidToken.
func (s *AssertionSigner) Verify(assertion string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(assertion, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
