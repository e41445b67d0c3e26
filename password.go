package authcore

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks a candidate password against the policy. Failures are
// reported wrapped in ErrWeakPassword.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, p.MinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if p.RequireMixedCase && (!hasUpper || !hasLower) {
		return fmt.Errorf("%w: must contain upper and lower case letters", ErrWeakPassword)
	}
	if p.RequireDigit && !hasDigit {
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	}
	if p.RequireSymbol && !hasSymbol {
		return fmt.Errorf("%w: must contain a symbol", ErrWeakPassword)
	}
	return nil
}

// HashPassword hashes a plaintext password with bcrypt. The plaintext is
// never stored.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored hash.
// bcrypt's comparison is constant-time over the digest.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyPasswordHash is compared against when the account lookup fails, so
// unknown-email and wrong-password logins take comparable time.
var dummyPasswordHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("authcore-timing-pad"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()
