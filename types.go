package authcore

import (
	"regexp"
	"strings"
	"time"
)

// Identity is a registered user account. The password hash is opaque to
// callers; social-only accounts have an empty hash.
type Identity struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"` // normalized: trimmed, lower-cased
	PasswordHash      string    `json:"-"`
	Verified          bool      `json:"verified"`
	Disabled          bool      `json:"disabled"`
	CreatedAt         time.Time `json:"created_at"`
	PasswordChangedAt time.Time `json:"password_changed_at"`
}

// ExternalIdentityLink relates an Identity to a social provider's subject.
// The (Provider, SubjectID) pair is unique across the store.
type ExternalIdentityLink struct {
	Provider   string    `json:"provider"`
	SubjectID  string    `json:"subject_id"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenPurpose scopes a token to exactly one flow.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeSession           TokenPurpose = "session"
)

// SingleUse reports whether tokens of this purpose are consumed on first
// successful use. Session tokens are multi-use until expiry or revocation.
func (p TokenPurpose) SingleUse() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// Token is an opaque, purpose-tagged, time-bounded credential referencing
// an Identity.
type Token struct {
	Value      string       `json:"value"`
	Purpose    TokenPurpose `json:"purpose"`
	IdentityID string       `json:"identity_id"`
	IssuedAt   time.Time    `json:"issued_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	Consumed   bool         `json:"consumed"`
	Revoked    bool         `json:"revoked"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// SocialProviderConfig holds per-provider settings for social login.
// ClientSecret is plaintext only in memory; store adapters encrypt it
// before it reaches durable storage.
type SocialProviderConfig struct {
	Provider     string   `json:"provider"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"user_info_url"`
	Scopes       []string `json:"scopes"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims whitespace and lower-cases an email address.
// Exactly one Identity may exist per normalized email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the (already normalized) address is
// syntactically plausible.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
