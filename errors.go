package authcore

import "errors"

// Externally visible errors. Operations that are enumeration-sensitive
// collapse their internal failure modes into a single sentinel so callers
// (and attackers probing them) cannot distinguish the underlying cause.
var (
	// ErrInvalidConfig indicates missing or malformed startup configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidEmail indicates a syntactically invalid email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword indicates the password does not meet the configured policy.
	ErrWeakPassword = errors.New("password does not meet policy")

	// ErrInvalidCredentials covers unknown email, wrong password, and
	// disabled accounts. The three cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailNotVerified is returned on login before email verification.
	// Unlike credential failures this is not a secret: it directs the
	// caller to a defined remediation flow.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidToken collapses every token validation failure
	// (unknown, expired, wrong purpose, already consumed) so token
	// probing yields no oracle.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAlreadyRegistered is returned for duplicate registration,
	// regardless of the existing account's verification state.
	ErrAlreadyRegistered = errors.New("email already registered")

	// ErrLinkingRequired is returned by social login when no link exists
	// and auto-provisioning is disabled.
	ErrLinkingRequired = errors.New("account linking required")

	// ErrInvalidArtifact indicates the social provider rejected the
	// authorization artifact.
	ErrInvalidArtifact = errors.New("invalid authorization artifact")

	// ErrDependency wraps failures of a collaborator (store, email
	// transport, social provider). Retryable unless the collaborator
	// marked it permanent.
	ErrDependency = errors.New("dependency failure")
)

// TokenIssuer validation errors. The engine collapses all of these into
// ErrInvalidToken before they become externally visible.
var (
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenPurposeMismatch = errors.New("token purpose mismatch")
	ErrTokenConsumed        = errors.New("token already consumed")
)

// Store-level sentinels. Adapters return these so the engine can map them
// onto the externally visible taxonomy without knowing the backend.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)
