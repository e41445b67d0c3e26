package authcore

import "context"

// IdentityStore persists user accounts. Implementations must enforce the
// one-Identity-per-normalized-email invariant and return ErrDuplicate when
// a create would violate it.
type IdentityStore interface {
	// CreateIdentity stores a new identity. Fails with ErrDuplicate if an
	// identity with the same normalized email (or id) already exists.
	CreateIdentity(ctx context.Context, identity *Identity) error

	// GetIdentityByID retrieves an identity by its id.
	// Fails with ErrNotFound if absent.
	GetIdentityByID(ctx context.Context, id string) (*Identity, error)

	// GetIdentityByEmail retrieves an identity by normalized email.
	// Fails with ErrNotFound if absent.
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)

	// UpdateIdentity persists mutations to an existing identity.
	// The email of an identity never changes.
	UpdateIdentity(ctx context.Context, identity *Identity) error
}

// TokenStore persists tokens. ConsumeToken and RevokeTokens must be atomic
// with respect to concurrent callers; contention is scoped to a single
// identity's token set, so no global coordination is required.
type TokenStore interface {
	// CreateToken stores a newly issued token.
	CreateToken(ctx context.Context, token *Token) error

	// GetToken retrieves a token by value. Fails with ErrNotFound if absent.
	GetToken(ctx context.Context, value string) (*Token, error)

	// ConsumeToken atomically marks a token consumed. Returns true if this
	// caller performed the transition, false if the token was already
	// consumed. Two concurrent calls see exactly one true.
	ConsumeToken(ctx context.Context, value string) (bool, error)

	// RevokeToken invalidates a single token. Idempotent; revoking an
	// unknown value is not an error.
	RevokeToken(ctx context.Context, value string) error

	// RevokeTokens invalidates every live token of the given purpose owned
	// by the identity, atomically with respect to concurrent validations.
	RevokeTokens(ctx context.Context, identityID string, purpose TokenPurpose) error
}

// LinkStore persists external identity links. The (provider, subject id)
// pair is unique; a link cannot outlive its identity.
type LinkStore interface {
	// CreateLink stores a new link. Fails with ErrDuplicate if the
	// (provider, subject id) pair is already linked.
	CreateLink(ctx context.Context, link *ExternalIdentityLink) error

	// GetLink retrieves a link by provider and external subject id.
	// Fails with ErrNotFound if absent.
	GetLink(ctx context.Context, provider, subjectID string) (*ExternalIdentityLink, error)

	// ListLinks returns all links owned by the identity.
	ListLinks(ctx context.Context, identityID string) ([]*ExternalIdentityLink, error)
}

// ProviderConfigStore persists social provider configuration. The client
// secret crosses this interface in plaintext; adapters encrypt it before
// it reaches durable storage and decrypt it on the way out, so the store
// backend only ever sees the opaque envelope.
type ProviderConfigStore interface {
	PutProviderConfig(ctx context.Context, cfg *SocialProviderConfig) error

	// GetProviderConfig retrieves a provider's configuration.
	// Fails with ErrNotFound if absent.
	GetProviderConfig(ctx context.Context, provider string) (*SocialProviderConfig, error)
}

// CredentialStore is the full storage capability the engine depends on.
type CredentialStore interface {
	IdentityStore
	TokenStore
	LinkStore
	ProviderConfigStore
}
