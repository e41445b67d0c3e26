package authcore

import "context"

// ExternalIdentity is a verified identity resolved from a social provider.
type ExternalIdentity struct {
	Provider  string
	SubjectID string
	Email     string
}

// SocialIdentityVerifier exchanges a third-party authorization artifact
// (typically an OAuth2 authorization code) for a verified external
// identity. Fails with ErrInvalidArtifact when the provider rejects the
// artifact.
type SocialIdentityVerifier interface {
	Resolve(ctx context.Context, artifact string) (*ExternalIdentity, error)
}
