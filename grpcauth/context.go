// Package grpcauth provides gRPC server interceptors that authenticate
// incoming requests with authcore session tokens. The interceptor pulls a
// bearer token from request metadata, validates it through the engine,
// and places the resolved identity on the handler context.
package grpcauth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/authcore-go/authcore"
)

// DefaultMetadataKey is the metadata key the session token is read from.
const DefaultMetadataKey = "authorization"

// DefaultScheme is the expected value prefix, as in "Bearer <token>".
const DefaultScheme = "Bearer"

type contextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity *authcore.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request was not authenticated.
func IdentityFromContext(ctx context.Context) *authcore.Identity {
	identity, _ := ctx.Value(contextKey{}).(*authcore.Identity)
	return identity
}

// IdentityIDFromContext returns the authenticated identity id, or empty
// string when the request was not authenticated.
func IdentityIDFromContext(ctx context.Context) string {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.ID
	}
	return ""
}

// tokenFromMetadata extracts the bearer token from incoming metadata.
// Returns empty string when absent or malformed.
func tokenFromMetadata(ctx context.Context, key, scheme string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}

	value := values[0]
	if scheme == "" {
		return value
	}
	prefix := scheme + " "
	if len(value) <= len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
		return ""
	}
	return value[len(prefix):]
}
