package grpcauth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/authcore-go/authcore"
)

// SessionValidator validates a session token and returns the owning
// identity. *authcore.Engine satisfies this interface.
type SessionValidator interface {
	ValidateSession(ctx context.Context, tokenValue string) (*authcore.Identity, error)
}

// Config configures the auth interceptors.
type Config struct {
	// MetadataKey is the metadata key holding the token.
	// Defaults to "authorization".
	MetadataKey string

	// Scheme is the expected token prefix. Defaults to "Bearer"; set to
	// "-" to accept the raw token value with no prefix.
	Scheme string

	// RequireAuth when true rejects unauthenticated requests with
	// codes.Unauthenticated. When false, requests proceed and
	// IdentityFromContext returns nil.
	RequireAuth bool

	// PublicMethods are full method names ("/package.Service/Method")
	// exempt from the RequireAuth check.
	PublicMethods map[string]bool
}

// DefaultConfig returns a config that requires auth for all methods.
func DefaultConfig() *Config {
	return &Config{
		MetadataKey:   DefaultMetadataKey,
		Scheme:        DefaultScheme,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig returns a config requiring auth for everything
// except the listed methods.
func NewPublicMethodsConfig(publicMethods ...string) *Config {
	config := DefaultConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated
// requests through.
func OptionalAuthConfig() *Config {
	config := DefaultConfig()
	config.RequireAuth = false
	return config
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKey == "" {
		c.MetadataKey = DefaultMetadataKey
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

func (c *Config) scheme() string {
	if c.Scheme == "-" {
		return ""
	}
	return c.Scheme
}

// UnaryAuthInterceptor returns a unary interceptor that authenticates
// requests against the validator.
func UnaryAuthInterceptor(validator SessionValidator, config *Config) grpc.UnaryServerInterceptor {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, validator, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a stream interceptor that authenticates
// requests against the validator.
func StreamAuthInterceptor(validator SessionValidator, config *Config) grpc.StreamServerInterceptor {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), validator, config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticate validates the request's token, if any, and returns the
// handler context. When the method requires auth, a missing or invalid
// token is rejected. Otherwise the request proceeds anonymously, with a
// valid token still resolving the identity; an invalid token is treated
// the same as none at all.
func authenticate(ctx context.Context, validator SessionValidator, config *Config, fullMethod string) (context.Context, error) {
	token := tokenFromMetadata(ctx, config.MetadataKey, config.scheme())
	required := config.RequireAuth && !config.PublicMethods[fullMethod]

	if token == "" {
		if required {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}

	identity, err := validator.ValidateSession(ctx, token)
	if err != nil {
		if required {
			return nil, status.Error(codes.Unauthenticated, "invalid session")
		}
		return ctx, nil
	}

	return WithIdentity(ctx, identity), nil
}

// wrappedStream overrides the stream context with the authenticated one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
