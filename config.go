package authcore

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// PasswordPolicy is the configurable password acceptance policy. The zero
// value accepts anything; DefaultConfig applies sensible defaults.
type PasswordPolicy struct {
	MinLength        int  `env:"MIN_LENGTH" envDefault:"8" validate:"min=1"`
	RequireMixedCase bool `env:"REQUIRE_MIXED_CASE"`
	RequireDigit     bool `env:"REQUIRE_DIGIT"`
	RequireSymbol    bool `env:"REQUIRE_SYMBOL"`
}

// Config is the immutable configuration surface consumed by the core.
// It is constructed once at startup and passed by value into constructors;
// nothing in the package mutates it afterwards.
type Config struct {
	// EncryptionKey is a base64 url-safe 32-byte key protecting secrets
	// at rest. Required wherever a vault-backed store adapter is used.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// JWTSecretKey signs session assertions. Required only when the
	// assertion codec is used.
	JWTSecretKey string `env:"JWT_SECRET_KEY"`
	JWTIssuer    string `env:"JWT_ISSUER" envDefault:"authcore"`

	// BaseURL is used to build verification and reset links placed in
	// outbound mail. When empty, the raw token is the only parameter.
	BaseURL string `env:"BASE_URL"`

	Password PasswordPolicy `envPrefix:"PASSWORD_"`

	EmailVerificationTTL time.Duration `env:"EMAIL_VERIFICATION_TTL" envDefault:"24h" validate:"min=1m"`
	PasswordResetTTL     time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h" validate:"min=1m"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"min=1m"`

	// AutoProvision controls social login for unknown external
	// identities: true creates a verified account on the fly, false
	// fails with ErrLinkingRequired.
	AutoProvision bool `env:"SOCIAL_AUTO_PROVISION" envDefault:"true"`
}

// EnvPrefix is applied to every environment variable read by LoadConfig.
const EnvPrefix = "AUTHCORE_"

// DefaultConfig returns a Config with the documented defaults and no
// secrets set.
func DefaultConfig() Config {
	return Config{
		JWTIssuer:            "authcore",
		Password:             PasswordPolicy{MinLength: 8},
		EmailVerificationTTL: 24 * time.Hour,
		PasswordResetTTL:     time.Hour,
		SessionTTL:           24 * time.Hour,
		AutoProvision:        true,
	}
}

// LoadConfig reads configuration from the environment, optionally loading
// one or more .env files first (earlier files win over later ones, real
// environment variables win over all). Validation failures are reported
// joined with ErrInvalidConfig.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, errors.Join(ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct-tag constraints on the config.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
