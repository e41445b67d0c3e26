// Package authcore is an embeddable identity and authentication core. It
// manages user credentials, issues and validates verification, reset, and
// session tokens, enforces password lifecycle rules, and keeps
// configuration secrets encrypted at rest. The host application supplies
// HTTP routing, request binding, and persistence connectivity.
//
// # Architecture
//
// Engine: the authentication state machine. Registration, email
// verification, password and social login, sessions, and password
// change/reset all run through it. It holds every business rule and talks
// to its collaborators only through capability contracts.
//
// CredentialStore: durable storage for identities, tokens, external
// identity links, and social provider configuration. Adapters live in
// stores/fsstore (JSON files, for development and tests), stores/gormstore
// (any GORM-supported database), and stores/gaestore (Google Cloud
// Datastore).
//
// EmailDispatcher: templated outbound mail. Adapters live in dispatch
// (console, SMTP, Postmark).
//
// SocialIdentityVerifier: exchanges a third-party authorization artifact
// for a verified external identity. OAuth2-based adapters live in social.
//
// vault.Vault: symmetric field-level encryption (Fernet) used by store
// adapters to protect provider client secrets before they reach storage.
//
// # Basic Usage
//
// Construct configuration, a store, and the engine:
//
//	cfg, err := authcore.LoadConfig() // or start from authcore.DefaultConfig()
//	v, err := vault.New(cfg.EncryptionKey)
//	store, err := fsstore.New("/var/lib/myapp/auth", v)
//	engine, err := authcore.NewEngine(cfg, store, &dispatch.Console{}, slog.Default())
//
// Drive the lifecycle from your handlers:
//
//	id, err := engine.Register(ctx, email, password)
//	err = engine.VerifyEmail(ctx, tokenFromLink)
//	session, err := engine.Login(ctx, email, password)
//	identity, err := engine.ValidateSession(ctx, session.Value)
//	err = engine.Logout(ctx, session.Value)
//
// # Security
//
// Passwords are hashed with bcrypt and never stored in plaintext. Token
// values carry 256 bits of entropy, hex-encoded. Single-use tokens
// (verification, reset) are consumed atomically: of two concurrent uses
// exactly one succeeds. Expired tokens are never valid, consumed or not.
// Changing or resetting a password revokes every live session. Operations
// sensitive to account enumeration (login, reset request, verification
// resend) return uniform results regardless of whether the account exists.
package authcore
