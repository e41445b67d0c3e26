package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Engine orchestrates the authentication lifecycle: registration, email
// verification, login (password or social), sessions, and password
// changes. It is the only component with business rules; storage, email
// transport, and social identity resolution are reached exclusively
// through their capability contracts.
//
// The engine itself is synchronous CPU work and safe for concurrent use;
// the calls into its collaborators are the only blocking points.
type Engine struct {
	store     CredentialStore
	tokens    *TokenIssuer
	mail      EmailDispatcher
	verifiers map[string]SocialIdentityVerifier
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine builds an engine over the given store. The dispatcher may be
// nil, in which case no mail is sent (verification and reset tokens are
// still issued). Social verifiers are registered separately.
func NewEngine(cfg Config, store CredentialStore, mail EmailDispatcher, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrInvalidConfig)
	}
	if cfg.Password.MinLength <= 0 {
		return nil, fmt.Errorf("%w: password policy min length must be positive", ErrInvalidConfig)
	}
	if cfg.EmailVerificationTTL <= 0 || cfg.PasswordResetTTL <= 0 || cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		tokens:    NewTokenIssuer(store),
		mail:      mail,
		verifiers: make(map[string]SocialIdentityVerifier),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// RegisterVerifier installs a social identity verifier for the provider.
// Not safe to call concurrently with logins; register at startup.
func (e *Engine) RegisterVerifier(provider string, v SocialIdentityVerifier) {
	e.verifiers[provider] = v
}

// Register creates a new identity in pending-verification state, issues an
// email verification token, and dispatches the verification mail. It
// returns the new identity id, never the token.
//
// Duplicate registration fails with the same ErrAlreadyRegistered whether
// the existing account is verified or not, so the error shape leaks no
// account state.
func (e *Engine) Register(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	if err := e.cfg.Password.Validate(password); err != nil {
		return "", err
	}

	if _, err := e.store.GetIdentityByEmail(ctx, email); err == nil {
		return "", ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotFound) {
		return "", errors.Join(ErrDependency, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	now := e.now()
	identity := &Identity{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		CreatedAt:         now,
		PasswordChangedAt: now,
	}

	// The verification token is issued before the identity is created so a
	// failed registration never leaves an identity with no reachable
	// token. An orphaned token is inert: verification requires the
	// identity row.
	token, err := e.tokens.Issue(ctx, identity.ID, PurposeEmailVerification, e.cfg.EmailVerificationTTL)
	if err != nil {
		return "", errors.Join(ErrDependency, err)
	}

	if err := e.store.CreateIdentity(ctx, identity); err != nil {
		if revokeErr := e.tokens.Revoke(ctx, token.Value); revokeErr != nil {
			e.logger.Warn("failed to revoke orphaned verification token",
				slog.Any("error", revokeErr))
		}
		if errors.Is(err, ErrDuplicate) {
			return "", ErrAlreadyRegistered
		}
		return "", errors.Join(ErrDependency, err)
	}

	e.dispatch(ctx, email, TemplateVerifyEmail, token.Value)

	e.logger.Info("identity registered", slog.String("identity_id", identity.ID))
	return identity.ID, nil
}

// VerifyEmail transitions an identity to verified state, consuming the
// token. All token failures collapse to ErrInvalidToken.
func (e *Engine) VerifyEmail(ctx context.Context, tokenValue string) error {
	identityID, err := e.tokens.Validate(ctx, tokenValue, PurposeEmailVerification)
	if err != nil {
		return e.collapseTokenErr(err)
	}
	if err := e.tokens.Consume(ctx, tokenValue); err != nil {
		return e.collapseTokenErr(err)
	}

	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return errors.Join(ErrDependency, err)
	}
	if identity.Verified {
		return nil
	}

	identity.Verified = true
	if err := e.store.UpdateIdentity(ctx, identity); err != nil {
		return errors.Join(ErrDependency, err)
	}

	e.logger.Info("email verified", slog.String("identity_id", identity.ID))
	return nil
}

// Login authenticates an email/password pair and issues a session token.
// Unknown email, wrong password, and disabled account all fail with the
// same ErrInvalidCredentials; a dummy hash comparison keeps the unknown
// email path's timing comparable. An unverified account fails with the
// distinct ErrEmailNotVerified only after the password checks out.
func (e *Engine) Login(ctx context.Context, email, password string) (*Token, error) {
	email = NormalizeEmail(email)

	identity, err := e.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			VerifyPassword(dummyPasswordHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Join(ErrDependency, err)
	}

	hash := identity.PasswordHash
	if hash == "" {
		// Social-only account: no local credential to match.
		hash = dummyPasswordHash
	}
	if !VerifyPassword(hash, password) || identity.Disabled {
		return nil, ErrInvalidCredentials
	}
	if !identity.Verified {
		return nil, ErrEmailNotVerified
	}

	return e.issueSession(ctx, identity.ID)
}

// LoginWithSocial resolves a third-party authorization artifact and logs
// in the linked identity, auto-provisioning a verified account when policy
// allows. No local password or verification gate applies: the provider's
// verification substitutes.
func (e *Engine) LoginWithSocial(ctx context.Context, provider, artifact string) (*Token, error) {
	verifier, ok := e.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no verifier registered for provider %q", ErrDependency, provider)
	}

	ext, err := verifier.Resolve(ctx, artifact)
	if err != nil {
		if errors.Is(err, ErrInvalidArtifact) {
			return nil, err
		}
		return nil, errors.Join(ErrDependency, err)
	}

	link, err := e.store.GetLink(ctx, provider, ext.SubjectID)
	switch {
	case err == nil:
		identity, err := e.store.GetIdentityByID(ctx, link.IdentityID)
		if err != nil {
			return nil, errors.Join(ErrDependency, err)
		}
		if identity.Disabled {
			return nil, ErrInvalidCredentials
		}
		return e.issueSession(ctx, identity.ID)

	case errors.Is(err, ErrNotFound):
		if !e.cfg.AutoProvision {
			return nil, ErrLinkingRequired
		}
		identity, err := e.provisionSocialIdentity(ctx, provider, ext)
		if err != nil {
			return nil, err
		}
		return e.issueSession(ctx, identity.ID)

	default:
		return nil, errors.Join(ErrDependency, err)
	}
}

// provisionSocialIdentity links the external identity to the existing
// account with the same verified email, or creates a fresh verified
// account with no local password. A disabled existing account fails
// before any side effect: the login attempt must not verify or link it.
func (e *Engine) provisionSocialIdentity(ctx context.Context, provider string, ext *ExternalIdentity) (*Identity, error) {
	email := NormalizeEmail(ext.Email)
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: provider returned no usable email", ErrInvalidArtifact)
	}

	identity, err := e.store.GetIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		if identity.Disabled {
			return nil, ErrInvalidCredentials
		}
		// The provider verified this email, which settles our own
		// verification gate too.
		if !identity.Verified {
			identity.Verified = true
			if err := e.store.UpdateIdentity(ctx, identity); err != nil {
				return nil, errors.Join(ErrDependency, err)
			}
		}

	case errors.Is(err, ErrNotFound):
		now := e.now()
		identity = &Identity{
			ID:        uuid.NewString(),
			Email:     email,
			Verified:  true,
			CreatedAt: now,
		}
		if err := e.store.CreateIdentity(ctx, identity); err != nil {
			if errors.Is(err, ErrDuplicate) {
				// Lost a race with a concurrent registration.
				identity, err = e.store.GetIdentityByEmail(ctx, email)
				if err != nil {
					return nil, errors.Join(ErrDependency, err)
				}
				if identity.Disabled {
					return nil, ErrInvalidCredentials
				}
			} else {
				return nil, errors.Join(ErrDependency, err)
			}
		}

	default:
		return nil, errors.Join(ErrDependency, err)
	}

	link := &ExternalIdentityLink{
		Provider:   provider,
		SubjectID:  ext.SubjectID,
		IdentityID: identity.ID,
		CreatedAt:  e.now(),
	}
	if err := e.store.CreateLink(ctx, link); err != nil && !errors.Is(err, ErrDuplicate) {
		return nil, errors.Join(ErrDependency, err)
	}

	e.logger.Info("social identity provisioned",
		slog.String("identity_id", identity.ID),
		slog.String("provider", provider))
	return identity, nil
}

// Logout revokes a session token. It is idempotent and safe to call with
// stale or invalid tokens: only a storage failure is reported.
func (e *Engine) Logout(ctx context.Context, tokenValue string) error {
	if err := e.tokens.Revoke(ctx, tokenValue); err != nil {
		return errors.Join(ErrDependency, err)
	}
	return nil
}

// ValidateSession checks a session token and returns the owning identity
// with its credential cleared. Disabled identities fail with
// ErrInvalidCredentials; every token failure collapses to ErrInvalidToken.
func (e *Engine) ValidateSession(ctx context.Context, tokenValue string) (*Identity, error) {
	identityID, err := e.tokens.Validate(ctx, tokenValue, PurposeSession)
	if err != nil {
		return nil, e.collapseTokenErr(err)
	}

	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, errors.Join(ErrDependency, err)
	}
	if identity.Disabled {
		return nil, ErrInvalidCredentials
	}

	out := *identity
	out.PasswordHash = ""
	return &out, nil
}

// ChangePassword rotates the identity's credential after checking the old
// password and the policy, then revokes every existing session so all
// clients must log in again.
func (e *Engine) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return errors.Join(ErrDependency, err)
	}
	if !VerifyPassword(identity.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if err := e.cfg.Password.Validate(newPassword); err != nil {
		return err
	}

	return e.rotatePassword(ctx, identity, newPassword)
}

// RequestPasswordReset issues a reset token and dispatches the reset mail
// when the email belongs to an active account. It reports success whether
// or not the email is registered; only a store failure is surfaced, since
// an outage reveals nothing about any particular account.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	identity, err := e.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Join(ErrDependency, err)
	}
	if identity.Disabled {
		return nil
	}

	// Outstanding reset tokens die with the new request.
	if err := e.store.RevokeTokens(ctx, identity.ID, PurposePasswordReset); err != nil {
		return errors.Join(ErrDependency, err)
	}

	token, err := e.tokens.Issue(ctx, identity.ID, PurposePasswordReset, e.cfg.PasswordResetTTL)
	if err != nil {
		return errors.Join(ErrDependency, err)
	}

	e.dispatch(ctx, email, TemplatePasswordReset, token.Value)
	return nil
}

// ResetPassword applies a new password under a valid reset token, consumes
// the token, and revokes every session. The policy check runs before the
// token is consumed so a rejected password does not burn the token.
func (e *Engine) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	identityID, err := e.tokens.Validate(ctx, tokenValue, PurposePasswordReset)
	if err != nil {
		return e.collapseTokenErr(err)
	}
	if err := e.cfg.Password.Validate(newPassword); err != nil {
		return err
	}
	if err := e.tokens.Consume(ctx, tokenValue); err != nil {
		return e.collapseTokenErr(err)
	}

	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return errors.Join(ErrDependency, err)
	}

	return e.rotatePassword(ctx, identity, newPassword)
}

// ResendVerification re-issues a verification token for an unverified
// account. Like RequestPasswordReset it is enumeration-safe: unknown,
// verified, and disabled accounts all report success, while store
// failures are surfaced.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	identity, err := e.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Join(ErrDependency, err)
	}
	if identity.Verified || identity.Disabled {
		return nil
	}

	if err := e.store.RevokeTokens(ctx, identity.ID, PurposeEmailVerification); err != nil {
		return errors.Join(ErrDependency, err)
	}

	token, err := e.tokens.Issue(ctx, identity.ID, PurposeEmailVerification, e.cfg.EmailVerificationTTL)
	if err != nil {
		return errors.Join(ErrDependency, err)
	}

	e.dispatch(ctx, email, TemplateVerifyEmail, token.Value)
	return nil
}

// Disable soft-disables an identity and revokes its sessions. Identities
// are never physically deleted.
func (e *Engine) Disable(ctx context.Context, identityID string) error {
	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Join(ErrDependency, err)
	}
	if !identity.Disabled {
		identity.Disabled = true
		if err := e.store.UpdateIdentity(ctx, identity); err != nil {
			return errors.Join(ErrDependency, err)
		}
	}
	if err := e.tokens.RevokeAllSessions(ctx, identityID); err != nil {
		return errors.Join(ErrDependency, err)
	}
	e.logger.Info("identity disabled", slog.String("identity_id", identityID))
	return nil
}

// Enable reactivates a disabled identity. Existing sessions stay revoked;
// the user logs in again.
func (e *Engine) Enable(ctx context.Context, identityID string) error {
	identity, err := e.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Join(ErrDependency, err)
	}
	if identity.Disabled {
		identity.Disabled = false
		if err := e.store.UpdateIdentity(ctx, identity); err != nil {
			return errors.Join(ErrDependency, err)
		}
	}
	return nil
}

func (e *Engine) issueSession(ctx context.Context, identityID string) (*Token, error) {
	token, err := e.tokens.Issue(ctx, identityID, PurposeSession, e.cfg.SessionTTL)
	if err != nil {
		return nil, errors.Join(ErrDependency, err)
	}
	e.logger.Info("session issued", slog.String("identity_id", identityID))
	return token, nil
}

func (e *Engine) rotatePassword(ctx context.Context, identity *Identity, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	identity.PasswordHash = hash
	identity.PasswordChangedAt = e.now()
	if err := e.store.UpdateIdentity(ctx, identity); err != nil {
		return errors.Join(ErrDependency, err)
	}

	// Every live session dies with the old password.
	if err := e.tokens.RevokeAllSessions(ctx, identity.ID); err != nil {
		return errors.Join(ErrDependency, err)
	}

	e.logger.Info("password rotated", slog.String("identity_id", identity.ID))
	return nil
}

// dispatch sends mail after a committed state change. Failure is logged at
// warn level, never surfaced: the state change is valid and redelivery is
// the dispatcher's concern.
func (e *Engine) dispatch(ctx context.Context, to string, template TemplateID, tokenValue string) {
	if e.mail == nil {
		return
	}

	params := map[string]string{
		ParamToken: tokenValue,
		ParamEmail: to,
	}
	if e.cfg.BaseURL != "" {
		path := "verify-email"
		if template == TemplatePasswordReset {
			path = "reset-password"
		}
		params[ParamLink] = fmt.Sprintf("%s/auth/%s?token=%s", e.cfg.BaseURL, path, tokenValue)
	}

	if err := e.mail.Send(ctx, to, template, params); err != nil {
		e.logger.Warn("email dispatch failed",
			slog.String("template", string(template)), slog.Any("error", err))
	}
}

// collapseTokenErr maps internal token failures onto the single externally
// visible ErrInvalidToken; dependency failures pass through.
func (e *Engine) collapseTokenErr(err error) error {
	switch {
	case errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenPurposeMismatch),
		errors.Is(err, ErrTokenConsumed):
		return ErrInvalidToken
	default:
		return errors.Join(ErrDependency, err)
	}
}
