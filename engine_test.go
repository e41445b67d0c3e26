package authcore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/authcore-go/authcore"
)

// recordingDispatcher captures outbound mail so tests can read the tokens
// the engine never returns directly.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to       string
	template authcore.TemplateID
	params   map[string]string
}

func (d *recordingDispatcher) Send(ctx context.Context, to string, template authcore.TemplateID, params map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentMail{to: to, template: template, params: params})
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *recordingDispatcher) last(t *testing.T) sentMail {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		t.Fatal("no mail was dispatched")
	}
	return d.sent[len(d.sent)-1]
}

// fakeVerifier resolves every artifact to a fixed external identity.
type fakeVerifier struct {
	identity *authcore.ExternalIdentity
	err      error
}

func (v *fakeVerifier) Resolve(ctx context.Context, artifact string) (*authcore.ExternalIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

func setupEngine(t *testing.T, cfg authcore.Config) (*authcore.Engine, *memStore, *recordingDispatcher) {
	t.Helper()
	store := newMemStore()
	mail := &recordingDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := authcore.NewEngine(cfg, store, mail, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, store, mail
}

func TestNewEngineValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := authcore.NewEngine(authcore.DefaultConfig(), nil, nil, logger); !errors.Is(err, authcore.ErrInvalidConfig) {
		t.Errorf("nil store: expected ErrInvalidConfig, got %v", err)
	}

	cfg := authcore.DefaultConfig()
	cfg.Password.MinLength = 0
	if _, err := authcore.NewEngine(cfg, newMemStore(), nil, logger); !errors.Is(err, authcore.ErrInvalidConfig) {
		t.Errorf("zero min length: expected ErrInvalidConfig, got %v", err)
	}

	cfg = authcore.DefaultConfig()
	cfg.SessionTTL = 0
	if _, err := authcore.NewEngine(cfg, newMemStore(), nil, logger); !errors.Is(err, authcore.ErrInvalidConfig) {
		t.Errorf("zero session TTL: expected ErrInvalidConfig, got %v", err)
	}
}

func TestRegisterVerifyLoginLifecycle(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	identityID, err := engine.Register(ctx, "Alice@Example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if identityID == "" {
		t.Fatal("Register returned empty identity id")
	}

	// A verification mail went out; the engine never hands the token back.
	msg := mail.last(t)
	if msg.template != authcore.TemplateVerifyEmail {
		t.Fatalf("expected verification mail, got %q", msg.template)
	}
	if msg.to != "alice@example.com" {
		t.Errorf("mail should go to the normalized address, got %q", msg.to)
	}
	verifyToken := msg.params[authcore.ParamToken]
	if verifyToken == "" {
		t.Fatal("verification mail carries no token")
	}

	// Login before verification is rejected with the distinct error.
	if _, err := engine.Login(ctx, "alice@example.com", "Sup3rSecret!"); !errors.Is(err, authcore.ErrEmailNotVerified) {
		t.Fatalf("pre-verification login: expected ErrEmailNotVerified, got %v", err)
	}

	if err := engine.VerifyEmail(ctx, verifyToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	// The verification token is single use.
	if err := engine.VerifyEmail(ctx, verifyToken); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("reused verification token: expected ErrInvalidToken, got %v", err)
	}

	session, err := engine.Login(ctx, "ALICE@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	identity, err := engine.ValidateSession(ctx, session.Value)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if identity.ID != identityID {
		t.Errorf("session resolves to %q, want %q", identity.ID, identityID)
	}
	if identity.PasswordHash != "" {
		t.Error("ValidateSession must not expose the password hash")
	}
	if !identity.Verified {
		t.Error("identity should be verified")
	}

	if err := engine.Logout(ctx, session.Value); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, session.Value); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("logged-out session: expected ErrInvalidToken, got %v", err)
	}
	// Logout is idempotent.
	if err := engine.Logout(ctx, session.Value); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.Register(ctx, "not-an-email", "Sup3rSecret!"); !errors.Is(err, authcore.ErrInvalidEmail) {
		t.Errorf("bad email: expected ErrInvalidEmail, got %v", err)
	}
	if _, err := engine.Register(ctx, "bob@example.com", "short"); !errors.Is(err, authcore.ErrWeakPassword) {
		t.Errorf("weak password: expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.Register(ctx, "carol@example.com", "Sup3rSecret!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Same error whether the first account is verified or not.
	if _, err := engine.Register(ctx, "Carol@Example.com", "An0therPass!"); !errors.Is(err, authcore.ErrAlreadyRegistered) {
		t.Errorf("unverified duplicate: expected ErrAlreadyRegistered, got %v", err)
	}

	if err := engine.VerifyEmail(ctx, mail.last(t).params[authcore.ParamToken]); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if _, err := engine.Register(ctx, "carol@example.com", "An0therPass!"); !errors.Is(err, authcore.ErrAlreadyRegistered) {
		t.Errorf("verified duplicate: expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	id, err := engine.Register(ctx, "dave@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.VerifyEmail(ctx, mail.last(t).params[authcore.ParamToken]); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if err := engine.Disable(ctx, id); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "Sup3rSecret!"},
		{"wrong password", "dave@example.com", "WrongPassword1!"},
		{"disabled account, right password", "dave@example.com", "Sup3rSecret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, authcore.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	id, err := engine.Register(ctx, "erin@example.com", "OldPassw0rd!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.VerifyEmail(ctx, mail.last(t).params[authcore.ParamToken]); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	session, err := engine.Login(ctx, "erin@example.com", "OldPassw0rd!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := engine.ChangePassword(ctx, id, "wrong-old", "NewPassw0rd!"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Errorf("wrong old password: expected ErrInvalidCredentials, got %v", err)
	}
	if err := engine.ChangePassword(ctx, id, "OldPassw0rd!", "short"); !errors.Is(err, authcore.ErrWeakPassword) {
		t.Errorf("weak new password: expected ErrWeakPassword, got %v", err)
	}
	// Neither failure touched the live session.
	if _, err := engine.ValidateSession(ctx, session.Value); err != nil {
		t.Fatalf("session should survive failed change attempts: %v", err)
	}

	if err := engine.ChangePassword(ctx, id, "OldPassw0rd!", "NewPassw0rd!"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// The change kills every existing session.
	if _, err := engine.ValidateSession(ctx, session.Value); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("old session after password change: expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.Login(ctx, "erin@example.com", "OldPassw0rd!"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Errorf("old password should no longer work, got %v", err)
	}
	if _, err := engine.Login(ctx, "erin@example.com", "NewPassw0rd!"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.Register(ctx, "frank@example.com", "OldPassw0rd!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.VerifyEmail(ctx, mail.last(t).params[authcore.ParamToken]); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	session, err := engine.Login(ctx, "frank@example.com", "OldPassw0rd!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Unknown addresses get the same success and no mail.
	before := mail.count()
	if err := engine.RequestPasswordReset(ctx, "stranger@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset for unknown email: %v", err)
	}
	if mail.count() != before {
		t.Error("no mail should be sent for an unknown address")
	}

	if err := engine.RequestPasswordReset(ctx, "frank@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	msg := mail.last(t)
	if msg.template != authcore.TemplatePasswordReset {
		t.Fatalf("expected reset mail, got %q", msg.template)
	}
	resetToken := msg.params[authcore.ParamToken]

	// A rejected password does not burn the token.
	if err := engine.ResetPassword(ctx, resetToken, "short"); !errors.Is(err, authcore.ErrWeakPassword) {
		t.Fatalf("weak reset password: expected ErrWeakPassword, got %v", err)
	}
	if err := engine.ResetPassword(ctx, resetToken, "NewPassw0rd!"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Single use, and every session died with the old password.
	if err := engine.ResetPassword(ctx, resetToken, "ThirdPassw0rd!"); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("reused reset token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.ValidateSession(ctx, session.Value); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("old session after reset: expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.Login(ctx, "frank@example.com", "NewPassw0rd!"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestRequestPasswordResetRevokesPriorTokens(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.Register(ctx, "gina@example.com", "Sup3rSecret!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.RequestPasswordReset(ctx, "gina@example.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := mail.last(t).params[authcore.ParamToken]
	if err := engine.RequestPasswordReset(ctx, "gina@example.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := mail.last(t).params[authcore.ParamToken]

	if err := engine.ResetPassword(ctx, first, "NewPassw0rd!"); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("superseded token: expected ErrInvalidToken, got %v", err)
	}
	if err := engine.ResetPassword(ctx, second, "NewPassw0rd!"); err != nil {
		t.Errorf("latest token should work: %v", err)
	}
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.Register(ctx, "hank@example.com", "Sup3rSecret!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first := mail.last(t).params[authcore.ParamToken]

	if err := engine.ResendVerification(ctx, "hank@example.com"); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	second := mail.last(t).params[authcore.ParamToken]
	if first == second {
		t.Fatal("resend should issue a fresh token")
	}

	// The original token was superseded.
	if err := engine.VerifyEmail(ctx, first); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("superseded token: expected ErrInvalidToken, got %v", err)
	}
	if err := engine.VerifyEmail(ctx, second); err != nil {
		t.Fatalf("VerifyEmail with fresh token: %v", err)
	}

	// A verified account and an unknown address both report success
	// without sending anything.
	before := mail.count()
	if err := engine.ResendVerification(ctx, "hank@example.com"); err != nil {
		t.Errorf("resend for verified account: %v", err)
	}
	if err := engine.ResendVerification(ctx, "stranger@example.com"); err != nil {
		t.Errorf("resend for unknown address: %v", err)
	}
	if mail.count() != before {
		t.Error("no mail should be sent for verified or unknown addresses")
	}
}

func TestSocialLoginAutoProvision(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setupEngine(t, authcore.DefaultConfig())
	engine.RegisterVerifier("fakebook", &fakeVerifier{identity: &authcore.ExternalIdentity{
		Provider:  "fakebook",
		SubjectID: "subject-1",
		Email:     "ivy@example.com",
	}})

	session, err := engine.LoginWithSocial(ctx, "fakebook", "code-1")
	if err != nil {
		t.Fatalf("LoginWithSocial: %v", err)
	}

	identity, err := engine.ValidateSession(ctx, session.Value)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if identity.Email != "ivy@example.com" {
		t.Errorf("provisioned email = %q, want ivy@example.com", identity.Email)
	}
	if !identity.Verified {
		t.Error("socially provisioned identity should be verified")
	}

	// A second social login reuses the link instead of provisioning again.
	if _, err := engine.LoginWithSocial(ctx, "fakebook", "code-2"); err != nil {
		t.Fatalf("second LoginWithSocial: %v", err)
	}
	links, err := store.ListLinks(ctx, identity.ID)
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("expected exactly one link, got %d", len(links))
	}

	// A social-only account has no local password.
	if _, err := engine.Login(ctx, "ivy@example.com", ""); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Errorf("password login on social-only account: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSocialLoginLinksExistingAccount(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setupEngine(t, authcore.DefaultConfig())
	engine.RegisterVerifier("fakebook", &fakeVerifier{identity: &authcore.ExternalIdentity{
		Provider:  "fakebook",
		SubjectID: "subject-2",
		Email:     "judy@example.com",
	}})

	id, err := engine.Register(ctx, "judy@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	session, err := engine.LoginWithSocial(ctx, "fakebook", "code-1")
	if err != nil {
		t.Fatalf("LoginWithSocial: %v", err)
	}
	identity, err := engine.ValidateSession(ctx, session.Value)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if identity.ID != id {
		t.Errorf("social login resolved to %q, want the existing account %q", identity.ID, id)
	}

	// The provider's verified email settles our verification gate, so the
	// local password now works too.
	if _, err := engine.Login(ctx, "judy@example.com", "Sup3rSecret!"); err != nil {
		t.Errorf("password login after social link: %v", err)
	}

	link, err := store.GetLink(ctx, "fakebook", "subject-2")
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if link.IdentityID != id {
		t.Errorf("link owner = %q, want %q", link.IdentityID, id)
	}
}

func TestSocialLoginWithoutAutoProvision(t *testing.T) {
	ctx := context.Background()
	cfg := authcore.DefaultConfig()
	cfg.AutoProvision = false
	engine, _, _ := setupEngine(t, cfg)
	engine.RegisterVerifier("fakebook", &fakeVerifier{identity: &authcore.ExternalIdentity{
		Provider:  "fakebook",
		SubjectID: "subject-3",
		Email:     "kate@example.com",
	}})

	if _, err := engine.LoginWithSocial(ctx, "fakebook", "code-1"); !errors.Is(err, authcore.ErrLinkingRequired) {
		t.Errorf("expected ErrLinkingRequired, got %v", err)
	}
}

func TestSocialLoginFailures(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := setupEngine(t, authcore.DefaultConfig())
	engine.RegisterVerifier("broken", &fakeVerifier{err: authcore.ErrInvalidArtifact})

	if _, err := engine.LoginWithSocial(ctx, "broken", "bad-code"); !errors.Is(err, authcore.ErrInvalidArtifact) {
		t.Errorf("rejected artifact: expected ErrInvalidArtifact, got %v", err)
	}
	if _, err := engine.LoginWithSocial(ctx, "unregistered", "code"); !errors.Is(err, authcore.ErrDependency) {
		t.Errorf("unknown provider: expected ErrDependency, got %v", err)
	}
}

// faultyStore injects failures into selected store operations.
type faultyStore struct {
	*memStore
	lookupErr      error
	createTokenErr error
}

func (s *faultyStore) GetIdentityByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.memStore.GetIdentityByEmail(ctx, email)
}

func (s *faultyStore) CreateToken(ctx context.Context, token *authcore.Token) error {
	if s.createTokenErr != nil {
		return s.createTokenErr
	}
	return s.memStore.CreateToken(ctx, token)
}

func TestResetAndResendSurfaceStoreFailures(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{memStore: newMemStore()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := authcore.NewEngine(authcore.DefaultConfig(), store, nil, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := engine.Register(ctx, "mia@example.com", "Sup3rSecret!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// An unreachable store is not an unknown account: the failure is
	// surfaced, while the unknown-account path keeps reporting success.
	store.lookupErr = errors.New("connection refused")
	if err := engine.RequestPasswordReset(ctx, "mia@example.com"); !errors.Is(err, authcore.ErrDependency) {
		t.Errorf("reset request with failing lookup: expected ErrDependency, got %v", err)
	}
	if err := engine.ResendVerification(ctx, "mia@example.com"); !errors.Is(err, authcore.ErrDependency) {
		t.Errorf("resend with failing lookup: expected ErrDependency, got %v", err)
	}
	store.lookupErr = nil

	store.createTokenErr = errors.New("write failed")
	if err := engine.RequestPasswordReset(ctx, "mia@example.com"); !errors.Is(err, authcore.ErrDependency) {
		t.Errorf("reset request with failing issue: expected ErrDependency, got %v", err)
	}
	if err := engine.ResendVerification(ctx, "mia@example.com"); !errors.Is(err, authcore.ErrDependency) {
		t.Errorf("resend with failing issue: expected ErrDependency, got %v", err)
	}
	store.createTokenErr = nil

	if err := engine.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Errorf("unknown email should still report success, got %v", err)
	}
	if err := engine.RequestPasswordReset(ctx, "mia@example.com"); err != nil {
		t.Errorf("healthy store: %v", err)
	}
}

func TestSocialLoginDisabledAccountUntouched(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setupEngine(t, authcore.DefaultConfig())
	engine.RegisterVerifier("fakebook", &fakeVerifier{identity: &authcore.ExternalIdentity{
		Provider:  "fakebook",
		SubjectID: "subject-4",
		Email:     "nora@example.com",
	}})

	id, err := engine.Register(ctx, "nora@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Disable(ctx, id); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if _, err := engine.LoginWithSocial(ctx, "fakebook", "code-1"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// The failed login must leave the disabled account untouched: no
	// verification flip, no external link.
	identity, err := store.GetIdentityByID(ctx, id)
	if err != nil {
		t.Fatalf("GetIdentityByID: %v", err)
	}
	if identity.Verified {
		t.Error("disabled account must not be marked verified by a login attempt")
	}
	if _, err := store.GetLink(ctx, "fakebook", "subject-4"); !errors.Is(err, authcore.ErrNotFound) {
		t.Errorf("no link should be created, got %v", err)
	}
}

func TestDisableAndEnable(t *testing.T) {
	ctx := context.Background()
	engine, _, mail := setupEngine(t, authcore.DefaultConfig())

	id, err := engine.Register(ctx, "liam@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.VerifyEmail(ctx, mail.last(t).params[authcore.ParamToken]); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	session, err := engine.Login(ctx, "liam@example.com", "Sup3rSecret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := engine.Disable(ctx, id); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, session.Value); err == nil {
		t.Error("disabled identity's session should not validate")
	}
	if _, err := engine.Login(ctx, "liam@example.com", "Sup3rSecret!"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Errorf("disabled login: expected ErrInvalidCredentials, got %v", err)
	}

	if err := engine.Enable(ctx, id); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	// Sessions revoked at disable time stay dead.
	if _, err := engine.ValidateSession(ctx, session.Value); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("pre-disable session after enable: expected ErrInvalidToken, got %v", err)
	}
	if _, err := engine.Login(ctx, "liam@example.com", "Sup3rSecret!"); err != nil {
		t.Errorf("login after enable: %v", err)
	}

	if err := engine.Disable(ctx, "no-such-id"); !errors.Is(err, authcore.ErrNotFound) {
		t.Errorf("disable unknown identity: expected ErrNotFound, got %v", err)
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := setupEngine(t, authcore.DefaultConfig())

	if _, err := engine.ValidateSession(ctx, "not-a-token"); !errors.Is(err, authcore.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
