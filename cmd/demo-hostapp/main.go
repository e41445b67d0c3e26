// Command demo-hostapp is a minimal host application embedding the
// authcore engine behind a plain net/http surface. It keeps identities in
// a filesystem store under a local data directory and prints outbound
// mail to the console, so a full register/verify/login round trip works
// with nothing but this binary:
//
//	AUTHCORE_ENCRYPTION_KEY=$(head -c32 /dev/urandom | base64) go run .
//	curl -XPOST localhost:8080/auth/register -d email=a@b.com -d password=Secret123
//
// The verification token appears in the process log; paste it into
// /auth/verify-email to activate the account.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/authcore-go/authcore"
	"github.com/authcore-go/authcore/dispatch"
	"github.com/authcore-go/authcore/stores/fsstore"
	"github.com/authcore-go/authcore/vault"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dataDir := flag.String("data", "./authdata", "directory for the filesystem store")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := authcore.LoadConfig()
	if err != nil {
		logger.Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.EncryptionKey == "" {
		// Demo convenience only. A real host persists its key.
		cfg.EncryptionKey, _ = vault.GenerateKey()
		logger.Warn("AUTHCORE_ENCRYPTION_KEY not set, generated an ephemeral key")
	}

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		logger.Error("vault", slog.Any("error", err))
		os.Exit(1)
	}
	store, err := fsstore.New(*dataDir, v)
	if err != nil {
		logger.Error("store", slog.Any("error", err))
		os.Exit(1)
	}

	engine, err := authcore.NewEngine(cfg, store, &dispatch.Console{Logger: logger}, logger)
	if err != nil {
		logger.Error("engine", slog.Any("error", err))
		os.Exit(1)
	}

	h := &host{engine: engine, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/verify-email", h.verifyEmail)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("POST /auth/request-reset", h.requestReset)
	mux.HandleFunc("POST /auth/reset-password", h.resetPassword)
	mux.HandleFunc("GET /me", h.me)

	logger.Info("listening", slog.String("addr", *addr))
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

type host struct {
	engine *authcore.Engine
	logger *slog.Logger
}

func (h *host) register(w http.ResponseWriter, r *http.Request) {
	id, err := h.engine.Register(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusCreated, map[string]string{"identity_id": id})
}

func (h *host) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.VerifyEmail(r.Context(), r.FormValue("token")); err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *host) login(w http.ResponseWriter, r *http.Request) {
	token, err := h.engine.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]string{
		"session_token": token.Value,
		"expires_at":    token.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *host) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), bearerToken(r)); err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *host) requestReset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RequestPasswordReset(r.Context(), r.FormValue("email")); err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *host) resetPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetPassword(r.Context(), r.FormValue("token"), r.FormValue("password")); err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]string{"status": "password reset"})
}

func (h *host) me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.engine.ValidateSession(r.Context(), bearerToken(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.reply(w, http.StatusOK, map[string]any{
		"identity_id": identity.ID,
		"email":       identity.Email,
		"verified":    identity.Verified,
	})
}

func (h *host) reply(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// fail maps engine errors onto HTTP statuses. The mapping is the host's
// to choose; the engine only distinguishes the error kinds.
func (h *host) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrInvalidToken):
		code = http.StatusUnauthorized
	case errors.Is(err, authcore.ErrEmailNotVerified):
		code = http.StatusForbidden
	case errors.Is(err, authcore.ErrAlreadyRegistered):
		code = http.StatusConflict
	case errors.Is(err, authcore.ErrInvalidEmail),
		errors.Is(err, authcore.ErrWeakPassword):
		code = http.StatusBadRequest
	default:
		h.logger.Error("request failed", slog.Any("error", err))
	}
	h.reply(w, code, map[string]string{"error": http.StatusText(code)})
}

func bearerToken(r *http.Request) string {
	value := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(value, "Bearer "); ok {
		return after
	}
	return value
}
