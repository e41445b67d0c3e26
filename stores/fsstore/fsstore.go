// Package fsstore implements authcore.CredentialStore over JSON files.
// It is suitable for development, tests, and small single-process
// deployments; atomicity of token consumption is guaranteed within the
// process by a store-wide mutex, and writes are atomic on disk via
// rename. Production deployments with multiple processes should use a
// database-backed store such as gormstore.
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/authcore-go/authcore"
	"github.com/authcore-go/authcore/vault"
)

// Store is a file-backed CredentialStore. Provider client secrets are
// encrypted with the vault before they touch disk.
type Store struct {
	root  string
	vault *vault.Vault

	mu sync.Mutex
}

// New creates a store rooted at dir. The vault may be nil only when the
// store is never used for provider configuration.
func New(dir string, v *vault.Vault) (*Store, error) {
	for _, sub := range []string{"identities", "emails", "tokens", "links", "providers"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: dir, vault: v}, nil
}

// writeAtomicFile writes data to a file atomically by writing to a temp
// file first and renaming it into place.
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return authcore.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// ============================================================================
// IdentityStore
// ============================================================================

func (s *Store) identityPath(id string) string {
	return filepath.Join(s.root, "identities", id+".json")
}

func (s *Store) emailPath(email string) string {
	return filepath.Join(s.root, "emails", email+".json")
}

type emailIndexEntry struct {
	IdentityID string `json:"identity_id"`
}

func (s *Store) CreateIdentity(ctx context.Context, identity *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The email index file doubles as the uniqueness guard: O_EXCL makes
	// the claim atomic on disk.
	f, err := os.OpenFile(s.emailPath(identity.Email), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return authcore.ErrDuplicate
		}
		return err
	}
	if err := json.NewEncoder(f).Encode(emailIndexEntry{IdentityID: identity.ID}); err != nil {
		f.Close()
		os.Remove(s.emailPath(identity.Email))
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := writeJSON(s.identityPath(identity.ID), identity); err != nil {
		os.Remove(s.emailPath(identity.Email))
		return err
	}
	return nil
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*authcore.Identity, error) {
	var identity authcore.Identity
	if err := readJSON(s.identityPath(id), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	var entry emailIndexEntry
	if err := readJSON(s.emailPath(email), &entry); err != nil {
		return nil, err
	}
	return s.GetIdentityByID(ctx, entry.IdentityID)
}

func (s *Store) UpdateIdentity(ctx context.Context, identity *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.identityPath(identity.ID)); err != nil {
		if os.IsNotExist(err) {
			return authcore.ErrNotFound
		}
		return err
	}
	return writeJSON(s.identityPath(identity.ID), identity)
}

// ============================================================================
// TokenStore
// ============================================================================

func (s *Store) tokenPath(value string) string {
	return filepath.Join(s.root, "tokens", value+".json")
}

func (s *Store) CreateToken(ctx context.Context, token *authcore.Token) error {
	return writeJSON(s.tokenPath(token.Value), token)
}

func (s *Store) GetToken(ctx context.Context, value string) (*authcore.Token, error) {
	var token authcore.Token
	if err := readJSON(s.tokenPath(value), &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) ConsumeToken(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token authcore.Token
	if err := readJSON(s.tokenPath(value), &token); err != nil {
		return false, err
	}
	if token.Consumed {
		return false, nil
	}
	token.Consumed = true
	if err := writeJSON(s.tokenPath(value), &token); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) RevokeToken(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token authcore.Token
	if err := readJSON(s.tokenPath(value), &token); err != nil {
		if errors.Is(err, authcore.ErrNotFound) {
			return nil
		}
		return err
	}
	if token.Revoked {
		return nil
	}
	token.Revoked = true
	return writeJSON(s.tokenPath(value), &token)
}

func (s *Store) RevokeTokens(ctx context.Context, identityID string, purpose authcore.TokenPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokensDir := filepath.Join(s.root, "tokens")
	entries, err := os.ReadDir(tokensDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(tokensDir, entry.Name())

		var token authcore.Token
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &token); err != nil {
			continue
		}

		if token.IdentityID == identityID && token.Purpose == purpose && !token.Revoked {
			token.Revoked = true
			if err := writeJSON(path, &token); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================================
// LinkStore
// ============================================================================

func (s *Store) linkPath(provider, subjectID string) string {
	return filepath.Join(s.root, "links", provider+"__"+subjectID+".json")
}

func (s *Store) CreateLink(ctx context.Context, link *authcore.ExternalIdentityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.linkPath(link.Provider, link.SubjectID)
	if _, err := os.Stat(path); err == nil {
		return authcore.ErrDuplicate
	}
	return writeJSON(path, link)
}

func (s *Store) GetLink(ctx context.Context, provider, subjectID string) (*authcore.ExternalIdentityLink, error) {
	var link authcore.ExternalIdentityLink
	if err := readJSON(s.linkPath(provider, subjectID), &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Store) ListLinks(ctx context.Context, identityID string) ([]*authcore.ExternalIdentityLink, error) {
	linksDir := filepath.Join(s.root, "links")
	entries, err := os.ReadDir(linksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var links []*authcore.ExternalIdentityLink
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var link authcore.ExternalIdentityLink
		if err := readJSON(filepath.Join(linksDir, entry.Name()), &link); err != nil {
			continue
		}
		if link.IdentityID == identityID {
			links = append(links, &link)
		}
	}
	return links, nil
}

// ============================================================================
// ProviderConfigStore
// ============================================================================

func (s *Store) providerPath(provider string) string {
	return filepath.Join(s.root, "providers", provider+".json")
}

// providerConfigRecord is the on-disk form: the client secret only ever
// appears as a vault envelope.
type providerConfigRecord struct {
	Provider        string   `json:"provider"`
	ClientID        string   `json:"client_id"`
	EncryptedSecret string   `json:"encrypted_secret"`
	AuthURL         string   `json:"auth_url"`
	TokenURL        string   `json:"token_url"`
	UserInfoURL     string   `json:"user_info_url"`
	Scopes          []string `json:"scopes"`
}

func (s *Store) PutProviderConfig(ctx context.Context, cfg *authcore.SocialProviderConfig) error {
	if s.vault == nil {
		return fmt.Errorf("fsstore: vault required for provider config")
	}

	encrypted, err := s.vault.EncryptString(cfg.ClientSecret)
	if err != nil {
		return err
	}

	record := providerConfigRecord{
		Provider:        cfg.Provider,
		ClientID:        cfg.ClientID,
		EncryptedSecret: encrypted,
		AuthURL:         cfg.AuthURL,
		TokenURL:        cfg.TokenURL,
		UserInfoURL:     cfg.UserInfoURL,
		Scopes:          cfg.Scopes,
	}
	return writeJSON(s.providerPath(cfg.Provider), &record)
}

func (s *Store) GetProviderConfig(ctx context.Context, provider string) (*authcore.SocialProviderConfig, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("fsstore: vault required for provider config")
	}

	var record providerConfigRecord
	if err := readJSON(s.providerPath(provider), &record); err != nil {
		return nil, err
	}

	secret, err := s.vault.DecryptString(record.EncryptedSecret)
	if err != nil {
		return nil, err
	}

	return &authcore.SocialProviderConfig{
		Provider:     record.Provider,
		ClientID:     record.ClientID,
		ClientSecret: secret,
		AuthURL:      record.AuthURL,
		TokenURL:     record.TokenURL,
		UserInfoURL:  record.UserInfoURL,
		Scopes:       record.Scopes,
	}, nil
}
