// Package gaestore implements authcore.CredentialStore on Google Cloud
// Datastore. Entity groups are keyed by natural ids (identity id,
// normalized email, token value, provider/subject pair), and every
// read-modify-write that carries an invariant (email uniqueness, token
// consumption, session revocation) runs in a transaction so the
// guarantees hold across concurrent processes.
//
// Provider client secrets are encrypted with the vault before Put and
// decrypted after Get; Datastore only ever holds the envelope.
package gaestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	"github.com/authcore-go/authcore"
	"github.com/authcore-go/authcore/vault"
)

// Kind constants for Datastore entities.
const (
	KindIdentity       = "AuthIdentity"
	KindEmailIndex     = "AuthEmail"
	KindToken          = "AuthToken"
	KindLink           = "AuthLink"
	KindProviderConfig = "AuthProviderConfig"
)

// Store is a Datastore-backed CredentialStore.
type Store struct {
	client    *datastore.Client
	namespace string
	vault     *vault.Vault
}

// New creates a store over an existing Datastore client. The vault may be
// nil only when the store is never used for provider configuration.
func New(client *datastore.Client, namespace string, v *vault.Vault) *Store {
	return &Store{client: client, namespace: namespace, vault: v}
}

func (s *Store) key(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) query(kind string) *datastore.Query {
	return datastore.NewQuery(kind).Namespace(s.namespace)
}

// ============================================================================
// IdentityStore
// ============================================================================

type identityEntity struct {
	Email             string    `datastore:"email"`
	PasswordHash      string    `datastore:"password_hash,noindex"`
	Verified          bool      `datastore:"verified"`
	Disabled          bool      `datastore:"disabled"`
	CreatedAt         time.Time `datastore:"created_at"`
	PasswordChangedAt time.Time `datastore:"password_changed_at"`
}

// emailIndexEntity claims a normalized email for an identity. Creating it
// inside the same transaction as the identity enforces uniqueness.
type emailIndexEntity struct {
	IdentityID string `datastore:"identity_id"`
}

func (s *Store) CreateIdentity(ctx context.Context, identity *authcore.Identity) error {
	identityKey := s.key(KindIdentity, identity.ID)
	emailKey := s.key(KindEmailIndex, identity.Email)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing emailIndexEntity
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return authcore.ErrDuplicate
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		if _, err := tx.Put(emailKey, &emailIndexEntity{IdentityID: identity.ID}); err != nil {
			return err
		}
		_, err = tx.Put(identityKey, &identityEntity{
			Email:             identity.Email,
			PasswordHash:      identity.PasswordHash,
			Verified:          identity.Verified,
			Disabled:          identity.Disabled,
			CreatedAt:         identity.CreatedAt,
			PasswordChangedAt: identity.PasswordChangedAt,
		})
		return err
	})
	return err
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*authcore.Identity, error) {
	var entity identityEntity
	if err := s.client.Get(ctx, s.key(KindIdentity, id), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return entityToIdentity(id, &entity), nil
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	var index emailIndexEntity
	if err := s.client.Get(ctx, s.key(KindEmailIndex, email), &index); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return s.GetIdentityByID(ctx, index.IdentityID)
}

func (s *Store) UpdateIdentity(ctx context.Context, identity *authcore.Identity) error {
	key := s.key(KindIdentity, identity.ID)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing identityEntity
		if err := tx.Get(key, &existing); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return authcore.ErrNotFound
			}
			return err
		}
		_, err := tx.Put(key, &identityEntity{
			Email:             identity.Email,
			PasswordHash:      identity.PasswordHash,
			Verified:          identity.Verified,
			Disabled:          identity.Disabled,
			CreatedAt:         identity.CreatedAt,
			PasswordChangedAt: identity.PasswordChangedAt,
		})
		return err
	})
	return err
}

func entityToIdentity(id string, e *identityEntity) *authcore.Identity {
	return &authcore.Identity{
		ID:                id,
		Email:             e.Email,
		PasswordHash:      e.PasswordHash,
		Verified:          e.Verified,
		Disabled:          e.Disabled,
		CreatedAt:         e.CreatedAt,
		PasswordChangedAt: e.PasswordChangedAt,
	}
}

// ============================================================================
// TokenStore
// ============================================================================

type tokenEntity struct {
	Purpose    string    `datastore:"purpose"`
	IdentityID string    `datastore:"identity_id"`
	IssuedAt   time.Time `datastore:"issued_at"`
	ExpiresAt  time.Time `datastore:"expires_at"`
	Consumed   bool      `datastore:"consumed"`
	Revoked    bool      `datastore:"revoked"`
}

func (s *Store) CreateToken(ctx context.Context, token *authcore.Token) error {
	_, err := s.client.Put(ctx, s.key(KindToken, token.Value), &tokenEntity{
		Purpose:    string(token.Purpose),
		IdentityID: token.IdentityID,
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
		Consumed:   token.Consumed,
		Revoked:    token.Revoked,
	})
	return err
}

func (s *Store) GetToken(ctx context.Context, value string) (*authcore.Token, error) {
	var entity tokenEntity
	if err := s.client.Get(ctx, s.key(KindToken, value), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return entityToToken(value, &entity), nil
}

// ConsumeToken runs the read-check-write in a transaction; Datastore
// aborts and retries conflicting transactions, so exactly one concurrent
// caller observes the unconsumed state.
func (s *Store) ConsumeToken(ctx context.Context, value string) (bool, error) {
	key := s.key(KindToken, value)
	won := false

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		won = false
		var entity tokenEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return authcore.ErrNotFound
			}
			return err
		}
		if entity.Consumed {
			return nil
		}
		entity.Consumed = true
		if _, err := tx.Put(key, &entity); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

func (s *Store) RevokeToken(ctx context.Context, value string) error {
	key := s.key(KindToken, value)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity tokenEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return nil
			}
			return err
		}
		if entity.Revoked {
			return nil
		}
		entity.Revoked = true
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

func (s *Store) RevokeTokens(ctx context.Context, identityID string, purpose authcore.TokenPurpose) error {
	q := s.query(KindToken).
		FilterField("identity_id", "=", identityID).
		FilterField("purpose", "=", string(purpose)).
		FilterField("revoked", "=", false).
		KeysOnly()

	it := s.client.Run(ctx, q)
	for {
		key, err := it.Next(nil)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.RevokeToken(ctx, key.Name); err != nil {
			return err
		}
	}
}

func entityToToken(value string, e *tokenEntity) *authcore.Token {
	return &authcore.Token{
		Value:      value,
		Purpose:    authcore.TokenPurpose(e.Purpose),
		IdentityID: e.IdentityID,
		IssuedAt:   e.IssuedAt,
		ExpiresAt:  e.ExpiresAt,
		Consumed:   e.Consumed,
		Revoked:    e.Revoked,
	}
}

// ============================================================================
// LinkStore
// ============================================================================

type linkEntity struct {
	Provider   string    `datastore:"provider"`
	SubjectID  string    `datastore:"subject_id"`
	IdentityID string    `datastore:"identity_id"`
	CreatedAt  time.Time `datastore:"created_at"`
}

func linkKeyName(provider, subjectID string) string {
	return provider + "__" + subjectID
}

func (s *Store) CreateLink(ctx context.Context, link *authcore.ExternalIdentityLink) error {
	key := s.key(KindLink, linkKeyName(link.Provider, link.SubjectID))

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing linkEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return authcore.ErrDuplicate
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, &linkEntity{
			Provider:   link.Provider,
			SubjectID:  link.SubjectID,
			IdentityID: link.IdentityID,
			CreatedAt:  link.CreatedAt,
		})
		return err
	})
	return err
}

func (s *Store) GetLink(ctx context.Context, provider, subjectID string) (*authcore.ExternalIdentityLink, error) {
	var entity linkEntity
	key := s.key(KindLink, linkKeyName(provider, subjectID))
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return &authcore.ExternalIdentityLink{
		Provider:   entity.Provider,
		SubjectID:  entity.SubjectID,
		IdentityID: entity.IdentityID,
		CreatedAt:  entity.CreatedAt,
	}, nil
}

func (s *Store) ListLinks(ctx context.Context, identityID string) ([]*authcore.ExternalIdentityLink, error) {
	q := s.query(KindLink).FilterField("identity_id", "=", identityID)

	var links []*authcore.ExternalIdentityLink
	it := s.client.Run(ctx, q)
	for {
		var entity linkEntity
		if _, err := it.Next(&entity); err != nil {
			if errors.Is(err, iterator.Done) {
				return links, nil
			}
			return nil, err
		}
		links = append(links, &authcore.ExternalIdentityLink{
			Provider:   entity.Provider,
			SubjectID:  entity.SubjectID,
			IdentityID: entity.IdentityID,
			CreatedAt:  entity.CreatedAt,
		})
	}
}

// ============================================================================
// ProviderConfigStore
// ============================================================================

type providerConfigEntity struct {
	ClientID        string   `datastore:"client_id"`
	EncryptedSecret []byte   `datastore:"encrypted_secret,noindex"`
	AuthURL         string   `datastore:"auth_url,noindex"`
	TokenURL        string   `datastore:"token_url,noindex"`
	UserInfoURL     string   `datastore:"user_info_url,noindex"`
	Scopes          []string `datastore:"scopes,noindex"`
}

func (s *Store) PutProviderConfig(ctx context.Context, cfg *authcore.SocialProviderConfig) error {
	if s.vault == nil {
		return fmt.Errorf("gaestore: vault required for provider config")
	}

	encrypted, err := s.vault.Encrypt([]byte(cfg.ClientSecret))
	if err != nil {
		return err
	}

	_, err = s.client.Put(ctx, s.key(KindProviderConfig, cfg.Provider), &providerConfigEntity{
		ClientID:        cfg.ClientID,
		EncryptedSecret: []byte(encrypted),
		AuthURL:         cfg.AuthURL,
		TokenURL:        cfg.TokenURL,
		UserInfoURL:     cfg.UserInfoURL,
		Scopes:          cfg.Scopes,
	})
	return err
}

func (s *Store) GetProviderConfig(ctx context.Context, provider string) (*authcore.SocialProviderConfig, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("gaestore: vault required for provider config")
	}

	var entity providerConfigEntity
	if err := s.client.Get(ctx, s.key(KindProviderConfig, provider), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}

	secret, err := s.vault.Decrypt(vault.Envelope(entity.EncryptedSecret))
	if err != nil {
		return nil, err
	}

	return &authcore.SocialProviderConfig{
		Provider:     provider,
		ClientID:     entity.ClientID,
		ClientSecret: string(secret),
		AuthURL:      entity.AuthURL,
		TokenURL:     entity.TokenURL,
		UserInfoURL:  entity.UserInfoURL,
		Scopes:       entity.Scopes,
	}, nil
}
