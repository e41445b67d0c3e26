// Package gormstore implements authcore.CredentialStore on top of GORM,
// giving the core a durable backend on any database GORM supports. Token
// consumption and bulk session revocation rely on conditional updates, so
// atomicity holds across processes sharing the database.
//
// Provider client secrets are encrypted with the vault before they are
// written and decrypted after they are read; the database only ever sees
// the envelope.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/authcore-go/authcore"
	"github.com/authcore-go/authcore/vault"
)

// Store is a GORM-backed CredentialStore.
type Store struct {
	db    *gorm.DB
	vault *vault.Vault
}

// New creates a store over an existing GORM connection. Open the
// connection with gorm.Config{TranslateError: true} so duplicate-key
// violations surface as authcore.ErrDuplicate. The vault may be nil only
// when the store is never used for provider configuration.
func New(db *gorm.DB, v *vault.Vault) *Store {
	return &Store{db: db, vault: v}
}

// AutoMigrate creates or updates the authcore tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&IdentityModel{},
		&TokenModel{},
		&LinkModel{},
		&ProviderConfigModel{},
	)
}

// ============================================================================
// IdentityStore
// ============================================================================

func (s *Store) CreateIdentity(ctx context.Context, identity *authcore.Identity) error {
	err := s.db.WithContext(ctx).Create(IdentityToModel(identity)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authcore.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*authcore.Identity, error) {
	var model IdentityModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	var model IdentityModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *Store) UpdateIdentity(ctx context.Context, identity *authcore.Identity) error {
	res := s.db.WithContext(ctx).
		Model(&IdentityModel{}).
		Where("id = ?", identity.ID).
		Updates(map[string]any{
			"password_hash":       identity.PasswordHash,
			"verified":            identity.Verified,
			"disabled":            identity.Disabled,
			"password_changed_at": identity.PasswordChangedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

// ============================================================================
// TokenStore
// ============================================================================

func (s *Store) CreateToken(ctx context.Context, token *authcore.Token) error {
	return s.db.WithContext(ctx).Create(TokenToModel(token)).Error
}

func (s *Store) GetToken(ctx context.Context, value string) (*authcore.Token, error) {
	var model TokenModel
	err := s.db.WithContext(ctx).First(&model, "value = ?", value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return model.ToToken(), nil
}

// ConsumeToken flips the consumed flag with a conditional update. The
// database serializes the two concurrent updates; exactly one sees
// RowsAffected == 1.
func (s *Store) ConsumeToken(ctx context.Context, value string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&TokenModel{}).
		Where("value = ? AND consumed = ?", value, false).
		Update("consumed", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Lost the race, or the token never existed.
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&TokenModel{}).
		Where("value = ?", value).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, authcore.ErrNotFound
	}
	return false, nil
}

func (s *Store) RevokeToken(ctx context.Context, value string) error {
	return s.db.WithContext(ctx).
		Model(&TokenModel{}).
		Where("value = ?", value).
		Update("revoked", true).Error
}

func (s *Store) RevokeTokens(ctx context.Context, identityID string, purpose authcore.TokenPurpose) error {
	return s.db.WithContext(ctx).
		Model(&TokenModel{}).
		Where("identity_id = ? AND purpose = ? AND revoked = ?", identityID, string(purpose), false).
		Update("revoked", true).Error
}

// ============================================================================
// LinkStore
// ============================================================================

func (s *Store) CreateLink(ctx context.Context, link *authcore.ExternalIdentityLink) error {
	model := &LinkModel{
		Provider:   link.Provider,
		SubjectID:  link.SubjectID,
		IdentityID: link.IdentityID,
		CreatedAt:  link.CreatedAt,
	}
	err := s.db.WithContext(ctx).Create(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authcore.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, provider, subjectID string) (*authcore.ExternalIdentityLink, error) {
	var model LinkModel
	err := s.db.WithContext(ctx).
		First(&model, "provider = ? AND subject_id = ?", provider, subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}
	return model.ToLink(), nil
}

func (s *Store) ListLinks(ctx context.Context, identityID string) ([]*authcore.ExternalIdentityLink, error) {
	var models []LinkModel
	if err := s.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Find(&models).Error; err != nil {
		return nil, err
	}

	links := make([]*authcore.ExternalIdentityLink, len(models))
	for i := range models {
		links[i] = models[i].ToLink()
	}
	return links, nil
}

// ============================================================================
// ProviderConfigStore
// ============================================================================

func (s *Store) PutProviderConfig(ctx context.Context, cfg *authcore.SocialProviderConfig) error {
	if s.vault == nil {
		return fmt.Errorf("gormstore: vault required for provider config")
	}

	encrypted, err := s.vault.EncryptString(cfg.ClientSecret)
	if err != nil {
		return err
	}

	model := &ProviderConfigModel{
		Provider:        cfg.Provider,
		ClientID:        cfg.ClientID,
		EncryptedSecret: encrypted,
		AuthURL:         cfg.AuthURL,
		TokenURL:        cfg.TokenURL,
		UserInfoURL:     cfg.UserInfoURL,
		Scopes:          StringSlice(cfg.Scopes),
	}
	return s.db.WithContext(ctx).Save(model).Error
}

func (s *Store) GetProviderConfig(ctx context.Context, provider string) (*authcore.SocialProviderConfig, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("gormstore: vault required for provider config")
	}

	var model ProviderConfigModel
	err := s.db.WithContext(ctx).First(&model, "provider = ?", provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrNotFound
		}
		return nil, err
	}

	secret, err := s.vault.DecryptString(model.EncryptedSecret)
	if err != nil {
		return nil, err
	}

	return &authcore.SocialProviderConfig{
		Provider:     model.Provider,
		ClientID:     model.ClientID,
		ClientSecret: secret,
		AuthURL:      model.AuthURL,
		TokenURL:     model.TokenURL,
		UserInfoURL:  model.UserInfoURL,
		Scopes:       []string(model.Scopes),
	}, nil
}
