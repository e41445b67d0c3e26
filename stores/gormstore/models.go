package gormstore

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/authcore-go/authcore"
)

// StringSlice stores a string slice as a JSON column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// IdentityModel is the GORM model for identities.
type IdentityModel struct {
	ID                string    `gorm:"primaryKey;size:64"`
	Email             string    `gorm:"size:255;uniqueIndex"`
	PasswordHash      string    `gorm:"size:255"`
	Verified          bool      `gorm:"default:false"`
	Disabled          bool      `gorm:"default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	PasswordChangedAt time.Time
}

func (IdentityModel) TableName() string {
	return "auth_identities"
}

func (m *IdentityModel) ToIdentity() *authcore.Identity {
	return &authcore.Identity{
		ID:                m.ID,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Verified:          m.Verified,
		Disabled:          m.Disabled,
		CreatedAt:         m.CreatedAt,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

func IdentityToModel(i *authcore.Identity) *IdentityModel {
	return &IdentityModel{
		ID:                i.ID,
		Email:             i.Email,
		PasswordHash:      i.PasswordHash,
		Verified:          i.Verified,
		Disabled:          i.Disabled,
		CreatedAt:         i.CreatedAt,
		PasswordChangedAt: i.PasswordChangedAt,
	}
}

// TokenModel is the GORM model for tokens.
type TokenModel struct {
	Value      string `gorm:"primaryKey;size:128"`
	Purpose    string `gorm:"size:32;index:idx_auth_tokens_owner"`
	IdentityID string `gorm:"size:64;index:idx_auth_tokens_owner"`
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool `gorm:"default:false"`
	Revoked    bool `gorm:"default:false"`
}

func (TokenModel) TableName() string {
	return "auth_tokens"
}

func (m *TokenModel) ToToken() *authcore.Token {
	return &authcore.Token{
		Value:      m.Value,
		Purpose:    authcore.TokenPurpose(m.Purpose),
		IdentityID: m.IdentityID,
		IssuedAt:   m.IssuedAt,
		ExpiresAt:  m.ExpiresAt,
		Consumed:   m.Consumed,
		Revoked:    m.Revoked,
	}
}

func TokenToModel(t *authcore.Token) *TokenModel {
	return &TokenModel{
		Value:      t.Value,
		Purpose:    string(t.Purpose),
		IdentityID: t.IdentityID,
		IssuedAt:   t.IssuedAt,
		ExpiresAt:  t.ExpiresAt,
		Consumed:   t.Consumed,
		Revoked:    t.Revoked,
	}
}

// LinkModel is the GORM model for external identity links.
type LinkModel struct {
	Provider   string    `gorm:"primaryKey;size:32"`
	SubjectID  string    `gorm:"primaryKey;size:255"`
	IdentityID string    `gorm:"size:64;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (LinkModel) TableName() string {
	return "auth_external_links"
}

func (m *LinkModel) ToLink() *authcore.ExternalIdentityLink {
	return &authcore.ExternalIdentityLink{
		Provider:   m.Provider,
		SubjectID:  m.SubjectID,
		IdentityID: m.IdentityID,
		CreatedAt:  m.CreatedAt,
	}
}

// ProviderConfigModel is the GORM model for social provider configuration.
// The client secret column only ever holds a vault envelope.
type ProviderConfigModel struct {
	Provider        string `gorm:"primaryKey;size:32"`
	ClientID        string `gorm:"size:255"`
	EncryptedSecret string `gorm:"type:text"`
	AuthURL         string `gorm:"size:255"`
	TokenURL        string `gorm:"size:255"`
	UserInfoURL     string `gorm:"size:255"`
	Scopes          StringSlice `gorm:"type:text"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime"`
}

func (ProviderConfigModel) TableName() string {
	return "auth_provider_configs"
}
