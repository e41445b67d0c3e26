package authcore_test

import (
	"context"
	"sync"

	"github.com/authcore-go/authcore"
)

// memStore is an in-memory CredentialStore for exercising the engine and
// token issuer without touching disk.
type memStore struct {
	mu         sync.Mutex
	identities map[string]*authcore.Identity
	emails     map[string]string
	tokens     map[string]*authcore.Token
	links      map[string]*authcore.ExternalIdentityLink
	providers  map[string]*authcore.SocialProviderConfig
}

func newMemStore() *memStore {
	return &memStore{
		identities: make(map[string]*authcore.Identity),
		emails:     make(map[string]string),
		tokens:     make(map[string]*authcore.Token),
		links:      make(map[string]*authcore.ExternalIdentityLink),
		providers:  make(map[string]*authcore.SocialProviderConfig),
	}
}

func (s *memStore) CreateIdentity(ctx context.Context, identity *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[identity.Email]; ok {
		return authcore.ErrDuplicate
	}
	if _, ok := s.identities[identity.ID]; ok {
		return authcore.ErrDuplicate
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	s.emails[identity.Email] = identity.ID
	return nil
}

func (s *memStore) GetIdentityByID(ctx context.Context, id string) (*authcore.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *memStore) GetIdentityByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	cp := *s.identities[id]
	return &cp, nil
}

func (s *memStore) UpdateIdentity(ctx context.Context, identity *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.ID]; !ok {
		return authcore.ErrNotFound
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *memStore) CreateToken(ctx context.Context, token *authcore.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token.Value]; ok {
		return authcore.ErrDuplicate
	}
	cp := *token
	s.tokens[token.Value] = &cp
	return nil
}

func (s *memStore) GetToken(ctx context.Context, value string) (*authcore.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	cp := *token
	return &cp, nil
}

func (s *memStore) ConsumeToken(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok {
		return false, authcore.ErrNotFound
	}
	if token.Consumed {
		return false, nil
	}
	token.Consumed = true
	return true, nil
}

func (s *memStore) RevokeToken(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[value]; ok {
		token.Revoked = true
	}
	return nil
}

func (s *memStore) RevokeTokens(ctx context.Context, identityID string, purpose authcore.TokenPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.tokens {
		if token.IdentityID == identityID && token.Purpose == purpose {
			token.Revoked = true
		}
	}
	return nil
}

func (s *memStore) CreateLink(ctx context.Context, link *authcore.ExternalIdentityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := link.Provider + "/" + link.SubjectID
	if _, ok := s.links[key]; ok {
		return authcore.ErrDuplicate
	}
	cp := *link
	s.links[key] = &cp
	return nil
}

func (s *memStore) GetLink(ctx context.Context, provider, subjectID string) (*authcore.ExternalIdentityLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[provider+"/"+subjectID]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *memStore) ListLinks(ctx context.Context, identityID string) ([]*authcore.ExternalIdentityLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*authcore.ExternalIdentityLink
	for _, link := range s.links {
		if link.IdentityID == identityID {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) PutProviderConfig(ctx context.Context, cfg *authcore.SocialProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.providers[cfg.Provider] = &cp
	return nil
}

func (s *memStore) GetProviderConfig(ctx context.Context, provider string) (*authcore.SocialProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.providers[provider]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

// putToken seeds a token with explicit timestamps, bypassing the issuer.
func (s *memStore) putToken(token *authcore.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.Value] = &cp
}
