// Package social provides SocialIdentityVerifier implementations backed
// by OAuth2 providers. The verifier exchanges an authorization code for an
// access token and resolves the provider's userinfo endpoint into a
// verified external identity. HTTP redirect handling (building the
// consent URL, receiving the callback) belongs to the host; AuthCodeURL
// is exposed for that purpose.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/authcore-go/authcore"
)

// extractFunc maps a provider's userinfo payload to (subject id, email).
type extractFunc func(info map[string]any) (subject, email string, err error)

// OAuth2Verifier resolves OAuth2 authorization codes against a single
// provider.
type OAuth2Verifier struct {
	provider string
	config   *oauth2.Config

	userInfoURL string
	extract     extractFunc
}

// New builds a verifier from stored provider configuration. The config's
// client secret is expected in plaintext, freshly decrypted at the store
// boundary, and is held only inside the oauth2 config.
func New(pc *authcore.SocialProviderConfig) *OAuth2Verifier {
	return &OAuth2Verifier{
		provider: pc.Provider,
		config: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pc.AuthURL,
				TokenURL: pc.TokenURL,
			},
			Scopes: pc.Scopes,
		},
		userInfoURL: pc.UserInfoURL,
		extract:     defaultExtract,
	}
}

// WithRedirectURL sets the callback the provider redirects to. Returns
// the verifier for chaining during setup.
func (v *OAuth2Verifier) WithRedirectURL(url string) *OAuth2Verifier {
	v.config.RedirectURL = url
	return v
}

// Provider returns the provider name this verifier resolves against.
func (v *OAuth2Verifier) Provider() string {
	return v.provider
}

// AuthCodeURL builds the provider consent URL for the given state value.
// State generation and verification are the host's responsibility.
func (v *OAuth2Verifier) AuthCodeURL(state string) string {
	return v.config.AuthCodeURL(state)
}

// Resolve exchanges the authorization code and fetches the provider's
// userinfo. A rejected code or an unusable userinfo payload fails with
// authcore.ErrInvalidArtifact.
func (v *OAuth2Verifier) Resolve(ctx context.Context, code string) (*authcore.ExternalIdentity, error) {
	token, err := v.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(authcore.ErrInvalidArtifact, err)
	}

	info, err := v.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	subject, email, err := v.extract(info)
	if err != nil {
		return nil, errors.Join(authcore.ErrInvalidArtifact, err)
	}

	return &authcore.ExternalIdentity{
		Provider:  v.provider,
		SubjectID: subject,
		Email:     email,
	}, nil
}

func (v *OAuth2Verifier) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned status %d", authcore.ErrInvalidArtifact, resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Join(authcore.ErrInvalidArtifact, err)
	}
	return info, nil
}

// defaultExtract reads the conventional "id" and "email" fields. Numeric
// ids (GitHub) are rendered in their JSON form.
func defaultExtract(info map[string]any) (string, string, error) {
	subject := stringField(info, "id")
	if subject == "" {
		subject = stringField(info, "sub")
	}
	if subject == "" {
		return "", "", fmt.Errorf("userinfo has no subject id")
	}

	email := stringField(info, "email")
	if email == "" {
		return "", "", fmt.Errorf("userinfo has no email")
	}
	return subject, email, nil
}

func stringField(info map[string]any, key string) string {
	switch v := info[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
