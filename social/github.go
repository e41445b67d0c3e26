package social

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserInfoURL = "https://api.github.com/user"

// GitHub builds a verifier for GitHub sign-in. The user scope includes
// the account's primary email; accounts with a private email resolve to
// no email and fail with ErrInvalidArtifact, since the engine needs an
// address to key the identity.
func GitHub(clientID, clientSecret, redirectURL string) *OAuth2Verifier {
	return &OAuth2Verifier{
		provider: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		userInfoURL: githubUserInfoURL,
		extract:     defaultExtract,
	}
}
