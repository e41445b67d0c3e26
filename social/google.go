package social

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/authcore-go/authcore"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google builds a verifier for Google sign-in.
func Google(clientID, clientSecret, redirectURL string) *OAuth2Verifier {
	return &OAuth2Verifier{
		provider: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		userInfoURL: googleUserInfoURL,
		extract:     googleExtract,
	}
}

// googleExtract requires the email to be verified by Google; an
// unverified address cannot substitute for our own verification gate.
func googleExtract(info map[string]any) (string, string, error) {
	subject, email, err := defaultExtract(info)
	if err != nil {
		return "", "", err
	}
	if verified, ok := info["verified_email"].(bool); ok && !verified {
		return "", "", fmt.Errorf("%w: email not verified by provider", authcore.ErrInvalidArtifact)
	}
	return subject, email, nil
}
