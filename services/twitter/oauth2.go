package twitter

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuth2Flow is the OAuth 2.0 PKCE variant of account linking, used for v2
// endpoints that do not accept OAuth 1.0a user context. It yields bearer
// tokens only; accounts linked this way cannot use the v1.1 media endpoint.
type OAuth2Flow struct {
	Config *oauth2.Config
}

func NewOAuth2Flow(clientID, clientSecret, redirectURL string) *OAuth2Flow {
	return &OAuth2Flow{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier. The caller parks it until
// the callback, like the request-token secret in the 1.0a flow.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthorizationURL builds the consent URL carrying the S256 challenge for
// the given verifier.
func (f *OAuth2Flow) AuthorizationURL(state, verifier string) string {
	return f.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the callback code plus parked verifier for tokens.
func (f *OAuth2Flow) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return f.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}
