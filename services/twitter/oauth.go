package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"neurax/helpers"
	"neurax/models"
)

const (
	requestTokenURL = "https://api.twitter.com/oauth/request_token"
	authenticateURL = "https://api.twitter.com/oauth/authenticate"
	accessTokenURL  = "https://api.twitter.com/oauth/access_token"
)

// OAuthFlow drives the three-legged OAuth 1.0a handshake. It is stateless;
// callers park the request-token secret between the legs.
type OAuthFlow struct {
	Signer      *Signer
	Fetcher     *helpers.Fetcher
	CallbackURL string

	// Endpoint overrides for tests; zero values mean the real provider.
	RequestTokenURL string
	AuthenticateURL string
	AccessTokenURL  string
}

func NewOAuthFlow(signer *Signer, fetcher *helpers.Fetcher, callbackURL string) *OAuthFlow {
	return &OAuthFlow{
		Signer:          signer,
		Fetcher:         fetcher,
		CallbackURL:     callbackURL,
		RequestTokenURL: requestTokenURL,
		AuthenticateURL: authenticateURL,
		AccessTokenURL:  accessTokenURL,
	}
}

type RequestTokenResult struct {
	Token       string
	TokenSecret string
}

// RequestToken performs the first leg. The callback URL is part of the
// signed material, so a mismatch with the app settings fails here rather
// than after the user authorizes.
func (f *OAuthFlow) RequestToken(ctx context.Context) (*RequestTokenResult, error) {
	header, err := f.Signer.AuthorizationHeader(http.MethodPost, f.RequestTokenURL,
		map[string]string{"oauth_callback": f.CallbackURL}, "", "")
	if err != nil {
		return nil, err
	}

	body, err := f.post(ctx, f.RequestTokenURL, header)
	if err != nil {
		return nil, err
	}

	values, err := helpers.ParseForm(body, "oauth_token", "oauth_token_secret")
	if err != nil {
		return nil, &models.UpstreamAuthError{StatusCode: http.StatusOK, Body: err.Error()}
	}
	if values.Get("oauth_callback_confirmed") != "true" {
		return nil, &models.UpstreamAuthError{
			StatusCode: http.StatusOK,
			Body:       "oauth_callback_confirmed missing or false",
		}
	}
	return &RequestTokenResult{
		Token:       values.Get("oauth_token"),
		TokenSecret: values.Get("oauth_token_secret"),
	}, nil
}

// AuthorizationURL is where the browser is sent to approve the app.
func (f *OAuthFlow) AuthorizationURL(requestToken string) string {
	return f.AuthenticateURL + "?oauth_token=" + url.QueryEscape(requestToken)
}

type AccessTokenResult struct {
	Token       string
	TokenSecret string
	UserID      string
	ScreenName  string
}

// AccessToken performs the third leg, exchanging the authorized request
// token plus verifier for long-lived account credentials.
func (f *OAuthFlow) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (*AccessTokenResult, error) {
	header, err := f.Signer.AuthorizationHeader(http.MethodPost, f.AccessTokenURL,
		map[string]string{"oauth_verifier": verifier}, requestToken, requestSecret)
	if err != nil {
		return nil, err
	}

	body, err := f.post(ctx, f.AccessTokenURL, header)
	if err != nil {
		return nil, err
	}

	values, err := helpers.ParseForm(body, "oauth_token", "oauth_token_secret", "user_id", "screen_name")
	if err != nil {
		return nil, &models.UpstreamAuthError{StatusCode: http.StatusOK, Body: err.Error()}
	}
	return &AccessTokenResult{
		Token:       values.Get("oauth_token"),
		TokenSecret: values.Get("oauth_token_secret"),
		UserID:      values.Get("user_id"),
		ScreenName:  values.Get("screen_name"),
	}, nil
}

// post sends a signed handshake request. Provider rejections surface as
// *models.UpstreamAuthError so callers can distinguish handshake failures
// from ordinary API failures.
func (f *OAuthFlow) post(ctx context.Context, rawURL, authHeader string) ([]byte, error) {
	header := http.Header{}
	header.Set("Authorization", authHeader)

	resp, err := f.Fetcher.Do(ctx, http.MethodPost, rawURL, header, nil)
	if err != nil {
		var apiErr *models.UpstreamAPIError
		if errors.As(err, &apiErr) {
			return nil, &models.UpstreamAuthError{StatusCode: apiErr.StatusCode, Body: apiErr.Body}
		}
		return nil, err
	}
	return resp.Body, nil
}
