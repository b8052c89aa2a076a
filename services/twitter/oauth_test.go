package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurax/helpers"
	"neurax/models"
)

func newTestFlow(handler http.Handler) (*OAuthFlow, *httptest.Server) {
	server := httptest.NewServer(handler)
	fetcher := helpers.NewFetcher(helpers.RetryPolicy{MaxRetries: 0})
	flow := NewOAuthFlow(NewSigner("ck", "cs"), fetcher, "https://app.example.com/api/twitter/callback")
	flow.RequestTokenURL = server.URL + "/oauth/request_token"
	flow.AuthenticateURL = server.URL + "/oauth/authenticate"
	flow.AccessTokenURL = server.URL + "/oauth/access_token"
	return flow, server
}

func TestRequestTokenHappyPath(t *testing.T) {
	var gotAuth string
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("oauth_token=rt-1&oauth_token_secret=rs-1&oauth_callback_confirmed=true"))
	}))
	defer server.Close()

	result, err := flow.RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-1", result.Token)
	assert.Equal(t, "rs-1", result.TokenSecret)

	assert.True(t, strings.HasPrefix(gotAuth, "OAuth "))
	assert.Contains(t, gotAuth, "oauth_callback=")
	assert.Contains(t, gotAuth, "oauth_signature=")
	assert.NotContains(t, gotAuth, "oauth_token=")
}

func TestRequestTokenUnconfirmedCallback(t *testing.T) {
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=rt-1&oauth_token_secret=rs-1&oauth_callback_confirmed=false"))
	}))
	defer server.Close()

	_, err := flow.RequestToken(context.Background())
	var authErr *models.UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Body, "oauth_callback_confirmed")
}

func TestRequestTokenProviderRejection(t *testing.T) {
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Failed to validate oauth signature and token"))
	}))
	defer server.Close()

	_, err := flow.RequestToken(context.Background())
	var authErr *models.UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "oauth signature")
}

func TestRequestTokenMalformedResponse(t *testing.T) {
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=rt-1"))
	}))
	defer server.Close()

	_, err := flow.RequestToken(context.Background())
	var authErr *models.UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Body, "oauth_token_secret")
}

func TestRequestTokenWithoutCredentials(t *testing.T) {
	fetcher := helpers.NewFetcher(helpers.RetryPolicy{})
	flow := NewOAuthFlow(NewSigner("", ""), fetcher, "https://app.example.com/cb")

	_, err := flow.RequestToken(context.Background())
	assert.ErrorIs(t, err, models.ErrNotConfigured)
}

func TestAuthorizationURL(t *testing.T) {
	flow := NewOAuthFlow(NewSigner("ck", "cs"), nil, "")

	assert.Equal(t,
		"https://api.twitter.com/oauth/authenticate?oauth_token=rt%2B1",
		flow.AuthorizationURL("rt+1"),
	)
}

func TestAccessTokenHappyPath(t *testing.T) {
	var gotAuth string
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("oauth_token=at-1&oauth_token_secret=as-1&user_id=12345&screen_name=neura_max"))
	}))
	defer server.Close()

	result, err := flow.AccessToken(context.Background(), "rt-1", "rs-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", result.Token)
	assert.Equal(t, "as-1", result.TokenSecret)
	assert.Equal(t, "12345", result.UserID)
	assert.Equal(t, "neura_max", result.ScreenName)

	assert.Contains(t, gotAuth, `oauth_token="rt-1"`)
	assert.Contains(t, gotAuth, `oauth_verifier="verifier-1"`)
}

func TestAccessTokenMissingIdentity(t *testing.T) {
	flow, server := newTestFlow(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=at-1&oauth_token_secret=as-1"))
	}))
	defer server.Close()

	_, err := flow.AccessToken(context.Background(), "rt-1", "rs-1", "verifier-1")
	var authErr *models.UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Body, "user_id")
}
