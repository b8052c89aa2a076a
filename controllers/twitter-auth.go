package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"neurax/helpers"
	"neurax/models"
	"neurax/services/twitter"
	"neurax/stores"
)

func (api *API) SetupTwitterAuthRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/twitter/auth", api.startLink)
	se.Router.GET("/api/twitter/auth/login", api.startLogin)
	se.Router.GET("/api/auth/twitter/callback", api.oauthCallback)
	se.Router.GET("/api/twitter/diagnostics", api.diagnostics)
	se.Router.GET("/api/twitter/auth2", api.startPKCE)
	se.Router.GET("/api/auth/twitter/callback2", api.pkceCallback)
}

// startLink begins the handshake for a signed-in user linking an account.
func (api *API) startLink(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	return api.startHandshake(e, user.ID, stores.HandshakeModeLink)
}

// startLogin begins the handshake for sign-in-with-Twitter; no session yet.
func (api *API) startLogin(e *core.RequestEvent) error {
	return api.startHandshake(e, 0, stores.HandshakeModeLogin)
}

func (api *API) startHandshake(e *core.RequestEvent, userID int64, mode string) error {
	result, err := api.Flow.RequestToken(e.Request.Context())
	if err != nil {
		api.App.Logger().Error("request token failed", "error", err)
		helpers.Error(e, helpers.StatusFor(err), "Could not start Twitter authorization")
		return nil
	}

	err = api.Handshakes.Put(e.Request.Context(), stores.Handshake{
		RequestToken:  result.Token,
		RequestSecret: result.TokenSecret,
		UserID:        userID,
		Mode:          mode,
	})
	if err != nil {
		api.App.Logger().Error("handshake store failed", "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not start Twitter authorization")
		return nil
	}

	helpers.Success(e, "", map[string]string{"url": api.Flow.AuthorizationURL(result.Token)})
	return nil
}

// oauthCallback completes the handshake. Every failure branch redirects to
// the login page with an opaque error code; details stay in the server log.
func (api *API) oauthCallback(e *core.RequestEvent) error {
	query := e.Request.URL.Query()

	if query.Get("error") != "" || query.Get("denied") != "" {
		api.App.Logger().Warn("oauth callback denied",
			"error", query.Get("error"), "denied", query.Get("denied"))
		return e.Redirect(http.StatusFound, "/login?error=twitter_auth_error")
	}

	token := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if token == "" || verifier == "" {
		return e.Redirect(http.StatusFound, "/login?error=invalid_oauth_response")
	}

	handshake, err := api.Handshakes.Take(e.Request.Context(), token)
	if err != nil {
		api.App.Logger().Warn("oauth callback with unknown request token", "error", err)
		return e.Redirect(http.StatusFound, "/login?error=missing_oauth_token_secret")
	}

	access, err := api.Flow.AccessToken(e.Request.Context(), handshake.RequestToken, handshake.RequestSecret, verifier)
	if err != nil {
		api.App.Logger().Error("access token exchange failed", "error", err)
		return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
	}

	return api.finishLink(e, handshake, access.UserID, access.ScreenName, access.Token, access.TokenSecret)
}

// finishLink resolves the platform user for fresh account credentials and
// attaches them. Shared by the 1.0a and PKCE callbacks.
func (api *API) finishLink(e *core.RequestEvent, handshake stores.Handshake, twitterID, screenName, accessToken, accessSecret string) error {
	var user *models.User

	if handshake.Mode == stores.HandshakeModeLink && handshake.UserID != 0 {
		u, err := api.Stores.Users.Get(handshake.UserID)
		if err != nil {
			api.App.Logger().Error("link callback for missing user", "userId", handshake.UserID, "error", err)
			return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
		}
		user = u
	} else {
		u, err := api.userForTwitterID(twitterID, screenName)
		if err != nil {
			api.App.Logger().Error("login callback user resolution failed", "error", err)
			return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
		}
		user = u
	}

	_, err := api.Stores.Accounts.Upsert(&models.TwitterAccount{
		UserID:            user.ID,
		TwitterID:         twitterID,
		TwitterUsername:   screenName,
		AccessToken:       accessToken,
		AccessTokenSecret: accessSecret,
	}, false)
	if err != nil {
		api.App.Logger().Error("account upsert failed", "userId", user.ID, "error", err)
		return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
	}

	if err := api.Stores.Users.SetTwitterConnected(user.ID, true); err != nil {
		api.App.Logger().Warn("twitter_connected update failed", "userId", user.ID, "error", err)
	}

	api.setSession(e, user.ID)
	return e.Redirect(http.StatusFound, "/dashboard")
}

// userForTwitterID finds the owner of a previously linked account or
// registers a fresh user around the Twitter identity.
func (api *API) userForTwitterID(twitterID, screenName string) (*models.User, error) {
	if acct, err := api.Stores.Accounts.FindByTwitterID(twitterID); err == nil {
		return api.Stores.Users.Get(acct.UserID)
	}

	username := screenName
	if _, err := api.Stores.Users.GetByUsername(username); err == nil {
		username = fmt.Sprintf("%s_%s", screenName, twitterID)
	}

	// Provider-registered users get a random password; they sign in through
	// the provider, not the password form.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	email := fmt.Sprintf("%s@twitter.local", strings.ToLower(username))
	return api.Stores.Users.Create(username, email, string(hash))
}

// diagnostics reports which provider credentials are present, masked so the
// response never leaks secret material.
func (api *API) diagnostics(e *core.RequestEvent) error {
	helpers.Success(e, "", map[string]string{
		"apiKey":      maskCredential(api.Config.TwitterAPIKey),
		"apiSecret":   maskCredential(api.Config.TwitterAPISecret),
		"callbackUrl": api.Config.TwitterCallbackURL,
		"clientId":    maskCredential(api.Config.TwitterClientID),
	})
	return nil
}

func maskCredential(value string) string {
	if value == "" {
		return "missing"
	}
	if len(value) <= 4 {
		return "set"
	}
	return "set (" + value[:4] + "...)"
}

// startPKCE begins the OAuth 2.0 PKCE variant of linking. The verifier is
// parked under the state value, mirroring the request-token secret.
func (api *API) startPKCE(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	state := uuid.NewString()
	verifier := twitter.NewVerifier()
	err := api.Handshakes.Put(e.Request.Context(), stores.Handshake{
		RequestToken:  state,
		RequestSecret: verifier,
		UserID:        user.ID,
		Mode:          stores.HandshakeModeLink,
	})
	if err != nil {
		api.App.Logger().Error("handshake store failed", "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not start Twitter authorization")
		return nil
	}

	helpers.Success(e, "", map[string]string{"url": api.Flow2.AuthorizationURL(state, verifier)})
	return nil
}

func (api *API) pkceCallback(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	if query.Get("error") != "" {
		return e.Redirect(http.StatusFound, "/login?error=twitter_auth_error")
	}
	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		return e.Redirect(http.StatusFound, "/login?error=invalid_oauth_response")
	}

	handshake, err := api.Handshakes.Take(e.Request.Context(), state)
	if err != nil {
		return e.Redirect(http.StatusFound, "/login?error=missing_oauth_token_secret")
	}

	token, err := api.Flow2.Exchange(e.Request.Context(), code, handshake.RequestSecret)
	if err != nil {
		api.App.Logger().Error("pkce exchange failed", "error", err)
		return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
	}

	profile, err := api.fetchV2Profile(e, token.AccessToken)
	if err != nil {
		api.App.Logger().Error("v2 profile fetch failed", "error", err)
		return e.Redirect(http.StatusFound, "/login?error=oauth1_token_error")
	}

	// Bearer-linked accounts have no OAuth1 token secret; v1.1-only
	// operations will report them as not configured.
	return api.finishLink(e, handshake, profile.ID, profile.Username, token.AccessToken, "")
}

type v2Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (api *API) fetchV2Profile(e *core.RequestEvent, bearer string) (*v2Profile, error) {
	result, err := helpers.RequestJSON[struct {
		Data v2Profile `json:"data"`
	}](e.Request.Context(), api.Fetcher, http.MethodGet,
		"https://api.twitter.com/2/users/me",
		map[string]string{"Authorization": "Bearer " + bearer}, nil, nil)
	if err != nil {
		return nil, err
	}
	if result.Data.ID == "" {
		return nil, fmt.Errorf("provider response missing user id")
	}
	return &result.Data, nil
}
