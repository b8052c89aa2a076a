package controllers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"neurax/config"
	"neurax/helpers"
	"neurax/models"
	"neurax/services/ai"
	"neurax/services/market"
	"neurax/services/twitter"
	"neurax/services/ws"
	"neurax/stores"
	"neurax/tasks"
)

const sessionCookie = "neurax_session"

// API bundles everything the route handlers need. One instance is built in
// main and shared by all Setup*Routes methods.
type API struct {
	App        *pocketbase.PocketBase
	Config     *config.Config
	Stores     *stores.Stores
	Handshakes stores.HandshakeStore
	Signer     *twitter.Signer
	Flow       *twitter.OAuthFlow
	Flow2      *twitter.OAuth2Flow
	Fetcher    *helpers.Fetcher
	Policy     helpers.RetryPolicy
	Hub        *ws.Hub
	AI         *ai.Service
	Market     *market.Service
	Publisher  *tasks.Publisher
	Metrics    *tasks.MetricsRefresher
}

// requireUser resolves the session cookie to a user. On failure it has
// already written the 401 response; callers just return.
func (api *API) requireUser(e *core.RequestEvent) (*models.User, bool) {
	cookie, err := e.Request.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		helpers.Error(e, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	userID, ok := api.Stores.Sessions.Resolve(cookie.Value)
	if !ok {
		helpers.Error(e, http.StatusUnauthorized, "Session expired")
		return nil, false
	}
	user, err := api.Stores.Users.Get(userID)
	if err != nil {
		helpers.Error(e, http.StatusUnauthorized, "Session expired")
		return nil, false
	}
	return user, true
}

// sessionUser is requireUser without the 401, for routes that behave
// differently for signed-in visitors.
func (api *API) sessionUser(e *core.RequestEvent) (*models.User, bool) {
	cookie, err := e.Request.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	userID, ok := api.Stores.Sessions.Resolve(cookie.Value)
	if !ok {
		return nil, false
	}
	user, err := api.Stores.Users.Get(userID)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (api *API) setSession(e *core.RequestEvent, userID int64) {
	token := api.Stores.Sessions.Create(userID)
	http.SetCookie(e.Response, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stores.DefaultSessionTTL.Seconds()),
	})
}

func (api *API) clearSession(e *core.RequestEvent) {
	if cookie, err := e.Request.Cookie(sessionCookie); err == nil {
		api.Stores.Sessions.Destroy(cookie.Value)
	}
	http.SetCookie(e.Response, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
