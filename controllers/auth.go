package controllers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"neurax/helpers"
	"neurax/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (api *API) SetupAuthRoutes(se *core.ServeEvent) {
	se.Router.POST("/api/auth/register", api.register)
	se.Router.POST("/api/auth/login", api.login)
	se.Router.POST("/api/auth/logout", api.logout)
	se.Router.GET("/api/auth/user", api.currentUser)
}

func (api *API) register(e *core.RequestEvent) error {
	var req registerRequest
	if err := e.BindBody(&req); err != nil {
		helpers.Error(e, http.StatusBadRequest, "Invalid request body")
		return nil
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		helpers.Error(e, http.StatusBadRequest, "Username, email and a password of at least 8 characters are required")
		return nil
	}

	if _, err := api.Stores.Users.GetByUsername(req.Username); err == nil {
		helpers.Error(e, http.StatusConflict, "Username already taken")
		return nil
	}
	if _, err := api.Stores.Users.GetByEmail(req.Email); err == nil {
		helpers.Error(e, http.StatusConflict, "Email already registered")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.App.Logger().Error("password hash failed", "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Registration failed")
		return nil
	}

	user, err := api.Stores.Users.Create(req.Username, req.Email, string(hash))
	if err != nil {
		api.App.Logger().Error("user create failed", "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Registration failed")
		return nil
	}

	api.setSession(e, user.ID)
	helpers.Success(e, "Registered", user)
	return nil
}

func (api *API) login(e *core.RequestEvent) error {
	var req loginRequest
	if err := e.BindBody(&req); err != nil {
		helpers.Error(e, http.StatusBadRequest, "Invalid request body")
		return nil
	}

	user, err := api.Stores.Users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		helpers.Error(e, http.StatusUnauthorized, "Invalid username or password")
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		helpers.Error(e, http.StatusUnauthorized, "Invalid username or password")
		return nil
	}

	api.setSession(e, user.ID)
	helpers.Success(e, "Logged in", user)
	return nil
}

func (api *API) logout(e *core.RequestEvent) error {
	api.clearSession(e)
	helpers.Success(e, "Logged out", nil)
	return nil
}

// currentUser returns the session user together with their linked accounts
// and default handle, which the dashboard shell needs on every load.
func (api *API) currentUser(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	accounts, err := api.Stores.Accounts.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("account list failed", "userId", user.ID, "error", err)
		accounts = []models.TwitterAccount{}
	}

	var defaultUsername string
	for _, acct := range accounts {
		if acct.IsDefault {
			defaultUsername = acct.TwitterUsername
			break
		}
	}

	helpers.Success(e, "", map[string]interface{}{
		"user":            user,
		"accounts":        accounts,
		"defaultUsername": defaultUsername,
	})
	return nil
}
