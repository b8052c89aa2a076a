package controllers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
)

func (api *API) SetupTwitterAccountRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/twitter/accounts", api.listAccounts)
	se.Router.POST("/api/twitter/accounts/default/{id}", api.setDefaultAccount)
	se.Router.PATCH("/api/twitter/accounts/{id}", api.renameAccount)
	se.Router.DELETE("/api/twitter/accounts/{id}", api.deleteAccount)
}

func (api *API) listAccounts(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	accounts, err := api.Stores.Accounts.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("account list failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load accounts")
		return nil
	}
	helpers.Success(e, "", accounts)
	return nil
}

func (api *API) setDefaultAccount(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	id, ok := pathID(e)
	if !ok {
		return nil
	}

	account, err := api.Stores.Accounts.SetDefault(user.ID, id)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Account not found")
		return nil
	}
	helpers.Success(e, "Default account updated", account)
	return nil
}

func (api *API) renameAccount(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	id, ok := pathID(e)
	if !ok {
		return nil
	}

	var req struct {
		AccountName string `json:"accountName"`
	}
	if err := e.BindBody(&req); err != nil || req.AccountName == "" {
		helpers.Error(e, http.StatusBadRequest, "accountName is required")
		return nil
	}

	account, err := api.Stores.Accounts.Rename(user.ID, id, req.AccountName)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Account not found")
		return nil
	}
	helpers.Success(e, "Account renamed", account)
	return nil
}

func (api *API) deleteAccount(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	id, ok := pathID(e)
	if !ok {
		return nil
	}

	if err := api.Stores.Accounts.Delete(user.ID, id); err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Account not found")
		return nil
	}

	remaining, err := api.Stores.Accounts.ListByUser(user.ID)
	if err == nil && len(remaining) == 0 {
		if err := api.Stores.Users.SetTwitterConnected(user.ID, false); err != nil {
			api.App.Logger().Warn("twitter_connected update failed", "userId", user.ID, "error", err)
		}
	}

	helpers.Success(e, "Account removed", nil)
	return nil
}

// pathID parses the {id} path segment, writing the 400 itself on bad input.
func pathID(e *core.RequestEvent) (int64, bool) {
	raw := e.Request.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		helpers.Error(e, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
