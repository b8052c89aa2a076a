package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
	"neurax/models"
)

func (api *API) SetupMetricsRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/metrics", api.latestMetrics)
	se.Router.GET("/api/metrics/history", api.metricsHistory)
	se.Router.POST("/api/system/update-metrics", api.refreshMetrics)
}

// latestMetrics returns the most recent snapshot, or an initialized default
// for users whose first refresh has not run yet.
func (api *API) latestMetrics(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	latest, err := api.Stores.Metrics.Latest(user.ID)
	if errors.Is(err, models.ErrNotFound) {
		helpers.Success(e, "", &models.Metrics{UserID: user.ID, AIEfficiency: 90})
		return nil
	}
	if err != nil {
		api.App.Logger().Error("metrics fetch failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load metrics")
		return nil
	}
	helpers.Success(e, "", latest)
	return nil
}

func (api *API) metricsHistory(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	limit := 30
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	history, err := api.Stores.Metrics.History(user.ID, limit)
	if err != nil {
		api.App.Logger().Error("metrics history failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load metrics")
		return nil
	}
	helpers.Success(e, "", history)
	return nil
}

// refreshMetrics pulls a fresh snapshot through the user's default account.
func (api *API) refreshMetrics(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	if err := api.Metrics.RefreshUser(e.Request.Context(), user.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			helpers.Error(e, http.StatusBadRequest, "No linked Twitter account")
			return nil
		}
		api.App.Logger().Error("metrics refresh failed", "userId", user.ID, "error", err)
		helpers.Error(e, helpers.StatusFor(err), "Metrics refresh failed")
		return nil
	}

	latest, err := api.Stores.Metrics.Latest(user.ID)
	if err != nil {
		helpers.Error(e, http.StatusInternalServerError, "Could not load metrics")
		return nil
	}
	helpers.Success(e, "Metrics updated", latest)
	return nil
}
