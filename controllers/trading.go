package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
	"neurax/models"
)

func (api *API) SetupTradingRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/trading/calls", api.listTradingCalls)
	se.Router.POST("/api/trading/generate-call", api.generateTradingCall)
	se.Router.POST("/api/trading/close-call/{id}", api.closeTradingCall)
}

func (api *API) listTradingCalls(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	calls, err := api.Stores.Trading.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("trading call list failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load trading calls")
		return nil
	}
	helpers.Success(e, "", calls)
	return nil
}

// generateTradingCall creates a call from live market data plus an
// announcement post, and pushes both over the trading topic.
func (api *API) generateTradingCall(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	var req struct {
		Asset string `json:"asset"`
	}
	if err := e.BindBody(&req); err != nil {
		helpers.Error(e, http.StatusBadRequest, "Invalid request body")
		return nil
	}

	call, err := api.AI.GenerateTradingCall(e.Request.Context(), user.ID, req.Asset)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Could not generate trading call")
		return nil
	}

	announcement := fmt.Sprintf("🚨 New %s call: %s\nEntry: $%s | Target: $%s\n#crypto #%s",
		call.Position, call.Asset, call.EntryPrice, call.TargetPrice, strings.ToLower(call.Asset))
	post, err := api.Stores.Posts.Create(&models.Post{
		UserID:      user.ID,
		Content:     announcement,
		AIGenerated: true,
		Status:      models.PostStatusDraft,
	})
	if err != nil {
		api.App.Logger().Warn("announcement post create failed", "userId", user.ID, "error", err)
	} else {
		call.PostID = post.ID
	}

	saved, err := api.Stores.Trading.Create(call)
	if err != nil {
		api.App.Logger().Error("trading call save failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not save trading call")
		return nil
	}

	api.Hub.SendTradingUpdate(user.ID, saved)
	helpers.Success(e, "Trading call created", saved)
	return nil
}

// closeTradingCall closes the call at the given price and records realized
// P/L: LONG (cur-entry)/entry, SHORT the inverse, as a percentage with two
// decimals.
func (api *API) closeTradingCall(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	id, ok := pathID(e)
	if !ok {
		return nil
	}

	var req struct {
		CurrentPrice string `json:"currentPrice"`
	}
	if err := e.BindBody(&req); err != nil || req.CurrentPrice == "" {
		helpers.Error(e, http.StatusBadRequest, "currentPrice is required")
		return nil
	}
	current, err := strconv.ParseFloat(req.CurrentPrice, 64)
	if err != nil || current <= 0 {
		helpers.Error(e, http.StatusBadRequest, "currentPrice must be a positive number")
		return nil
	}

	call, err := api.Stores.Trading.Get(user.ID, id)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Trading call not found")
		return nil
	}

	entry, err := strconv.ParseFloat(call.EntryPrice, 64)
	if err != nil || entry == 0 {
		helpers.Error(e, http.StatusInternalServerError, "Trading call has no valid entry price")
		return nil
	}

	profitLoss := ProfitLossPercent(call.Position, entry, current)
	closed, err := api.Stores.Trading.Close(user.ID, id, req.CurrentPrice, profitLoss)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Trading call not found")
		return nil
	}

	summary := fmt.Sprintf("✅ Closed %s %s at $%s (%s%%)\n#crypto #%s",
		closed.Position, closed.Asset, req.CurrentPrice, profitLoss, strings.ToLower(closed.Asset))
	if _, err := api.Stores.Posts.Create(&models.Post{
		UserID:      user.ID,
		Content:     summary,
		AIGenerated: true,
		Status:      models.PostStatusDraft,
	}); err != nil {
		api.App.Logger().Warn("closing post create failed", "userId", user.ID, "error", err)
	}

	api.Hub.SendTradingUpdate(user.ID, closed)
	helpers.Success(e, "Trading call closed", closed)
	return nil
}

// ProfitLossPercent computes the realized move for a closed position as a
// percentage string with two decimals. SHORT positions profit when the
// price falls.
func ProfitLossPercent(position string, entry, current float64) string {
	pct := (current - entry) / entry * 100
	if position == models.PositionShort {
		pct = -pct
	}
	return strconv.FormatFloat(pct, 'f', 2, 64)
}
