package controllers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
)

func (api *API) SetupCryptoRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/crypto/market", api.marketOverview)
	se.Router.GET("/api/crypto/price/{symbol}", api.assetPrice)
}

func (api *API) marketOverview(e *core.RequestEvent) error {
	limit := 10
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	coins, err := api.Market.TopCoins(e.Request.Context(), limit)
	if err != nil {
		api.App.Logger().Error("market overview failed", "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load market data")
		return nil
	}
	helpers.Success(e, "", coins)
	return nil
}

func (api *API) assetPrice(e *core.RequestEvent) error {
	symbol := e.Request.PathValue("symbol")
	price, err := api.Market.Price(e.Request.Context(), symbol)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Unsupported asset")
		return nil
	}
	helpers.Success(e, "", map[string]interface{}{"symbol": symbol, "usd": price})
	return nil
}
