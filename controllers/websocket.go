package controllers

import (
	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
	"neurax/services/ws"
)

func (api *API) SetupWebSocketRoutes(se *core.ServeEvent) {
	se.Router.GET("/ws", ws.Handler(api.Hub, api.App.Logger()))
	se.Router.GET("/api/ws/stats", api.wsStats)
}

func (api *API) wsStats(e *core.RequestEvent) error {
	helpers.Success(e, "", map[string]interface{}{
		"clients": api.Hub.ClientCount(),
	})
	return nil
}
