package controllers

import (
	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
)

// Ping is the health check endpoint.
func Ping(e *core.RequestEvent) error {
	helpers.Success(e, "Ping success", nil)
	return nil
}
