package helpers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"neurax/models"
)

type SuccessResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

func Success(e *core.RequestEvent, message string, data interface{}) {
	var successResponse SuccessResponse
	successResponse.Status = true
	successResponse.Message = message
	successResponse.Data = data
	e.JSON(http.StatusOK, successResponse)
}

func Error(e *core.RequestEvent, status int, message string) {
	var errorResponse ErrorResponse
	errorResponse.Status = false
	errorResponse.Message = message
	e.JSON(status, errorResponse)
}

// StatusFor maps domain errors to HTTP statuses. Upstream response bodies are
// never forwarded to the client; callers pass their own message.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
