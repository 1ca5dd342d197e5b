package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/llm"
	"github.com/jonathan/application-assistant/internal/types"
)

// messageNotConfigured is the client-facing message for a missing provider credential.
const messageNotConfigured = "API key not configured"

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the message shown to callers for a server-side error.
// Internal details stay in the logs.
func clientMessage(err error, fallback string) string {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return messageNotConfigured
	default:
		return fallback
	}
}
