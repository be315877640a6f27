package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/service"
)

// writeServiceError maps a service error to its status code. Client-facing
// kinds carry a safe message; anything else is logged and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(w, err.Error())
	default:
		log.ErrorContext(r.Context(), fallback,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		response.InternalError(w, fallback)
	}
}
