package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/okdriver/backend/internal/api/response"
)

// Recoverer turns a panic in a handler into a logged 500 response
func Recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					log.ErrorContext(r.Context(), "panic recovered",
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)

					response.InternalError(w, "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
