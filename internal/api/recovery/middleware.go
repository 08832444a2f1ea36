// Package recovery converts handler panics into JSON 500 responses.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api/respond"
)

// Middleware returns a mux middleware that intercepts panics from downstream
// handlers, logs them through log with the request detail and a stack trace,
// and answers HTTP 500.
func Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Str("remote", r.RemoteAddr).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")

					respond.WriteInternalError(w, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
