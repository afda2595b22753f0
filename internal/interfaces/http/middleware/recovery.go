package middleware

import (
	"fmt"
	"net/http"

	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

// Recovery turns handler panics into 500 responses instead of dropped
// connections.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic in HTTP handler", fmt.Errorf("%v", rec),
						"path", r.URL.Path,
						"method", r.Method,
					)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
