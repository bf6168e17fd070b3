package middleware

import (
	"context"
	"net/http"

	"3tcapital/goglosas/internal/infrastructure/config"
)

// ExtendedTimeout wraps a handler to apply the extended run timeout. Pipeline
// runs parse hundreds of workbooks and need more time than the default
// WriteTimeout. The extended timeout is applied to the request context.
func ExtendedTimeout(cfg config.HTTPSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), cfg.RunTimeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
