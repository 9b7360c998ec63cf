package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// TimeoutMiddleware puts a deadline on request contexts, skipping any path
// under an exempt prefix. The stream endpoints are exempt: a projection
// stays open as long as its event feed does, and the handler already stops
// on client disconnect. Cancellation is cooperative; handlers must watch
// ctx.Done().
func TimeoutMiddleware(timeout time.Duration, exemptPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
