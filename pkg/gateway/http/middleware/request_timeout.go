package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout puts a deadline of d on every request context. Handlers that block on the
// context, such as the proxy, give up once it passes. A non-positive d disables the deadline.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		if d <= 0 {
			return inner
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			inner.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
