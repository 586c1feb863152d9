package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader identifies one inbound request across the gateway and the services it calls.
const RequestIDHeader = "X-Request-ID"

// RequestID makes sure every request carries an X-Request-ID, generating one when the client sent none.
// The id is echoed on the response and stays on the request headers so it is forwarded downstream.
func RequestID(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}

		w.Header().Set(RequestIDHeader, id)

		inner.ServeHTTP(w, r)
	})
}
