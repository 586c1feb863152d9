package middleware

import (
	"net/http"
	"strings"
)

const (
	allowOrigin      = "Access-Control-Allow-Origin"
	allowHeaders     = "Access-Control-Allow-Headers"
	allowMethods     = "Access-Control-Allow-Methods"
	allowCredentials = "Access-Control-Allow-Credentials"
	exposeHeaders    = "Access-Control-Expose-Headers"
	maxAge           = "Access-Control-Max-Age"
)

// corsDefaults are applied for every header the configuration leaves unset.
//
//nolint:gochecknoglobals // read-only table
var corsDefaults = map[string]string{
	allowOrigin:      defaultFrontendURL,
	allowHeaders:     "Content-Type, Authorization, X-Requested-With",
	allowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	allowCredentials: "true",
}

// CORS adds the cross-origin headers to every response and answers preflight requests itself.
// An OPTIONS request without Access-Control-Request-Method is not a preflight and is passed on.
func CORS(middlewareConfigs map[string]string) func(inner http.Handler) http.Handler {
	headers := make(map[string]string, len(corsDefaults)+2)

	for k, v := range corsDefaults {
		headers[k] = v
	}

	for k, v := range middlewareConfigs {
		headers[k] = v
	}

	origins := strings.Split(headers[allowOrigin], ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setCORSHeaders(w, r, headers, origins)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			inner.ServeHTTP(w, r)
		})
	}
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, headers map[string]string, origins []string) {
	h := w.Header()

	h.Set(allowOrigin, matchOrigin(r.Header.Get("Origin"), origins))
	h.Add("Vary", "Origin")

	for _, k := range []string{allowHeaders, allowMethods, allowCredentials, exposeHeaders, maxAge} {
		if v := headers[k]; v != "" {
			h.Set(k, v)
		}
	}
}

// matchOrigin echoes the request origin when it is one of the allowed ones, otherwise the first
// configured origin is sent so that browsers reject the response.
func matchOrigin(origin string, allowed []string) string {
	for _, o := range allowed {
		if o == "*" || o == origin {
			if origin == "" {
				return o
			}

			return origin
		}
	}

	return allowed[0]
}
