package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router is responsible for routing HTTP request.
type Router struct {
	mux.Router
}

type Middleware func(handler http.Handler) http.Handler

// NewRouter creates a Router whose unmatched requests get a JSON 404 instead of the
// plain text mux default.
func NewRouter() *Router {
	r := &Router{Router: *mux.NewRouter().StrictSlash(false)}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		NewResponder(w, req.Method).Respond(nil, ErrorInvalidRoute{Method: req.Method, Path: req.URL.Path})
	})

	return r
}

// Add registers handler for method and the exact pattern, wrapped with OpenTelemetry instrumentation.
func (rou *Router) Add(method, pattern string, handler http.Handler) {
	h := otelhttp.NewHandler(handler, "gateway-router")
	rou.Router.NewRoute().Methods(method).Path(pattern).Handler(h)
}

// AddPrefix registers handler for every method under prefix. Routes added with Add take
// precedence when they were registered first.
func (rou *Router) AddPrefix(prefix string, handler http.Handler) {
	h := otelhttp.NewHandler(handler, "gateway-proxy")
	rou.Router.NewRoute().PathPrefix(prefix).Handler(h)
}

// UseMiddleware registers middlewares to the router.
func (rou *Router) UseMiddleware(mws ...Middleware) {
	middlewares := make([]mux.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		middlewares = append(middlewares, mux.MiddlewareFunc(m))
	}

	rou.Use(middlewares...)
}
