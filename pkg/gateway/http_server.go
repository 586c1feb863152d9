package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flightgate.dev/pkg/gateway/config"
	gatewayHTTP "flightgate.dev/pkg/gateway/http"
	"flightgate.dev/pkg/gateway/http/middleware"
	"flightgate.dev/pkg/gateway/logging"
	"flightgate.dev/pkg/gateway/proxy"
)

type httpServer struct {
	router *gatewayHTTP.Router
	port   int
	srv    *http.Server
}

func newHTTPServer(a *App, port int, rateLimiter gatewayHTTP.Middleware, requestTimeout time.Duration) *httpServer {
	r := gatewayHTTP.NewRouter()

	mws := []gatewayHTTP.Middleware{
		middleware.Tracer,
		middleware.RequestID,
		middleware.Logging(a.logger),
		middleware.SecurityHeaders,
		middleware.CORS(middleware.GetConfigs(a.Config)),
		middleware.Metrics(a.metrics),
	}

	if rateLimiter != nil {
		mws = append(mws, rateLimiter)
	}

	mws = append(mws, middleware.RequestTimeout(requestTimeout))

	r.UseMiddleware(mws...)

	a.registerRoutes(r)

	return &httpServer{router: r, port: port}
}

// registerRoutes adds the gateway's own endpoints before the catch-all proxy prefix, so that
// /api/v1/health is answered here and never forwarded.
func (a *App) registerRoutes(r *gatewayHTTP.Router) {
	r.Add(http.MethodGet, "/.well-known/alive", http.HandlerFunc(aliveHandler))
	r.Add(http.MethodGet, "/.well-known/health", http.HandlerFunc(a.servicesHealthHandler))
	r.Add(http.MethodGet, "/api/v1/health", http.HandlerFunc(a.gatewayHealthHandler))
	r.Add(http.MethodGet, "/api/v1/health/services", http.HandlerFunc(a.servicesHealthHandler))

	maxBodySize, err := config.Int(a.Config, "MAX_BODY_SIZE", proxy.DefaultMaxBodySize)
	if err != nil {
		a.logger.Warnf("using the default body limit: %v", err)

		maxBodySize = proxy.DefaultMaxBodySize
	}

	r.AddPrefix("/api/v1/", proxy.NewHandler(proxy.NewDispatcher(a.registry, a.forwarder), a.logger, int64(maxBodySize)))
}

func (s *httpServer) Run(logger logging.Logger) {
	if s.srv != nil {
		logger.Logf("Server already running on port: %d", s.port)

		return
	}

	logger.Logf("Starting gateway on port: %d", s.port)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("error while listening to http server, err: %v", err)
	}
}

func (s *httpServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return ShutdownWithContext(ctx, func(ctx context.Context) error {
		return s.srv.Shutdown(ctx)
	}, s.srv.Close)
}
