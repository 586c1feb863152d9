// Package gateway wires the registry, forwarder, health aggregator and HTTP middleware into a
// runnable API gateway with its own metrics listener.
package gateway

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"flightgate.dev/pkg/gateway/config"
	"flightgate.dev/pkg/gateway/health"
	"flightgate.dev/pkg/gateway/http/middleware"
	"flightgate.dev/pkg/gateway/logging"
	"flightgate.dev/pkg/gateway/metrics"
	"flightgate.dev/pkg/gateway/metrics/exporters"
	gatewayRedis "flightgate.dev/pkg/gateway/redis"
	"flightgate.dev/pkg/gateway/registry"
	"flightgate.dev/pkg/gateway/service"
)

const (
	configLocation = "./configs"

	defaultAppName     = "api-gateway"
	defaultHTTPPort    = 3000
	defaultMetricsPort = 2121
)

// App is the gateway process.
type App struct {
	// Config can be used by applications to fetch custom configurations from environment or file.
	Config config.Config

	logger   logging.Logger
	metrics  metrics.Manager
	gatherer prometheus.Gatherer

	registry  *registry.Registry
	forwarder service.Forwarder
	health    *health.Aggregator

	redis          *gatewayRedis.Redis
	rateLimitStore middleware.RateLimiterStore
	tracerProvider *sdktrace.TracerProvider

	httpServer   *httpServer
	metricServer *metricServer

	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
	shutdownErr     error
}

// New creates an App from ./configs and the process environment. It terminates the process
// when the configuration is invalid.
func New() *App {
	logger := logging.NewLogger(logging.INFO)
	cfg := config.NewEnvFile(configLocation, logger)

	app, err := NewWithConfig(cfg, logger)
	if err != nil {
		logger.Fatalf("could not start gateway: %v", err)
	}

	return app
}

// NewWithConfig creates an App from c. Nothing listens until Run is called.
func NewWithConfig(c config.Config, logger logging.Logger) (*App, error) {
	logger.ChangeLevel(logging.GetLevelFromString(c.GetOrDefault("LOG_LEVEL", "INFO")))

	a := &App{Config: c, logger: logger}

	if err := a.initMetrics(); err != nil {
		return nil, err
	}

	if err := a.initTracer(); err != nil {
		return nil, err
	}

	reg, err := registry.FromConfig(c)
	if err != nil {
		return nil, err
	}

	a.registry = reg

	for _, svc := range reg.Services() {
		logger.Infof("routing %s to %s (timeout %v)", svc.DisplayName, svc.BaseURL, svc.Timeout)
	}

	if err = a.initForwarders(); err != nil {
		return nil, err
	}

	requestTimeout, err := config.Duration(c, "REQUEST_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	httpPort, err := config.Int(c, "HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, err
	}

	metricsPort, err := config.Int(c, "METRICS_PORT", defaultMetricsPort)
	if err != nil {
		return nil, err
	}

	a.shutdownTimeout, err = getShutdownTimeoutFromConfig(c)
	if err != nil {
		return nil, err
	}

	rateLimiter, err := a.rateLimiter()
	if err != nil {
		return nil, err
	}

	a.httpServer = newHTTPServer(a, httpPort, rateLimiter, requestTimeout)
	a.metricServer = newMetricServer(metricsPort)

	return a, nil
}

func (a *App) initMetrics() error {
	meter, gatherer, err := exporters.Prometheus(a.Config.GetOrDefault("APP_NAME", defaultAppName),
		a.Config.GetOrDefault("APP_VERSION", "dev"))
	if err != nil {
		return err
	}

	a.metrics = metrics.NewMetricsManager(meter, a.logger)
	a.gatherer = gatherer

	registerMetrics(a.metrics)

	return nil
}

func registerMetrics(m metrics.Manager) {
	metrics.RegisterSystemGauges(m)

	buckets := []float64{.001, .003, .005, .01, .02, .03, .05, .1, .2, .3, .5, .75, 1, 2, 3, 5, 10, 30}

	m.NewHistogram("app_http_response", "Response time of HTTP requests in seconds.", buckets...)
	m.NewHistogram("app_gateway_upstream_response", "Response time of downstream service calls in seconds.", buckets...)

	m.NewCounter("app_gateway_retries_total", "Number of retried downstream calls.")
	m.NewCounter("app_http_rate_limit_exceeded_total", "Number of requests rejected by the rate limiter.")
	m.NewCounter("app_http_rate_limit_errors_total", "Number of rate limiter store failures.")

	m.NewGauge("app_gateway_circuit_breaker_state", "Circuit state per service, 0 closed and 1 open.")
	m.NewGauge("app_gateway_service_up", "Result of the last health probe per service, 1 up and 0 down.")
}

// Run starts the HTTP and metrics listeners and blocks until both have stopped. SIGINT and
// SIGTERM trigger a graceful shutdown.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer done()

		if err := a.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorf("shutdown did not complete: %v", err)
		}
	}()

	wg := sync.WaitGroup{}

	wg.Add(2)

	// the metrics listener comes up first so the first requests are already observed
	go func() {
		defer wg.Done()

		a.metricServer.Run(a.logger, metrics.GetHandler(a.metrics, a.gatherer))
	}()

	go func() {
		defer wg.Done()

		a.httpServer.Run(a.logger)
	}()

	wg.Wait()
}
