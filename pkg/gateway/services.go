package gateway

import (
	"time"

	"flightgate.dev/pkg/gateway/config"
	"flightgate.dev/pkg/gateway/health"
	"flightgate.dev/pkg/gateway/service"
)

const (
	defaultMaxRetries      = 2
	defaultRetryBackoff    = time.Second
	defaultCircuitInterval = 30 * time.Second
)

// initForwarders builds the proxy forwarder and the health aggregator. Health probes use their
// own forwarder without retries so a dead service costs one probe timeout, not three.
func (a *App) initForwarders() error {
	pool, err := a.connectionPool()
	if err != nil {
		return err
	}

	breaker, err := a.circuitBreaker()
	if err != nil {
		return err
	}

	maxRetries, err := config.Int(a.Config, "RETRY_MAX", defaultMaxRetries)
	if err != nil {
		return err
	}

	backoff, err := config.Duration(a.Config, "RETRY_BACKOFF", defaultRetryBackoff)
	if err != nil {
		return err
	}

	// the pool goes first: it has to see the base forwarder
	a.forwarder = service.NewForwarder(a.logger, a.metrics, pool, breaker,
		&service.WithRetry{MaxRetries: maxRetries, Backoff: backoff})

	probeTimeout, err := config.Duration(a.Config, "HEALTH_PROBE_TIMEOUT", health.DefaultProbeTimeout)
	if err != nil {
		return err
	}

	concurrency, err := config.Int(a.Config, "HEALTH_PROBE_CONCURRENCY", 0)
	if err != nil {
		return err
	}

	probes := service.NewForwarder(a.logger, a.metrics, pool)
	a.health = health.New(a.registry, probes, a.logger, a.metrics,
		health.WithProbeTimeout(probeTimeout), health.WithConcurrency(concurrency))

	return nil
}

func (a *App) connectionPool() (*service.WithConnectionPool, error) {
	maxIdle, err := config.Int(a.Config, "SERVICE_MAX_IDLE_CONNS", 0)
	if err != nil {
		return nil, err
	}

	maxIdlePerHost, err := config.Int(a.Config, "SERVICE_MAX_IDLE_CONNS_PER_HOST", 0)
	if err != nil {
		return nil, err
	}

	var idleTimeout time.Duration

	if a.Config.Get("SERVICE_IDLE_CONN_TIMEOUT") != "" {
		if idleTimeout, err = config.Duration(a.Config, "SERVICE_IDLE_CONN_TIMEOUT", 0); err != nil {
			return nil, err
		}
	}

	pool := &service.WithConnectionPool{
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     idleTimeout,
	}

	return pool, pool.Validate()
}

// circuitBreaker reads <NAME>_CIRCUIT_BREAKER_THRESHOLD for every registered service.
func (a *App) circuitBreaker() (*service.WithCircuitBreaker, error) {
	thresholds := make(map[string]int)

	for _, svc := range a.registry.Services() {
		threshold, err := config.Int(a.Config, svc.LogicalName+"_CIRCUIT_BREAKER_THRESHOLD", 0)
		if err != nil {
			return nil, err
		}

		if threshold > 0 {
			thresholds[svc.LogicalName] = threshold
			a.logger.Infof("circuit breaker for %s opens after %d failures", svc.DisplayName, threshold)
		}
	}

	interval, err := config.Duration(a.Config, "CIRCUIT_BREAKER_INTERVAL", defaultCircuitInterval)
	if err != nil {
		return nil, err
	}

	return &service.WithCircuitBreaker{Thresholds: thresholds, Interval: interval}, nil
}
