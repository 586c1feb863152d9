package gateway

import (
	"context"
	"errors"
	"time"

	"flightgate.dev/pkg/gateway/config"
)

const shutDownTimeout = 30 * time.Second

// Shutdown stops the listeners, then releases the rate limiter, Redis and the tracer provider.
// Pending spans are flushed before it returns. Calls after the first return its result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})

	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	var err error

	if a.httpServer != nil {
		err = errors.Join(err, a.httpServer.Shutdown(ctx))
	}

	if a.metricServer != nil {
		err = errors.Join(err, a.metricServer.Shutdown(ctx))
	}

	if a.rateLimitStore != nil {
		a.rateLimitStore.StopCleanup()
	}

	if a.redis != nil {
		err = errors.Join(err, a.redis.Close())
	}

	if a.tracerProvider != nil {
		err = errors.Join(err, a.tracerProvider.Shutdown(ctx))
	}

	if err == nil {
		a.logger.Info("Application shutdown complete")
	}

	return err
}

// ShutdownWithContext runs shutdownFunc and waits for it until ctx is done. When ctx ends first,
// forceCloseFunc is called if it is not nil.
func ShutdownWithContext(ctx context.Context, shutdownFunc func(ctx context.Context) error, forceCloseFunc func() error) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- shutdownFunc(ctx)
	}()

	select {
	case <-ctx.Done():
		err := ctx.Err()

		if forceCloseFunc != nil {
			err = errors.Join(err, forceCloseFunc())
		}

		return err
	case err := <-errCh:
		return err
	}
}

func getShutdownTimeoutFromConfig(cfg config.Config) (time.Duration, error) {
	value := cfg.GetOrDefault("SHUTDOWN_GRACE_PERIOD", "30s")

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return shutDownTimeout, err
	}

	return timeout, nil
}
