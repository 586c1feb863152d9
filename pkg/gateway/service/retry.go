package service

import (
	"context"
	"time"

	"flightgate.dev/pkg/gateway/registry"
)

type retryProvider struct {
	maxRetries int
	backoff    time.Duration
	logger     Logger
	metrics    Metrics

	Forwarder
}

// Forward makes up to maxRetries+1 sequential attempts. The wait between attempts ends early
// when ctx is done, in which case the last failure is returned.
func (rp *retryProvider) Forward(ctx context.Context, svc registry.ServiceDescriptor, req *ProxyRequest) (*ProxyResponse, error) {
	var (
		resp *ProxyResponse
		err  error
	)

	for attempt := 0; attempt <= rp.maxRetries; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, rp.backoff); waitErr != nil {
				return nil, err
			}

			rp.recordRetry(ctx, svc, req, attempt, err)
		}

		resp, err = rp.Forwarder.Forward(ctx, svc, req)
		if !isTransient(err) || ctx.Err() != nil {
			return resp, err
		}
	}

	return resp, err
}

func (rp *retryProvider) recordRetry(ctx context.Context, svc registry.ServiceDescriptor, req *ProxyRequest, attempt int,
	cause error) {
	if rp.logger != nil {
		rp.logger.Debugf("retrying %s %s on %s (attempt %d of %d): %v",
			req.Method, req.Path, svc.DisplayName, attempt+1, rp.maxRetries+1, cause)
	}

	if rp.metrics != nil {
		rp.metrics.IncrementCounter(ctx, "app_gateway_retries_total", "service", svc.DisplayName)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
