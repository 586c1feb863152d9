package service

import "time"

// Options decorate a Forwarder. They are applied in the order they are passed to NewForwarder,
// so the last option is the outermost one.
type Options interface {
	AddOption(Forwarder) Forwarder
}

// WithRetry retries transient failures up to MaxRetries times, waiting Backoff between attempts.
type WithRetry struct {
	MaxRetries int
	Backoff    time.Duration
}

func (w *WithRetry) AddOption(f Forwarder) Forwarder {
	rp := &retryProvider{
		maxRetries: w.MaxRetries,
		backoff:    w.Backoff,
		Forwarder:  f,
	}

	if base := extractHTTPForwarder(f); base != nil {
		rp.logger = base.Logger
		rp.metrics = base.Metrics
	}

	return rp
}

// WithCircuitBreaker opens a per-service circuit after Thresholds[logicalName] consecutive
// transient failures. Services without a positive threshold are never short-circuited.
type WithCircuitBreaker struct {
	Thresholds map[string]int
	Interval   time.Duration
}

func (w *WithCircuitBreaker) AddOption(f Forwarder) Forwarder {
	return newCircuitBreaker(w.Thresholds, w.Interval, f)
}

// extractHTTPForwarder finds the base forwarder below any decorators of this package.
func extractHTTPForwarder(f Forwarder) *httpForwarder {
	switch v := f.(type) {
	case *httpForwarder:
		return v
	case *retryProvider:
		return extractHTTPForwarder(v.Forwarder)
	case *circuitBreaker:
		return extractHTTPForwarder(v.Forwarder)
	default:
		return nil
	}
}
