package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"flightgate.dev/pkg/gateway/registry"
)

// circuit states, also the values of app_gateway_circuit_breaker_state.
const (
	ClosedState = iota
	OpenState
)

const (
	circuitStateGauge  = "app_gateway_circuit_breaker_state"
	healthProbePath    = "/health"
	healthProbeTimeout = 3 * time.Second
)

// ErrCircuitOpen is the cause of the ServiceUnavailable error returned while a circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type circuit struct {
	mu           sync.Mutex
	state        int
	failureCount int
	threshold    int
	lastChecked  time.Time
}

type circuitBreaker struct {
	interval time.Duration
	circuits map[string]*circuit
	// probe reports whether svc answers its health endpoint; it replaces the network call in tests.
	probe   func(ctx context.Context, svc registry.ServiceDescriptor) bool
	logger  Logger
	metrics Metrics

	Forwarder
}

func newCircuitBreaker(thresholds map[string]int, interval time.Duration, f Forwarder) *circuitBreaker {
	cb := &circuitBreaker{
		interval:  interval,
		circuits:  make(map[string]*circuit, len(thresholds)),
		Forwarder: f,
	}

	for name, threshold := range thresholds {
		if threshold > 0 {
			cb.circuits[registry.NormalizeName(name)] = &circuit{threshold: threshold}
		}
	}

	if base := extractHTTPForwarder(f); base != nil {
		cb.logger = base.Logger
		cb.metrics = base.Metrics
		cb.probe = base.healthy
	}

	return cb
}

func (cb *circuitBreaker) Forward(ctx context.Context, svc registry.ServiceDescriptor, req *ProxyRequest) (*ProxyResponse, error) {
	c, ok := cb.circuits[svc.LogicalName]
	if !ok {
		return cb.Forwarder.Forward(ctx, svc, req)
	}

	if !cb.allow(ctx, svc, c) {
		return nil, ErrorServiceUnavailable{Service: svc.DisplayName, Err: ErrCircuitOpen}
	}

	resp, err := cb.Forwarder.Forward(ctx, svc, req)

	cb.record(svc, c, err)

	return resp, err
}

// allow lets a call through while the circuit is closed. An open circuit is probed at most
// once per interval and closes again when the probe succeeds.
func (cb *circuitBreaker) allow(ctx context.Context, svc registry.ServiceDescriptor, c *circuit) bool {
	c.mu.Lock()

	if c.state == ClosedState {
		c.mu.Unlock()

		return true
	}

	if time.Since(c.lastChecked) <= cb.interval || cb.probe == nil {
		c.mu.Unlock()

		return false
	}

	c.lastChecked = time.Now()
	c.mu.Unlock()

	if !cb.probe(ctx, svc) {
		return false
	}

	c.mu.Lock()
	cb.reset(svc, c)
	c.mu.Unlock()

	return true
}

func (cb *circuitBreaker) record(svc registry.ServiceDescriptor, c *circuit, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !isTransient(err) {
		c.failureCount = 0

		return
	}

	c.failureCount++

	if c.state == ClosedState && c.failureCount >= c.threshold {
		c.state = OpenState
		c.lastChecked = time.Now()

		if cb.logger != nil {
			cb.logger.Warnf("circuit for %s opened after %d consecutive failures", svc.DisplayName, c.failureCount)
		}

		cb.setGauge(svc, OpenState)
	}
}

// reset must be called with c.mu held.
func (cb *circuitBreaker) reset(svc registry.ServiceDescriptor, c *circuit) {
	if c.state == ClosedState {
		return
	}

	c.state = ClosedState
	c.failureCount = 0

	if cb.logger != nil {
		cb.logger.Warnf("circuit for %s closed, health probe succeeded", svc.DisplayName)
	}

	cb.setGauge(svc, ClosedState)
}

func (cb *circuitBreaker) setGauge(svc registry.ServiceDescriptor, state int) {
	if cb.metrics != nil {
		cb.metrics.SetGauge(circuitStateGauge, float64(state), "service", svc.DisplayName)
	}
}

// healthy probes GET {BaseURL}/api/v1/health with its own short deadline.
func (h *httpForwarder) healthy(ctx context.Context, svc registry.ServiceDescriptor) bool {
	svc.Timeout = healthProbeTimeout

	resp, err := h.Forward(ctx, svc, &ProxyRequest{Method: http.MethodGet, Path: healthProbePath})

	return err == nil && resp.StatusCode == http.StatusOK
}
