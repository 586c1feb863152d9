// Package health reports the liveness of the gateway itself and of every registered downstream service.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"flightgate.dev/pkg/gateway/registry"
	"flightgate.dev/pkg/gateway/service"
)

const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDegraded = "degraded"

	probePath = "/health"
	// DefaultProbeTimeout bounds each downstream health probe.
	DefaultProbeTimeout = 3 * time.Second

	serviceUpGauge = "app_gateway_service_up"
)

// ServiceHealth is the outcome of one probe.
type ServiceHealth struct {
	Name         string `json:"-"`
	Status       string `json:"status"`
	ResponseTime string `json:"responseTime"`
	URL          string `json:"url"`
	Error        string `json:"error,omitempty"`
}

// AggregateHealth is up only when every service is up.
type AggregateHealth struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services"`
}

type Memory struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
	Unit  string `json:"unit"`
}

type GatewayHealth struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Memory    Memory  `json:"memory"`
}

type Logger interface {
	Warnf(format string, args ...any)
}

type Metrics interface {
	SetGauge(name string, value float64, labels ...string)
}

// Aggregator probes the services of a registry concurrently.
type Aggregator struct {
	services  []registry.ServiceDescriptor
	forwarder service.Forwarder
	logger    Logger
	metrics   Metrics

	timeout time.Duration
	limit   int
	started time.Time
}

type Option func(*Aggregator)

// WithProbeTimeout overrides DefaultProbeTimeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithConcurrency caps the number of probes in flight. The default probes all services at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.limit = n
		}
	}
}

// New returns an Aggregator for the services of reg. forwarder must not retry: a probe is a
// single GET bounded by the probe timeout.
func New(reg *registry.Registry, forwarder service.Forwarder, logger Logger, metrics Metrics, opts ...Option) *Aggregator {
	services := reg.Services()

	a := &Aggregator{
		services:  services,
		forwarder: forwarder,
		logger:    logger,
		metrics:   metrics,
		timeout:   DefaultProbeTimeout,
		limit:     len(services),
		started:   time.Now(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// CheckAll probes every service and never fails; an unreachable service is reported as down.
// It takes about as long as the slowest probe, and never longer than the probe timeout.
func (a *Aggregator) CheckAll(ctx context.Context) AggregateHealth {
	results := make([]ServiceHealth, len(a.services))

	var g errgroup.Group

	if a.limit > 0 {
		g.SetLimit(a.limit)
	}

	for i, svc := range a.services {
		i, svc := i, svc

		g.Go(func() error {
			results[i] = a.check(ctx, svc)

			return nil
		})
	}

	_ = g.Wait()

	agg := AggregateHealth{
		Status:    StatusUp,
		Timestamp: timestamp(),
		Services:  make(map[string]ServiceHealth, len(results)),
	}

	for _, r := range results {
		agg.Services[r.Name] = r

		if r.Status != StatusUp {
			agg.Status = StatusDegraded
		}
	}

	return agg
}

func (a *Aggregator) check(ctx context.Context, svc registry.ServiceDescriptor) ServiceHealth {
	probe := svc
	probe.Timeout = a.timeout

	start := time.Now()

	resp, err := a.forwarder.Forward(ctx, probe, &service.ProxyRequest{Method: http.MethodGet, Path: probePath})

	h := ServiceHealth{
		Name:         svc.DisplayName,
		Status:       StatusUp,
		ResponseTime: fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		URL:          svc.BaseURL,
	}

	switch {
	case err != nil:
		h.Status = StatusDown
		h.Error = probeError(err)
	case resp.StatusCode != http.StatusOK:
		h.Status = StatusDown
		h.Error = "Service unavailable"
	}

	if h.Status == StatusDown && a.logger != nil {
		a.logger.Warnf("health check failed for %s: %s", svc.DisplayName, h.Error)
	}

	if a.metrics != nil {
		up := 0.0
		if h.Status == StatusUp {
			up = 1
		}

		a.metrics.SetGauge(serviceUpGauge, up, "service", svc.DisplayName)
	}

	return h
}

// probeError prefers the "error" field a failing service reports about itself.
func probeError(err error) string {
	var upstream service.ErrorUpstream
	if !errors.As(err, &upstream) {
		return err.Error()
	}

	var body struct {
		Error string `json:"error"`
	}

	if json.Unmarshal(upstream.Body, &body) == nil && body.Error != "" {
		return body.Error
	}

	return "Service unavailable"
}

// Gateway reports the gateway process itself.
func (a *Aggregator) Gateway() GatewayHealth {
	const mb = 1024 * 1024

	var m runtime.MemStats

	runtime.ReadMemStats(&m)

	return GatewayHealth{
		Status:    StatusUp,
		Timestamp: timestamp(),
		Uptime:    time.Since(a.started).Seconds(),
		Memory: Memory{
			Used:  (m.HeapAlloc + mb/2) / mb,
			Total: (m.HeapSys + mb/2) / mb,
			Unit:  "MB",
		},
	}
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
