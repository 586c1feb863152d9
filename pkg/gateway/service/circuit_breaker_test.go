package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"flightgate.dev/pkg/gateway/registry"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	failure := ErrorServiceUnavailable{Service: "booking-service"}
	stub := &stubForwarder{errs: []error{failure, failure, failure, failure}}

	cb := newCircuitBreaker(map[string]int{"booking": 2}, time.Hour, stub)
	svc := descriptor("http://booking")

	for i := 0; i < 2; i++ {
		_, err := cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
		require.ErrorIs(t, err, failure)
	}

	_, err := cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})

	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(err))
	assert.Equal(t, 2, stub.count())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	failure := ErrorGatewayTimeout{Service: "booking-service"}
	stub := &stubForwarder{errs: []error{failure, nil, failure, nil}}

	cb := newCircuitBreaker(map[string]int{"BOOKING": 2}, time.Hour, stub)
	svc := descriptor("http://booking")

	for i := 0; i < 4; i++ {
		_, _ = cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
	}

	assert.Equal(t, ClosedState, cb.circuits["BOOKING"].state)
	assert.Equal(t, 4, stub.count())
}

func TestCircuitBreaker_ClientErrorsDoNotCount(t *testing.T) {
	conflict := ErrorUpstream{Service: "booking-service", Status: http.StatusConflict}
	stub := &stubForwarder{errs: []error{conflict, conflict, conflict}}

	cb := newCircuitBreaker(map[string]int{"BOOKING": 1}, time.Hour, stub)

	for i := 0; i < 3; i++ {
		_, err := cb.Forward(context.Background(), descriptor("http://booking"), &ProxyRequest{Method: http.MethodPost})
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}

	assert.Equal(t, 3, stub.count())
}

func TestCircuitBreaker_ClosesWhenProbeSucceeds(t *testing.T) {
	failure := ErrorServiceUnavailable{Service: "booking-service"}
	stub := &stubForwarder{errs: []error{failure}}

	var probes atomic.Int32

	cb := newCircuitBreaker(map[string]int{"BOOKING": 1}, 20*time.Millisecond, stub)
	cb.probe = func(context.Context, registry.ServiceDescriptor) bool {
		return probes.Add(1) > 1
	}

	svc := descriptor("http://booking")

	_, err := cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
	require.ErrorIs(t, err, failure)

	// still inside the interval: no probe, fail fast
	_, err = cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(0), probes.Load())

	time.Sleep(30 * time.Millisecond)

	// first probe fails, circuit stays open
	_, err = cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
	require.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)

	resp, err := cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), probes.Load())
	assert.Equal(t, 2, stub.count())
}

func TestCircuitBreaker_UnconfiguredServicePassesThrough(t *testing.T) {
	failure := ErrorServiceUnavailable{Service: "auth-service"}
	stub := &stubForwarder{errs: []error{failure, failure, failure}}

	cb := newCircuitBreaker(map[string]int{"BOOKING": 1, "AUTH": 0}, time.Hour, stub)
	svc := registry.ServiceDescriptor{LogicalName: "AUTH", DisplayName: "auth-service", BaseURL: "http://auth", Timeout: time.Second}

	for i := 0; i < 3; i++ {
		_, err := cb.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet})
		require.ErrorIs(t, err, failure)
	}

	assert.Equal(t, 3, stub.count())
}

func TestCircuitBreaker_GaugeAndHealthProbe(t *testing.T) {
	var healthy atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case !healthy.Load():
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/api/v1/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f, metrics := newTestForwarder(t, &WithCircuitBreaker{Thresholds: map[string]int{"BOOKING": 1}, Interval: time.Millisecond})
	metrics.EXPECT().RecordHistogram(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	gomock.InOrder(
		metrics.EXPECT().SetGauge("app_gateway_circuit_breaker_state", float64(OpenState), "service", "booking-service"),
		metrics.EXPECT().SetGauge("app_gateway_circuit_breaker_state", float64(ClosedState), "service", "booking-service"),
	)

	svc := descriptor(server.URL)

	_, err := f.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet, Path: "/bookings"})

	var upstream ErrorUpstream
	require.ErrorAs(t, err, &upstream)

	healthy.Store(true)
	time.Sleep(5 * time.Millisecond)

	// the probe closes the circuit and the call reaches the service again
	_, err = f.Forward(context.Background(), svc, &ProxyRequest{Method: http.MethodGet, Path: "/bookings"})
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.Status)
}
