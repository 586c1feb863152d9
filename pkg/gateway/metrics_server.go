package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flightgate.dev/pkg/gateway/logging"
)

type metricServer struct {
	port int
	srv  *http.Server
}

func newMetricServer(port int) *metricServer {
	return &metricServer{port: port}
}

func (m *metricServer) Run(logger logging.Logger, handler http.Handler) {
	logger.Logf("Starting metrics server on port: %d", m.port)

	m.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("error while listening to metrics server, err: %v", err)
	}
}

func (m *metricServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}

	return ShutdownWithContext(ctx, func(ctx context.Context) error {
		return m.srv.Shutdown(ctx)
	}, nil)
}
