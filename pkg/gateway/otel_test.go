package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"flightgate.dev/pkg/gateway/logging"
)

func zipkinCollector(t *testing.T) (url string, auth <-chan string) {
	t.Helper()

	received := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case received <- r.Header.Get("Authorization"):
		default:
		}

		w.WriteHeader(http.StatusAccepted)
	}))

	t.Cleanup(server.Close)

	return server.URL + "/api/v2/spans", received
}

func exportOneSpan(t *testing.T, exporter sdktrace.SpanExporter) {
	t.Helper()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer("gateway-test").Start(context.Background(), "GET /api/v1/flights")
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestBuildExporter_SendsAuthorization(t *testing.T) {
	url, auth := zipkinCollector(t)

	exporter, err := buildExporter(logging.NewMockLogger(logging.ERROR), "zipkin", url, "Bearer collector-key")
	require.NoError(t, err)

	exportOneSpan(t, exporter)

	assert.Equal(t, "Bearer collector-key", <-auth)
}

func TestBuildExporter_WithoutAuthorization(t *testing.T) {
	url, auth := zipkinCollector(t)

	exporter, err := buildExporter(logging.NewMockLogger(logging.ERROR), "Zipkin", url, "")
	require.NoError(t, err)

	exportOneSpan(t, exporter)

	assert.Empty(t, <-auth)
}

func TestAuthTransport_LeavesCallerRequestUntouched(t *testing.T) {
	var seen string

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
	}))

	t.Cleanup(server.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := (&authTransport{header: "Basic Zmxp", next: http.DefaultTransport}).RoundTrip(req)
	require.NoError(t, err)

	_ = resp.Body.Close()

	assert.Equal(t, "Basic Zmxp", seen)
	assert.Empty(t, req.Header.Get("Authorization"))
}
