package testutil

import (
	"fmt"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetFreePort asks the kernel for a free open port that is ready to use for tests.
func GetFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "Failed to get a free port.")

	port := listener.Addr().(*net.TCPAddr).Port

	require.NoError(t, listener.Close(), "Failed to release the free port.")

	return port
}

// ServerConfigs holds the addresses the gateway listeners were told to bind to.
type ServerConfigs struct {
	HTTPPort    int
	HTTPHost    string
	MetricsPort int
	MetricsHost string
}

// NewServerConfigs picks free ports for the HTTP and metrics listeners and exports them
// as HTTP_PORT and METRICS_PORT for the duration of the test.
func NewServerConfigs(t *testing.T) *ServerConfigs {
	t.Helper()

	httpPort := GetFreePort(t)
	metricsPort := GetFreePort(t)

	t.Setenv("HTTP_PORT", strconv.Itoa(httpPort))
	t.Setenv("METRICS_PORT", strconv.Itoa(metricsPort))

	return &ServerConfigs{
		HTTPPort:    httpPort,
		HTTPHost:    fmt.Sprintf("http://localhost:%d", httpPort),
		MetricsPort: metricsPort,
		MetricsHost: fmt.Sprintf("http://localhost:%d", metricsPort),
	}
}
