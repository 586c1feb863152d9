package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightgate.dev/pkg/gateway/logging"
)

func TestWithConnectionPool_Validate(t *testing.T) {
	tests := []struct {
		desc   string
		config WithConnectionPool
		err    error
	}{
		{"zero values", WithConnectionPool{}, nil},
		{"negative max idle", WithConnectionPool{MaxIdleConns: -1}, errNegativeMaxIdleConns},
		{"negative per host", WithConnectionPool{MaxIdleConnsPerHost: -1}, errNegativeMaxIdleConnsPerHost},
		{"negative timeout", WithConnectionPool{IdleConnTimeout: -time.Second}, errNegativeIdleConnTimeout},
	}

	for i, tc := range tests {
		err := tc.config.Validate()

		if tc.err == nil {
			assert.NoError(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)

			continue
		}

		assert.ErrorIs(t, err, tc.err, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestWithConnectionPool_AppliesTransport(t *testing.T) {
	f := NewForwarder(logging.NewMockLogger(logging.INFO), nil,
		&WithConnectionPool{MaxIdleConnsPerHost: 20},
		&WithRetry{MaxRetries: 2})

	base := extractHTTPForwarder(f)
	require.NotNil(t, base)

	transport, ok := base.Client.Transport.(*http.Transport)
	require.True(t, ok)

	assert.Equal(t, 100, transport.MaxIdleConns)
	assert.Equal(t, 20, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, transport.IdleConnTimeout)
}

func TestWithConnectionPool_AfterWrappers(t *testing.T) {
	f := NewForwarder(logging.NewMockLogger(logging.INFO), nil,
		&WithRetry{MaxRetries: 2},
		&WithCircuitBreaker{Thresholds: map[string]int{"BOOKING": 3}, Interval: time.Second},
		&WithConnectionPool{MaxIdleConns: 10, IdleConnTimeout: time.Minute})

	transport, ok := extractHTTPForwarder(f).Client.Transport.(*http.Transport)
	require.True(t, ok)

	assert.Equal(t, 10, transport.MaxIdleConns)
	assert.Equal(t, time.Minute, transport.IdleConnTimeout)
}

func TestWithConnectionPool_InvalidLeavesDefaultTransport(t *testing.T) {
	f := NewForwarder(logging.NewMockLogger(logging.INFO), nil, &WithConnectionPool{MaxIdleConns: -5})

	assert.Nil(t, extractHTTPForwarder(f).Client.Transport)
}
