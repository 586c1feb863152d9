package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightgate.dev/pkg/gateway/config"
	"flightgate.dev/pkg/gateway/logging"
	"flightgate.dev/pkg/gateway/testutil"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	conf := config.NewMockConfig(map[string]string{
		"REDIS_HOST": mr.Host(),
		"REDIS_PORT": mr.Port(),
	})

	var (
		client *Redis
		err    error
	)

	out := testutil.StdoutOutputForFunc(func() {
		client, err = NewClient(conf, logging.NewMockLogger(logging.DEBUG))
		require.NoError(t, err)

		require.NoError(t, client.Set(context.Background(), "flight:FG-101", "scheduled", 0).Err())
	})

	t.Cleanup(func() { _ = client.Close() })

	val, err := mr.Get("flight:FG-101")
	require.NoError(t, err)

	assert.Equal(t, "scheduled", val)
	assert.Contains(t, out, "connected to redis")
	assert.Contains(t, out, "set")
}

func TestNewClient_MissingHost(t *testing.T) {
	_, err := NewClient(config.NewMockConfig(nil), logging.NewMockLogger(logging.DEBUG))

	assert.ErrorIs(t, err, errMissingHost)
}

func TestNewClient_Unreachable(t *testing.T) {
	port := testutil.GetFreePort(t)

	conf := config.NewMockConfig(map[string]string{
		"REDIS_HOST": "localhost",
		"REDIS_PORT": strconv.Itoa(port),
	})

	_, err := NewClient(conf, logging.NewMockLogger(logging.DEBUG))

	assert.ErrorContains(t, err, "could not connect to redis")
}

func TestGetRedisConfig(t *testing.T) {
	conf := config.NewMockConfig(map[string]string{
		"REDIS_HOST":     "cache.internal",
		"REDIS_USER":     "gateway",
		"REDIS_PASSWORD": "secret",
		"REDIS_DB":       "3",
	})

	c := getRedisConfig(conf, logging.NewMockLogger(logging.DEBUG))

	assert.Equal(t, "cache.internal:6379", c.Options.Addr)
	assert.Equal(t, "gateway", c.Options.Username)
	assert.Equal(t, "secret", c.Options.Password)
	assert.Equal(t, 3, c.Options.DB)
	assert.Nil(t, c.Options.TLSConfig)
}

func TestGetRedisConfig_TLS(t *testing.T) {
	conf := config.NewMockConfig(map[string]string{
		"REDIS_HOST":        "cache.internal",
		"REDIS_TLS_ENABLED": "true",
		"REDIS_TLS_CA_CERT": "/does/not/exist.pem",
	})

	out := testutil.StderrOutputForFunc(func() {
		c := getRedisConfig(conf, logging.NewMockLogger(logging.DEBUG))

		require.NotNil(t, c.Options.TLSConfig)
		assert.Nil(t, c.Options.TLSConfig.RootCAs)
	})

	assert.Contains(t, out, "failed to read redis CA cert file")
}
