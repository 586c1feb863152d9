package redis

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"flightgate.dev/pkg/gateway/config"
)

const defaultRedisPort = 6379

// Config describes the Redis instance that backs the distributed rate limiter.
type Config struct {
	HostName string
	Port     int
	Options  *redis.Options
}

// getRedisConfig reads REDIS_HOST, REDIS_PORT, REDIS_USER, REDIS_PASSWORD and REDIS_DB.
// With REDIS_TLS_ENABLED=true the connection uses TLS, optionally verified against REDIS_TLS_CA_CERT.
func getRedisConfig(c config.Config, logger Logger) Config {
	port, err := strconv.Atoi(c.Get("REDIS_PORT"))
	if err != nil {
		port = defaultRedisPort
	}

	db, err := strconv.Atoi(c.Get("REDIS_DB"))
	if err != nil {
		db = 0
	}

	host := c.Get("REDIS_HOST")

	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: c.Get("REDIS_USER"),
		Password: c.Get("REDIS_PASSWORD"),
		DB:       db,
	}

	if c.Get("REDIS_TLS_ENABLED") == "true" {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

		if caCertPath := c.Get("REDIS_TLS_CA_CERT"); caCertPath != "" {
			caCert, err := os.ReadFile(caCertPath)
			if err != nil {
				logger.Errorf("failed to read redis CA cert file: %v", err)
			} else {
				pool := x509.NewCertPool()
				if !pool.AppendCertsFromPEM(caCert) {
					logger.Errorf("redis CA cert %v contains no certificates", caCertPath)
				}

				tlsConfig.RootCAs = pool
			}
		}

		options.TLSConfig = tlsConfig
	}

	return Config{HostName: host, Port: port, Options: options}
}
