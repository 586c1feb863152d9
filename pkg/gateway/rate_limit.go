package gateway

import (
	"flightgate.dev/pkg/gateway/config"
	gatewayHTTP "flightgate.dev/pkg/gateway/http"
	"flightgate.dev/pkg/gateway/http/middleware"
	gatewayRedis "flightgate.dev/pkg/gateway/redis"
)

// rateLimiter returns nil when RATE_LIMIT_ENABLED is false. Buckets live in Redis when
// REDIS_HOST is set so that all gateway instances share them; a Redis that cannot be reached at
// startup falls back to per-instance buckets.
func (a *App) rateLimiter() (gatewayHTTP.Middleware, error) {
	if !config.Bool(a.Config, "RATE_LIMIT_ENABLED", true) {
		a.logger.Infof("rate limiting is disabled")

		return nil, nil
	}

	tiers := middleware.DefaultRateLimitTiers()

	if raw := a.Config.Get("RATE_LIMIT_TIERS"); raw != "" {
		parsed, err := middleware.ParseRateLimitTiers(raw)
		if err != nil {
			return nil, err
		}

		tiers = parsed
	}

	a.rateLimitStore = middleware.NewMemoryRateLimiterStore()

	if a.Config.Get("REDIS_HOST") != "" {
		client, err := gatewayRedis.NewClient(a.Config, a.logger)
		if err != nil {
			a.logger.Errorf("rate limiting falls back to in-memory buckets: %v", err)
		} else {
			a.redis = client
			a.rateLimitStore = middleware.NewRedisRateLimiterStore(client)
		}
	}

	return middleware.RateLimiter(middleware.RateLimiterConfig{
		Tiers:          tiers,
		Store:          a.rateLimitStore,
		TrustedProxies: config.Bool(a.Config, "RATE_LIMIT_TRUSTED_PROXIES", false),
	}, a.logger, a.metrics), nil
}
