package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	gatewayHTTP "flightgate.dev/pkg/gateway/http"
)

var (
	errInvalidTier      = errors.New("rate limit tier must look like name:limit:window")
	errInvalidTierLimit = errors.New("rate limit tier limit must be positive")
	errNoTiers          = errors.New("at least one rate limit tier is required")
)

// RateLimitTier allows Limit requests per Window for every client.
type RateLimitTier struct {
	Name   string
	Limit  int
	Window time.Duration
}

func (t RateLimitTier) perSecond() float64 {
	return float64(t.Limit) / t.Window.Seconds()
}

// DefaultRateLimitTiers returns the short, medium and long tiers applied to every client IP.
func DefaultRateLimitTiers() []RateLimitTier {
	return []RateLimitTier{
		{Name: "short", Limit: 10, Window: time.Second},
		{Name: "medium", Limit: 100, Window: time.Minute},
		{Name: "long", Limit: 1000, Window: time.Hour},
	}
}

// ParseRateLimitTiers reads a comma separated list such as "short:10:1s,medium:100:1m".
func ParseRateLimitTiers(s string) ([]RateLimitTier, error) {
	var tiers []RateLimitTier

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) != 3 || fields[0] == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidTier, part)
		}

		limit, err := strconv.Atoi(fields[1])
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidTierLimit, part)
		}

		window, err := time.ParseDuration(fields[2])
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidTier, part)
		}

		tiers = append(tiers, RateLimitTier{Name: fields[0], Limit: limit, Window: window})
	}

	if len(tiers) == 0 {
		return nil, errNoTiers
	}

	return tiers, nil
}

// RateLimiterConfig holds configuration for rate limiting.
//
// Only enable TrustedProxies when the gateway sits behind a proxy that sets X-Forwarded-For;
// otherwise clients can pick their own bucket by sending the header.
type RateLimiterConfig struct {
	Tiers          []RateLimitTier
	Store          RateLimiterStore // defaults to an in-memory store
	TrustedProxies bool
}

// Validate checks if the configuration values are valid.
func (c RateLimiterConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return errNoTiers
	}

	for _, t := range c.Tiers {
		if t.Limit <= 0 || t.Window <= 0 {
			return fmt.Errorf("%w: %s", errInvalidTierLimit, t.Name)
		}
	}

	return nil
}

// getIP extracts the client IP address from the request.
// If trustProxies is false, only RemoteAddr is used to prevent IP spoofing.
func getIP(r *http.Request, trustProxies bool) string {
	if trustProxies {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// isExempt reports whether path is a probe endpoint that must never be throttled.
func isExempt(path string) bool {
	return strings.HasPrefix(path, "/.well-known/") || path == "/api/v1/health" || strings.HasPrefix(path, "/api/v1/health/")
}

// RateLimiter rejects a request with 429 as soon as one tier is exhausted for the client.
// Store failures let the request through.
func RateLimiter(config RateLimiterConfig, logger logger, m metrics) func(http.Handler) http.Handler {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid rate limiter config: %v", err))
	}

	if config.Store == nil {
		config.Store = NewMemoryRateLimiterStore()
	}

	// runs for the application lifetime; the application stops it on shutdown.
	config.Store.StartCleanup(context.Background())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			key := getIP(r, config.TrustedProxies)
			if key == "" {
				key = "unknown"
			}

			denied, retryAfter, err := config.Store.Allow(r.Context(), key, config.Tiers)
			if err != nil {
				if logger != nil {
					logger.Error(fmt.Sprintf("rate limiter store error, allowing request: %v", err))
				}

				if m != nil {
					m.IncrementCounter(r.Context(), "app_http_rate_limit_errors_total")
				}

				next.ServeHTTP(w, r)

				return
			}

			if denied >= 0 {
				tier := config.Tiers[denied]

				// at least one second so that clients do not retry immediately
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(retryAfter.Seconds())))))

				if m != nil {
					m.IncrementCounter(r.Context(), "app_http_rate_limit_exceeded_total",
						"tier", tier.Name, "method", r.Method)
				}

				gatewayHTTP.NewResponder(w, r.Method).Respond(nil, gatewayHTTP.ErrorTooManyRequests{Tier: tier.Name})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
