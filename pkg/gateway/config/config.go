// Package config reads gateway settings from the process environment and .env files.
package config

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type Config interface {
	Get(string) string
	GetOrDefault(string, string) string
}

// Duration reads key as a duration. Plain integers are taken as milliseconds so that
// values like SERVICE_TIMEOUT=5000 keep working next to "5s".
func Duration(c Config, key string, def time.Duration) (time.Duration, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			return 0, errors.Errorf("%s must be positive, got %q", key, raw)
		}

		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration for %s", key)
	}

	if d <= 0 {
		return 0, errors.Errorf("%s must be positive, got %q", key, raw)
	}

	return d, nil
}

// Int reads key as a non-negative integer.
func Int(c Config, key string, def int) (int, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer for %s", key)
	}

	if v < 0 {
		return 0, errors.Errorf("%s must not be negative, got %d", key, v)
	}

	return v, nil
}

// Bool reads key as a boolean, returning def when it is unset or unparsable.
func Bool(c Config, key string, def bool) bool {
	v, err := strconv.ParseBool(c.Get(key))
	if err != nil {
		return def
	}

	return v
}
