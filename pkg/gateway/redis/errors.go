package redis

import "errors"

var errMissingHost = errors.New("REDIS_HOST is not configured")
