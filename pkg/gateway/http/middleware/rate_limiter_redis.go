package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var errInvalidRedisResult = errors.New("unexpected result from rate limit script")

// tokenBucketScript refills every tier's bucket and takes one token from each, but only when all of
// them hold one. KEYS: one bucket per tier. ARGV: now in microseconds, then burst, requests per
// window and window in seconds for each key. Returns {denied, retry_after_ms} where denied is the
// 1-based index of the first empty bucket, 0 when the tokens were taken.
//
//nolint:gosec // This is a Lua script for Redis, not credentials
const tokenBucketScript = `
local now = tonumber(ARGV[1])
local refilled = {}
local denied = 0
local retry_after = 0

for i, key in ipairs(KEYS) do
local base = 2 + (i - 1) * 3
local burst = tonumber(ARGV[base])
local requests = tonumber(ARGV[base + 1])
local window_seconds = tonumber(ARGV[base + 2])
local refill_rate = requests / window_seconds

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])

if tokens == nil then
tokens = burst
last_refill = now
end

local delta = math.max(0, (now - last_refill)/1e6)
local new_tokens = math.min(burst, tokens + delta * refill_rate)
refilled[i] = {new_tokens, window_seconds}

if denied == 0 and new_tokens < 1 then
denied = i
retry_after = math.ceil((1 - new_tokens) / refill_rate * 1000)
end
end

if denied == 0 then
for i, key in ipairs(KEYS) do
redis.call("HSET", key, "tokens", refilled[i][1] - 1, "last_refill", now)
redis.call("EXPIRE", key, math.ceil(refilled[i][2] * 2))
end
end

return {denied, retry_after}
`

const redisKeyPrefix = "flightgate:ratelimit:"

// redisRateLimiterStore shares buckets between every gateway instance pointed at the same Redis.
type redisRateLimiterStore struct {
	client redis.Scripter
	script *redis.Script
}

// NewRedisRateLimiterStore returns a store backed by client. Expiry is left to Redis, so cleanup is a no-op.
func NewRedisRateLimiterStore(client redis.Scripter) RateLimiterStore {
	return &redisRateLimiterStore{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (s *redisRateLimiterStore) Allow(ctx context.Context, key string, tiers []RateLimitTier) (int, time.Duration, error) {
	keys := make([]string, 0, len(tiers))
	args := make([]any, 0, 1+3*len(tiers))
	args = append(args, time.Now().UnixMicro())

	for _, tier := range tiers {
		keys = append(keys, redisBucketKey(key, tier))
		args = append(args, tier.Limit, tier.Limit, tier.Window.Seconds())
	}

	res, err := s.script.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return -1, 0, err
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return -1, 0, fmt.Errorf("%w: %v", errInvalidRedisResult, res)
	}

	denied, err := toInt64(values[0])
	if err != nil {
		return -1, 0, err
	}

	retryAfterMs, err := toInt64(values[1])
	if err != nil {
		return -1, 0, err
	}

	return int(denied) - 1, time.Duration(retryAfterMs) * time.Millisecond, nil
}

// redisBucketKey hash-tags the client so all of its tiers share one cluster slot.
func redisBucketKey(client string, tier RateLimitTier) string {
	return redisKeyPrefix + "{" + client + "}:" + tier.Name
}

func (*redisRateLimiterStore) StartCleanup(context.Context) {}

func (*redisRateLimiterStore) StopCleanup() {}

func toInt64(i any) (int64, error) {
	switch v := i.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(math.Round(v)), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("%w: %T", errInvalidRedisResult, i)
	}
}
