// Package ratelimit bounds petition signing attempts per contact identifier
// inside a rolling window.
//
// The production limiter keeps counters in Redis so the check survives
// process restarts and is shared across replicas. Deployments without Redis
// fall back to counting recent signature rows in the store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndIncrLuaScript atomically sums the counters for every supplied
// identifier key and, when under the limit, increments each of them. Doing
// the check and increment in one script keeps concurrent requests from both
// sneaking under the ceiling.
const checkAndIncrLuaScript = `
local limit = tonumber(ARGV[1])
local windowSeconds = tonumber(ARGV[2])

local total = 0
for i = 1, #KEYS do
    total = total + tonumber(redis.call("GET", KEYS[i]) or "0")
end

if total >= limit then
    return 0
end

for i = 1, #KEYS do
    local v = redis.call("INCR", KEYS[i])
    if v == 1 then
        redis.call("EXPIRE", KEYS[i], windowSeconds)
    end
end

return 1
`

// RedisLimiter implements signing.RateLimiter on Redis counters with a
// fixed window per identifier.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int

	checkAndIncrScript *redis.Script
}

// NewRedisLimiter creates a Redis-backed limiter. The limit applies to the
// sum of attempts across all identifiers on a submission.
func NewRedisLimiter(client *redis.Client, window time.Duration, limit int) *RedisLimiter {
	return &RedisLimiter{
		client:             client,
		window:             window,
		limit:              limit,
		checkAndIncrScript: redis.NewScript(checkAndIncrLuaScript),
	}
}

// Allow reports whether another signing attempt is permitted for the given
// identifiers and records the attempt when it is.
func (l *RedisLimiter) Allow(ctx context.Context, phone, email string) (bool, error) {
	keys := identifierKeys(phone, email)
	if len(keys) == 0 {
		return true, nil
	}

	res, err := l.checkAndIncrScript.Run(ctx, l.client, keys,
		l.limit, int(l.window.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

func identifierKeys(phone, email string) []string {
	var keys []string
	if phone != "" {
		keys = append(keys, "ratelimit:sign:phone:"+phone)
	}
	if email != "" {
		keys = append(keys, "ratelimit:sign:email:"+email)
	}
	return keys
}
