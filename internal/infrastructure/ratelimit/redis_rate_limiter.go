// Package ratelimit provides the distributed per-tenant rate limiter for the
// assistant boundary.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careplane/careplane/pkg/logger"
)

// fixedWindowScript atomically increments the window counter and stamps its
// expiry on first use.
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`

// RedisRateLimiter implements a fixed-window limiter on Redis. Limits are
// advisory for availability: a Redis outage fails open with a logged warning,
// because rate limiting is a resource control, not an isolation control.
type RedisRateLimiter struct {
	client    redis.UniversalClient
	limit     int64
	window    time.Duration
	keyPrefix string
	logger    logger.Logger
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window.
// Windows are keyed on whole seconds, so anything shorter clamps to one
// second rather than dividing by zero.
func NewRedisRateLimiter(client redis.UniversalClient, limit int64, window time.Duration, log logger.Logger) *RedisRateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: "careplane:ratelimit",
		logger:    log.WithComponent("rate_limiter"),
	}
}

// Allow consumes one unit of the window budget for the key.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	windowKey := fmt.Sprintf("%s:%s:%d", l.keyPrefix, key, time.Now().Unix()/int64(l.window.Seconds()))

	current, err := l.client.Eval(ctx, fixedWindowScript, []string{windowKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn(ctx, "rate limiter unavailable, failing open", logger.Error(err))
		return true, 0, err
	}

	remaining := l.limit - current
	if remaining < 0 {
		remaining = 0
	}
	return current <= l.limit, remaining, nil
}
