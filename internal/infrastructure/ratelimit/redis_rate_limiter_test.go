package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careplane/careplane/pkg/logger"
)

func newTestLimiter(t *testing.T, limit int64) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client, limit, time.Minute, logger.NewNoopLogger()), mr
}

func TestAllow_WithinBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(context.Background(), "assistant:tenant-a")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(2-i), remaining)
	}
}

func TestAllow_BudgetExhausted(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(context.Background(), "assistant:tenant-a")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, remaining, err := limiter.Allow(context.Background(), "assistant:tenant-a")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)

	allowed, _, err := limiter.Allow(context.Background(), "assistant:tenant-a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Allow(context.Background(), "assistant:tenant-b")
	require.NoError(t, err)
	assert.True(t, allowed, "tenant-b budget is separate from tenant-a")
}

func TestNewRedisRateLimiter_ClampsSubSecondWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	for i, window := range []time.Duration{0, 100 * time.Millisecond, -time.Minute} {
		limiter := NewRedisRateLimiter(client, 1, window, logger.NewNoopLogger())
		assert.Equal(t, time.Second, limiter.window)

		allowed, _, err := limiter.Allow(context.Background(), fmt.Sprintf("assistant:tenant-%d", i))
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestAllow_FailsOpenOnOutage(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), "assistant:tenant-a")
	assert.Error(t, err)
	assert.True(t, allowed, "limiter outage must not block requests")
}
