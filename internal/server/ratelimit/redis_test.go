package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestLimiter(t *testing.T, limit int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()

	limiter, err := NewRedisLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  limit,
		DefaultWindow: time.Minute,
		RedisAddr:     mr.Addr(),
		RedisPrefix:   "test:ratelimit",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(limiter.Stop)

	frozen := time.Date(2026, time.June, 1, 12, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return frozen }
	return limiter, mr
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	limiter, _ := newRedisTestLimiter(t, 2)

	allowed, info := limiter.Allow("ip-1", "/usage", "GET")
	require.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)
	assert.Equal(t, time.Date(2026, time.June, 1, 12, 1, 0, 0, time.UTC), info.ResetTime)

	allowed, _ = limiter.Allow("ip-1", "/usage", "GET")
	require.True(t, allowed)

	allowed, info = limiter.Allow("ip-1", "/usage", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 50*time.Second, info.RetryAfter)

	allowed, _ = limiter.Allow("ip-2", "/usage", "GET")
	assert.True(t, allowed)
}

func TestRedisLimiter_NextWindow(t *testing.T) {
	limiter, _ := newRedisTestLimiter(t, 1)

	allowed, _ := limiter.Allow("ip-1", "/usage", "GET")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("ip-1", "/usage", "GET")
	require.False(t, allowed)

	limiter.now = func() time.Time { return time.Date(2026, time.June, 1, 12, 1, 5, 0, time.UTC) }
	allowed, _ = limiter.Allow("ip-1", "/usage", "GET")
	assert.True(t, allowed)
}

func TestRedisLimiter_KeyExpires(t *testing.T) {
	limiter, mr := newRedisTestLimiter(t, 5)

	limiter.Allow("ip-1", "/usage", "GET")
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Positive(t, mr.TTL(keys[0]))
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	limiter, mr := newRedisTestLimiter(t, 1)
	mr.Close()

	allowed, _ := limiter.Allow("ip-1", "/usage", "GET")
	assert.True(t, allowed)
}

func TestNewRedisLimiter_RequiresAddr(t *testing.T) {
	limiter, err := NewRedisLimiter(&Config{Enabled: true}, nil)
	assert.Error(t, err)
	assert.Nil(t, limiter)
}

func TestNew_PicksRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	allower, err := New(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer allower.Stop()
	assert.IsType(t, &RedisLimiter{}, allower)
}
