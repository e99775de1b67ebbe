package cooldown

import (
	"bitwise74/blog-api/internal/apperr"
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCooldown(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	t.Cleanup(func() { m.Close() })

	ctx := context.Background()

	ok, _, err := m.Allow(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, wait, err := m.Allow(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, wait)

	ok, _, err = m.Allow(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "keys don't share a window")

	now = now.Add(40 * time.Second)
	ok, _, err = m.Allow(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRelease(t *testing.T) {
	m := NewMemory(time.Minute)
	t.Cleanup(func() { m.Close() })

	ctx := context.Background()
	require.NoError(t, m.Release(ctx, "never-seen"))

	ok, _, err := m.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Release(ctx, "k"))

	ok, _, err = m.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "a released key starts a new window")

	ok, _, err = m.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDisabled(t *testing.T) {
	m := NewMemory(0)
	t.Cleanup(func() { m.Close() })

	for range 3 {
		ok, _, err := m.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCheck(t *testing.T) {
	m := NewMemory(time.Minute)
	t.Cleanup(func() { m.Close() })

	ctx := context.Background()
	require.NoError(t, Check(ctx, m, "k"))

	err := Check(ctx, m, "k")

	var we *WaitError
	require.True(t, errors.As(err, &we))
	assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
	assert.Equal(t, http.StatusTooManyRequests, apperr.Status(err))
	assert.Contains(t, err.Error(), "60 seconds")
}

func TestRedisCooldown(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	key := "cooldown_test_" + time.Now().Format(time.RFC3339Nano)

	r := NewRedis(rdb, "test:", time.Minute)

	ok, _, err := r.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, wait, err := r.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, wait > 0 && wait <= time.Minute)

	require.NoError(t, r.Release(ctx, key))

	ok, _, err = r.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Release(ctx, key))
}
