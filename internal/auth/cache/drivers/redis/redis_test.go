package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/redis"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := redis.New(context.Background(), "redis://"+mr.Addr()+"/0", redis.DefaultPrefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		t.Parallel()
		c, mr := newCache(t)

		_, err := c.Get(ctx, "rt_1")
		require.ErrorIs(t, err, cache.ErrMiss)

		require.NoError(t, c.Set(ctx, "rt_1", "jti-1", time.Hour))
		v, err := c.Get(ctx, "rt_1")
		require.NoError(t, err)
		require.Equal(t, "jti-1", v)

		require.True(t, mr.Exists("api_cache:rt_1"), "keys are prefixed")

		require.NoError(t, c.Delete(ctx, "rt_1"))
		require.NoError(t, c.Delete(ctx, "rt_1"), "deleting twice is fine")
		_, err = c.Get(ctx, "rt_1")
		require.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("ttl", func(t *testing.T) {
		t.Parallel()
		c, mr := newCache(t)

		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		require.Equal(t, time.Minute, mr.TTL("api_cache:k"))

		mr.FastForward(time.Minute)
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrMiss)

		require.NoError(t, c.Set(ctx, "forever", "v", 0))
		require.Zero(t, mr.TTL("api_cache:forever"))
	})

	t.Run("ping and errors", func(t *testing.T) {
		t.Parallel()
		c, mr := newCache(t)
		require.NoError(t, c.Ping(ctx))

		mr.SetError("LOADING")
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		require.NotErrorIs(t, err, cache.ErrMiss)
	})
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := redis.New(context.Background(), "not-a-url", "")
	require.Error(t, err)
}
