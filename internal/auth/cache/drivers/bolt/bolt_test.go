package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/bolt"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newCache(t *testing.T) (*bolt.Cache, *clock) {
	t.Helper()

	c, err := bolt.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.Now = clk.Now
	return c, clk
}

func TestBoltCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		t.Parallel()
		c, _ := newCache(t)

		_, err := c.Get(ctx, "rt_1")
		require.ErrorIs(t, err, cache.ErrMiss)

		require.NoError(t, c.Set(ctx, "rt_1", "fp", time.Hour))
		v, err := c.Get(ctx, "rt_1")
		require.NoError(t, err)
		require.Equal(t, "fp", v)

		require.NoError(t, c.Set(ctx, "rt_1", "", time.Hour))
		v, err = c.Get(ctx, "rt_1")
		require.NoError(t, err)
		require.Empty(t, v, "empty values are stored, not misses")

		require.NoError(t, c.Delete(ctx, "rt_1"))
		_, err = c.Get(ctx, "rt_1")
		require.ErrorIs(t, err, cache.ErrMiss)
		require.NoError(t, c.Ping(ctx))
	})

	t.Run("expiry and purge", func(t *testing.T) {
		t.Parallel()
		c, clk := newCache(t)

		require.NoError(t, c.Set(ctx, "short", "v", time.Minute))
		require.NoError(t, c.Set(ctx, "long", "v", time.Hour))
		require.NoError(t, c.Set(ctx, "forever", "v", 0))

		clk.t = clk.t.Add(time.Minute)
		_, err := c.Get(ctx, "short")
		require.ErrorIs(t, err, cache.ErrMiss)

		n, err := c.PurgeExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		clk.t = clk.t.Add(24 * 365 * time.Hour)
		v, err := c.Get(ctx, "forever")
		require.NoError(t, err)
		require.Equal(t, "v", v)
	})
}

func TestBoltCacheReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := bolt.New(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "rt_7", "fp", time.Hour))
	require.NoError(t, c.Close())

	c, err = bolt.New(path)
	require.NoError(t, err)
	defer c.Close()

	v, err := c.Get(ctx, "rt_7")
	require.NoError(t, err)
	require.Equal(t, "fp", v)
}

var _ cache.Purger = (*bolt.Cache)(nil)
