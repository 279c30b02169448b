package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/bolt"
	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, service.RevocationPerToken)

	bc, err := bolt.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bc.Close() })
	bc.Now = h.clock.Now

	old, err := h.qr.Generate(ctx)
	require.NoError(t, err)
	require.NoError(t, bc.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, bc.Set(ctx, "long", "v", 48*time.Hour))

	h.clock.Advance(25 * time.Hour)
	fresh, err := h.qr.Generate(ctx)
	require.NoError(t, err)

	hk := service.NewHousekeepingService(h.store, bc, slogx.Discard(), time.Hour, 24*time.Hour)
	hk.Now = h.clock.Now
	hk.Cleanup(ctx)

	_, err = h.store.QRSessions().GetQRSession(ctx, old.Code)
	require.Error(t, err)

	q, err := h.store.QRSessions().GetQRSession(ctx, fresh.Code)
	require.NoError(t, err)
	require.Equal(t, domain.QRStatusPending, q.Status)

	n, err := bc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "cleanup already purged the expired entry")

	_, err = bc.Get(ctx, "short")
	require.ErrorIs(t, err, cache.ErrMiss)
	v, err := bc.Get(ctx, "long")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, service.RevocationPerToken)

	// Redis expires keys itself, so the cache is not a Purger.
	hk := service.NewHousekeepingService(h.store, h.cache, slogx.Discard(), time.Hour, 0)
	require.Equal(t, service.DefaultQRRetention, hk.Retention)

	hk.Start()
	hk.Stop()
}

func TestHousekeepingPurgesConfirmedAfterRetention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, service.RevocationPerToken)
	h.createUser(t, "u2")

	q, err := h.qr.Generate(ctx)
	require.NoError(t, err)
	require.NoError(t, h.qr.Confirm(ctx, "u2", q.Code))

	hk := service.NewHousekeepingService(h.store, h.cache, slogx.Discard(), time.Hour, 24*time.Hour)
	hk.Now = h.clock.Now

	// Inside the retention window the code keeps reporting CONFIRMED.
	h.clock.Advance(12 * time.Hour)
	hk.Cleanup(ctx)
	status, err := h.qr.CheckStatus(ctx, q.Code)
	require.NoError(t, err)
	require.Equal(t, domain.QRStatusConfirmed, status)

	h.clock.Advance(13 * time.Hour)
	hk.Cleanup(ctx)
	status, err = h.qr.CheckStatus(ctx, q.Code)
	require.NoError(t, err)
	require.Equal(t, domain.QRStatusNotFound, status)
}
