package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	notifyredis "github.com/aussiebroadwan/patchnotes/internal/auth/notify/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newNotifier(t *testing.T) (*notifyredis.Notifier, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	n := notifyredis.New(client, nil)
	t.Cleanup(func() { _ = n.Close() })
	return n, mr
}

func TestNotifierRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	n, _ := newNotifier(t)

	ch, cancel, err := n.Subscribe(ctx, "code-1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, n.Publish(ctx, notify.Event{Code: "code-1", Status: domain.QRStatusConfirmed}))

	select {
	case e := <-ch:
		require.Equal(t, notify.Event{Code: "code-1", Status: domain.QRStatusConfirmed}, e)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifierIgnoresMalformedPayloads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	n, mr := newNotifier(t)

	ch, cancel, err := n.Subscribe(ctx, "code-2")
	require.NoError(t, err)
	defer cancel()

	mr.Publish("qr:code-2", "{not json")
	require.NoError(t, n.Publish(ctx, notify.Event{Code: "code-2", Status: domain.QRStatusExpired}))

	select {
	case e := <-ch:
		require.Equal(t, domain.QRStatusExpired, e.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifierCancelClosesChannel(t *testing.T) {
	t.Parallel()
	n, _ := newNotifier(t)

	ch, cancel, err := n.Subscribe(context.Background(), "code-3")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, n.Close())
	_, _, err = n.Subscribe(context.Background(), "code-3")
	require.ErrorIs(t, err, notify.ErrClosed)
}
