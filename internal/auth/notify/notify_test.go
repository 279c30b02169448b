package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("no event")
		return notify.Event{}
	}
}

func TestBusDelivers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bus := notify.NewBus()
	defer bus.Close()

	a, cancelA, err := bus.Subscribe(ctx, "code-1")
	require.NoError(t, err)
	defer cancelA()
	b, cancelB, err := bus.Subscribe(ctx, "code-1")
	require.NoError(t, err)
	defer cancelB()
	other, cancelOther, err := bus.Subscribe(ctx, "code-2")
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, bus.Publish(ctx, notify.Event{Code: "code-1", Status: domain.QRStatusConfirmed}))

	require.Equal(t, domain.QRStatusConfirmed, recv(t, a).Status)
	require.Equal(t, domain.QRStatusConfirmed, recv(t, b).Status)
	select {
	case e := <-other:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestBusLatestStatusWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bus := notify.NewBus()
	defer bus.Close()

	ch, cancel, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, notify.Event{Code: "c", Status: domain.QRStatusPending}))
	require.NoError(t, bus.Publish(ctx, notify.Event{Code: "c", Status: domain.QRStatusConfirmed}))

	require.Equal(t, domain.QRStatusConfirmed, recv(t, ch).Status)
}

func TestBusUnsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("cancel", func(t *testing.T) {
		t.Parallel()
		bus := notify.NewBus()
		ch, cancel, err := bus.Subscribe(context.Background(), "c")
		require.NoError(t, err)
		require.Equal(t, 1, bus.Subscribers("c"))

		cancel()
		cancel()
		_, ok := <-ch
		require.False(t, ok)
		require.Zero(t, bus.Subscribers("c"))
		require.NoError(t, bus.Publish(context.Background(), notify.Event{Code: "c"}))
	})

	t.Run("context", func(t *testing.T) {
		t.Parallel()
		bus := notify.NewBus()
		ctx, stop := context.WithCancel(context.Background())
		ch, _, err := bus.Subscribe(ctx, "c")
		require.NoError(t, err)

		stop()
		require.Eventually(t, func() bool { return bus.Subscribers("c") == 0 }, time.Second, 5*time.Millisecond)
		_, ok := <-ch
		require.False(t, ok)
	})

	t.Run("close", func(t *testing.T) {
		t.Parallel()
		bus := notify.NewBus()
		ch, cancel, err := bus.Subscribe(context.Background(), "c")
		require.NoError(t, err)

		require.NoError(t, bus.Close())
		_, ok := <-ch
		require.False(t, ok)
		cancel()

		_, _, err = bus.Subscribe(context.Background(), "c")
		require.ErrorIs(t, err, notify.ErrClosed)
		require.ErrorIs(t, bus.Publish(context.Background(), notify.Event{Code: "c"}), notify.ErrClosed)
	})
}
