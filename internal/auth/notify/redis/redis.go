// Package redis is a Notifier over Redis pub/sub, for deployments running
// more than one API instance.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	goredis "github.com/redis/go-redis/v9"
)

const channelPrefix = "qr:"

type Notifier struct {
	client *goredis.Client
	log    *slog.Logger

	mu     sync.Mutex
	subs   map[*goredis.PubSub]struct{}
	closed bool
}

// New publishes and subscribes through client. Close leaves the client
// open; it belongs to the caller.
func New(client *goredis.Client, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		client: client,
		log:    log,
		subs:   make(map[*goredis.PubSub]struct{}),
	}
}

func channel(code string) string { return channelPrefix + code }

func (n *Notifier) Publish(ctx context.Context, e notify.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, channel(e.Code), payload).Err(); err != nil {
		return fmt.Errorf("notify: publish %s: %w", e.Code, err)
	}
	return nil
}

// Subscribe returns once Redis has acknowledged the subscription, so events
// published after it returns are not lost.
func (n *Notifier) Subscribe(ctx context.Context, code string) (<-chan notify.Event, func(), error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, nil, notify.ErrClosed
	}
	n.mu.Unlock()

	ps := n.client.Subscribe(ctx, channel(code))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("notify: subscribe %s: %w", code, err)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		_ = ps.Close()
		return nil, nil, notify.ErrClosed
	}
	n.subs[ps] = struct{}{}
	n.mu.Unlock()

	out := make(chan notify.Event, 1)
	msgs := ps.Channel()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ps)
			n.mu.Unlock()
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e notify.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					n.log.Warn("notify: dropping malformed event", "channel", msg.Channel, "err", err)
					continue
				}
				notify.Offer(out, e)
			}
		}
	}()

	return out, cancel, nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for ps := range n.subs {
		_ = ps.Close()
		delete(n.subs, ps)
	}
	return nil
}
