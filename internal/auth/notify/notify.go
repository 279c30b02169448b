// Package notify fans QR code status changes out to interested clients.
//
// Delivery is best effort and only the latest status per subscriber is kept;
// consumers that need certainty fall back to the stored status.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
)

var ErrClosed = errors.New("notify: closed")

// Event announces a QR code status.
type Event struct {
	Code   string          `json:"code"`
	Status domain.QRStatus `json:"status"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event) error

	// Subscribe returns a channel of events for code. The channel is closed
	// when cancel is called, ctx ends, or the notifier closes.
	Subscribe(ctx context.Context, code string) (events <-chan Event, cancel func(), err error)

	Close() error
}

// Offer delivers e on a single-slot channel, replacing any undelivered
// event. Only one goroutine may send on ch.
func Offer(ch chan Event, e Event) {
	select {
	case ch <- e:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}

type subscriber struct {
	ch   chan Event
	stop chan struct{}
	done bool // guarded by Bus.mu
}

// Bus is an in-process Notifier.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*subscriber]struct{})}
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	for s := range b.subs[e.Code] {
		Offer(s.ch, e)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, code string) (<-chan Event, func(), error) {
	s := &subscriber{ch: make(chan Event, 1), stop: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	if b.subs[code] == nil {
		b.subs[code] = make(map[*subscriber]struct{})
	}
	b.subs[code][s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[code]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(b.subs, code)
			}
		}
		s.finish()
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.stop:
		}
	}()

	return s.ch, cancel, nil
}

// Subscribers reports how many subscriptions exist for code.
func (b *Bus) Subscribers(code string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[code])
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for code, set := range b.subs {
		for s := range set {
			s.finish()
		}
		delete(b.subs, code)
	}
	return nil
}

// finish closes the subscriber's channels once. Callers hold Bus.mu.
func (s *subscriber) finish() {
	if s.done {
		return
	}
	s.done = true
	close(s.stop)
	close(s.ch)
}
