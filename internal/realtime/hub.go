// Package realtime delivers row changes to in-process subscribers.
//
// The Hub is the only fan-out point. Feeds (pgfeed, redisfeed) relay changes
// from other processes into it; in memory mode stores publish into it
// directly. Delivery is at-most-once per subscriber: a full buffer drops the
// notification, which is safe for consumers that recompute from the store
// on every notification since the one already pending triggers the refresh.
package realtime

import (
	"context"
	"sync"
)

const defaultBuffer = 16

// Notifier hands out filtered change subscriptions.
type Notifier interface {
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)
}

// Publisher accepts changes produced by a store.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Dispatcher receives changes relayed from another process.
type Dispatcher interface {
	Dispatch(change Change)
}

type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	metrics *Metrics
}

// NewHub creates a hub whose subscribers buffer up to buffer changes.
func NewHub(buffer int, metrics *Metrics) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: metrics,
	}
}

// Subscribe registers a subscription. It is closed when ctx is done or when
// the caller calls Close, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	ch := make(chan Change, h.buffer)
	sub := &Subscription{filter: filter, ch: ch, C: ch, hub: h}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.subscribed()

	stop := context.AfterFunc(ctx, sub.Close)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()
	return sub, nil
}

// Publish dispatches change to every matching subscriber without blocking.
func (h *Hub) Publish(_ context.Context, change Change) error {
	h.Dispatch(change)
	return nil
}

// Dispatch is Publish for feeds that have no context of their own.
func (h *Hub) Dispatch(change Change) {
	h.metrics.published(change)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.filter.Matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.metrics.dropped()
		}
	}
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	close(sub.ch)
	h.mu.Unlock()
	h.metrics.unsubscribed()
}

// Subscription is a live filtered stream of changes. C is closed once the
// subscription is closed.
type Subscription struct {
	C <-chan Change

	filter Filter
	ch     chan Change
	hub    *Hub
	once   sync.Once

	mu   sync.Mutex
	stop func() bool
}

// Filter returns the filter the subscription was opened with.
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		if s.stop != nil {
			s.stop()
		}
		s.mu.Unlock()
		s.hub.remove(s)
	})
}
