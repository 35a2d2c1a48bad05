// Package events provides a lightweight in-process event feed for
// operator visibility. The relay and scheduled jobs publish; the
// gateway streams events to WebSocket subscribers.
package events

import (
	"sync"
	"time"
)

// Event is a single operational event. Data carries structured fields
// only; events never include message text.
type Event struct {
	Time time.Time      `json:"time"`
	Kind string         `json:"kind"`
	Data map[string]any `json:"data,omitempty"`
}

// Event kinds published by the relay and the scheduled jobs.
const (
	KindMessageHandled  = "message_handled"
	KindCompletionError = "completion_error"
	KindProviderState   = "provider_state"
	KindProbeResult     = "probe_result"
)

// Sink receives published events. Publish must never block.
type Sink interface {
	Publish(evt Event)
}

const subscriberBuffer = 16

// Hub fans events out to subscribers. Publish uses a non-blocking send
// so a stuck WebSocket can never stall the publisher; slow subscribers
// lose events.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// Compile-time interface guard.
var _ Sink = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers evt to every subscriber, stamping the time if unset.
// Events are dropped for subscribers whose buffers are full.
func (h *Hub) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Close shuts the hub down: all subscriber channels are closed and
// further publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
