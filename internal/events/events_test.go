package events

import (
	"sync"
	"testing"
	"time"
)

func TestHub_PublishReachesSubscriber(t *testing.T) {
	t.Parallel()
	h := NewHub()
	defer h.Close()

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Event{Kind: KindMessageHandled, Data: map[string]any{"channel": "telegram"}})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageHandled {
			t.Errorf("kind = %q, want %q", evt.Kind, KindMessageHandled)
		}
		if evt.Time.IsZero() {
			t.Error("publish should stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub()
	defer h.Close()

	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	if h.Subscribers() != 2 {
		t.Fatalf("subscribers = %d, want 2", h.Subscribers())
	}

	h.Publish(Event{Kind: KindProbeResult})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Kind != KindProbeResult {
				t.Errorf("subscriber %d: kind = %q, want %q", i, evt.Kind, KindProbeResult)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()
	h := NewHub()
	defer h.Close()

	ch, cancel := h.Subscribe()
	defer cancel()

	// Publish more events than the buffer holds without reading.
	// Publish must not block and the overflow must be dropped.
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish(Event{Kind: KindMessageHandled})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Errorf("received = %d, want %d buffered events", received, subscriberBuffer)
			}
			return
		}
	}
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	t.Parallel()
	h := NewHub()
	defer h.Close()

	ch, cancel := h.Subscribe()
	cancel()
	// Idempotent.
	cancel()

	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0 after cancel", h.Subscribers())
	}

	// Channel should be closed.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Publishing after cancel must not panic.
	h.Publish(Event{Kind: KindProviderState})
}

func TestHub_CloseClosesSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub()

	ch, cancel := h.Subscribe()
	h.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after hub Close")
	}

	// Publish and cancel after Close must not panic.
	h.Publish(Event{Kind: KindProbeResult})
	cancel()

	// Subscribing after Close returns a closed channel.
	ch2, cancel2 := h.Subscribe()
	defer cancel2()
	if _, ok := <-ch2; ok {
		t.Error("subscribe after Close should return a closed channel")
	}
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	t.Parallel()
	h := NewHub()
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Publish(Event{Kind: KindMessageHandled})
			}
		}()
		go func() {
			defer wg.Done()
			ch, cancel := h.Subscribe()
			for j := 0; j < 10; j++ {
				select {
				case <-ch:
				case <-time.After(time.Millisecond):
				}
			}
			cancel()
		}()
	}
	wg.Wait()
}
