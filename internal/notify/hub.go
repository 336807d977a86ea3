package notify

import (
	"context"
	"log"
	"sync"
)

// Hub fans events out to every subscribed connection. Delivery is best
// effort: a subscriber whose buffer is full misses the event, there is no
// replay.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber with the given buffer size.
func (h *Hub) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers evt to every subscriber that has buffer space.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dispatch consumes the queue and republishes every event on the hub. It
// blocks until ctx is canceled or the queue channel closes.
func Dispatch(ctx context.Context, q Queue, h *Hub) error {
	events, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			h.Publish(evt)
		}
	}
}

// Broadcaster is the producer side of the notification pipeline.
type Broadcaster struct {
	queue Queue
}

// NewBroadcaster wraps a queue for fire-and-forget publishing.
func NewBroadcaster(q Queue) *Broadcaster {
	return &Broadcaster{queue: q}
}

// Broadcast publishes evt, logging instead of failing the caller when the
// queue is unavailable.
func (b *Broadcaster) Broadcast(ctx context.Context, evt Event) {
	if b == nil || b.queue == nil {
		return
	}
	if err := b.queue.Publish(ctx, evt); err != nil {
		log.Printf("notify publish failed: %v", err)
	}
}
