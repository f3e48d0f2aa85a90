// Package events provides the typed subscription points the recording and
// replay machines publish on.
package events

import "sync"

// Event is anything published on a Hub; subscribers type-switch on the
// concrete event structs of the publishing package.
type Event interface{}

// Hub fans events out to subscriber channels. Publishing never blocks: a
// subscriber that falls behind its buffer misses events rather than stalling
// the run loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber channel with the given buffer size.
// The caller must pass the same channel to Unsubscribe when done.
func (h *Hub) Subscribe(buffer int) chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

// Publish delivers the event to every subscriber with buffer space left.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
