package stub

import (
	"sync"

	"codeberg.org/mutker/thermochart/internal/sample"
)

const subscriberBuffer = 16

// Hub fans published samples out to stream subscribers. A subscriber that
// falls behind loses samples rather than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan sample.Sample
	next    int
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{subs: map[int]chan sample.Sample{}}
}

// Subscribe returns a channel of future samples and a cancel func that
// closes it
func (h *Hub) Subscribe() (<-chan sample.Sample, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan sample.Sample, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
	return ch, cancel
}

func (h *Hub) Broadcast(s sample.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
			h.dropped++
		}
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
