// Package tap lets remote observers watch seat events over SSH
package tap

import (
	"sync"
	"time"

	"github.com/bnema/wlseat/internal/seat"
	"github.com/bnema/wlseat/internal/ui"
)

// Hub is a seat.Sink fanning events out to subscribers. Deliver runs on the seat
// loop; a subscriber that falls behind loses updates instead of blocking it.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan ui.Update
	next    int
	source  func() seat.Snapshot
	now     func() time.Time
	dropped int
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]chan ui.Update),
		now:  time.Now,
	}
}

// SetSource picks the seat whose snapshot accompanies each update. It is called
// on the seat loop.
func (h *Hub) SetSource(snapshot func() seat.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = snapshot
}

// Deliver implements seat.Sink
func (h *Hub) Deliver(ev seat.Event) {
	h.mu.Lock()
	source := h.source
	h.mu.Unlock()

	u := ui.Update{At: h.now(), Line: seat.Describe(ev)}
	if source != nil {
		u.Snapshot = source()
	}
	h.Publish(u)
}

// Publish sends u to every subscriber that has room for it
func (h *Hub) Publish(u ui.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			h.dropped++
		}
	}
}

// Subscribe returns a channel of updates and a function ending the subscription
func (h *Hub) Subscribe(buffer int) (<-chan ui.Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ui.Update, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many updates were lost to slow subscribers
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
