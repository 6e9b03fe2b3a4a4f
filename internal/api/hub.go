package api

import (
	"log/slog"
	"sync"

	"github.com/talgya/hearthstead/internal/protocol"
)

// Frame is an encoded notification ready for the wire.
type Frame struct {
	Type string
	Data []byte // {"type": ..., "data": ...}
}

// Hub fans notifications out to websocket sessions and SSE subscribers.
// Broadcast never blocks: a subscriber whose buffer is full misses the
// frame.
type Hub struct {
	mu   sync.Mutex
	subs map[uint64]chan Frame
	next uint64
	buf  int

	// OnDrop is called for every frame a slow subscriber missed.
	OnDrop func()
}

// NewHub returns a hub whose subscribers buffer up to buf frames.
func NewHub(buf int) *Hub {
	if buf <= 0 {
		buf = 64
	}
	return &Hub{subs: make(map[uint64]chan Frame), buf: buf}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (uint64, <-chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	ch := make(chan Frame, h.buf)
	h.subs[h.next] = ch
	return h.next, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast implements protocol.Broadcaster.
func (h *Hub) Broadcast(n protocol.Notification) {
	b, err := protocol.Encode(n)
	if err != nil {
		slog.Error("encode notification", "type", n.Type(), "error", err)
		return
	}
	f := Frame{Type: n.Type(), Data: b}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- f:
		default:
			slog.Debug("subscriber lagging, frame dropped", "sub", id, "type", f.Type)
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
}
