package telemetry

import (
	"sync"
	"time"

	"github.com/robot-control/rcd/internal/metrics"
)

// Event types published by the daemon.
const (
	EventCommandExecuted  = "commandExecuted"
	EventCommandRejected  = "commandRejected"
	EventFault            = "fault"
	EventConnectionOpened = "connectionOpened"
	EventConnectionClosed = "connectionClosed"
)

// Event is one telemetry record.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	Ts   string                 `json:"ts"`
}

// Hub distributes events to subscribers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	stopped bool
}

// subscriberBuffer sizes each subscriber channel.
const subscriberBuffer = 100

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or Stop.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// Publish delivers an event to every subscriber without blocking. The
// timestamp is stamped here if the caller left it empty.
func (h *Hub) Publish(event Event) {
	if event.Ts == "" {
		event.Ts = time.Now().UTC().Format(time.RFC3339)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

// Stop closes every subscriber channel and rejects further publishes.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
