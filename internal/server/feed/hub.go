// Package feed fans committed document writes out to change-feed
// subscribers. The store publishes inside its per-document critical
// section, so every subscriber observes writes in commit order.
package feed

import (
	"encoding/json"
	"sync"
)

// Change types as they appear on the wire.
const (
	TypeAdded    = "added"
	TypeModified = "modified"
	TypeRemoved  = "removed"
)

// Event is one change notification. Doc is absent on removals.
type Event struct {
	Type string          `json:"-"`
	ID   string          `json:"id"`
	Doc  json.RawMessage `json:"doc,omitempty"`
}

type topic struct {
	userID     string
	collection string
}

// Hub routes events by (user, collection). Subscribers that stop draining
// their channel are disconnected rather than allowed to stall writers; the
// client reconnects and resyncs from the snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[topic]map[int]chan Event
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[topic]map[int]chan Event)}
}

const subscriberBuffer = 64

// Subscribe returns a channel of events for one user's collection and an
// unsubscribe function. The channel is closed on unsubscribe or when the
// subscriber falls too far behind.
func (h *Hub) Subscribe(userID, collection string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := topic{userID: userID, collection: collection}
	if h.subs[t] == nil {
		h.subs[t] = make(map[int]chan Event)
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[t][id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[t][id]; ok {
			delete(h.subs[t], id)
			close(sub)
		}
	}
}

// Publish delivers ev to every subscriber of the topic. A subscriber with
// a full buffer is dropped.
func (h *Hub) Publish(userID, collection string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := topic{userID: userID, collection: collection}
	for id, ch := range h.subs[t] {
		select {
		case ch <- ev:
		default:
			delete(h.subs[t], id)
			close(ch)
		}
	}
}
