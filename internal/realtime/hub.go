package realtime

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/metrics"
)

// Message types sent over the live channel.
const (
	MessageTypeClick = "click"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// ErrHubClosed is returned by Join after Close.
var ErrHubClosed = errors.New("realtime: hub closed")

// Message is the JSON envelope written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maps an owner ID to that owner's connected clients. One owner may
// have any number of clients (one per open dashboard tab).
type Hub struct {
	mu     sync.RWMutex
	owners map[string]map[*Client]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{owners: make(map[string]map[*Client]struct{})}
}

// Join registers c under ownerID.
func (h *Hub) Join(ownerID string, c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	c.ownerID = ownerID
	clients, ok := h.owners[ownerID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.owners[ownerID] = clients
	}
	if _, exists := clients[c]; !exists {
		clients[c] = struct{}{}
		metrics.LiveSubscribers.Inc()
	}

	logging.Logger.Debug("live subscriber joined",
		zap.String("owner_id", ownerID),
		zap.Uint64("client_id", c.id),
		zap.Int("owner_clients", len(clients)),
	)
	return nil
}

// Leave unregisters c and closes its send queue. Calling it more than once
// is harmless.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()

	c.closeSend()
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.owners[c.ownerID]
	if !ok {
		return
	}
	if _, exists := clients[c]; !exists {
		return
	}
	delete(clients, c)
	metrics.LiveSubscribers.Dec()
	if len(clients) == 0 {
		delete(h.owners, c.ownerID)
	}
}

// Publish queues a message for every client of ownerID and returns how
// many accepted it. It never blocks: a client whose queue is full is
// evicted, one that already left is skipped. No subscribers is not an error.
func (h *Hub) Publish(ownerID, msgType string, data interface{}) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.owners[ownerID]))
	for c := range h.owners[ownerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	msg := Message{Type: msgType, Data: data}
	delivered := 0
	for _, c := range targets {
		switch c.trySend(msg) {
		case sent:
			delivered++
		case queueFull:
			logging.Logger.Warn("dropping slow live subscriber",
				zap.String("owner_id", ownerID),
				zap.Uint64("client_id", c.id),
			)
			h.Leave(c)
		case queueClosed:
			// Left after the snapshot; Leave already unregistered it.
		}
	}

	metrics.LiveNotifications.Add(float64(delivered))
	return delivered
}

// SubscriberCount returns the number of clients joined under ownerID.
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

// ClientCount returns the number of clients across all owners.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.owners {
		n += len(clients)
	}
	return n
}

// Close disconnects every client and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, clients := range h.owners {
		for c := range clients {
			all = append(all, c)
		}
	}
	for _, c := range all {
		h.remove(c)
	}
	h.mu.Unlock()

	for _, c := range all {
		c.closeSend()
	}
	logging.Logger.Info("live hub closed", zap.Int("clients", len(all)))
}
