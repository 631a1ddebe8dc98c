package ws

import (
	"encoding/json"
	"sync"

	"hostpay/internal/domain"
	"hostpay/internal/models"
)

// Client is a single status-stream connection, optionally pinned to one
// intent id.
type Client struct {
	IntentID string // empty means all intents
	Send     chan []byte
	hub      *Hub
	mu       sync.Mutex
	closed   bool
}

// trySend queues a frame unless the client is closed or its buffer is
// full. Holding c.mu here keeps Close from closing Send mid-send.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// Hub fans payment-status transitions out to connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StatusUpdate is the frame pushed on every transition.
type StatusUpdate struct {
	Type     string        `json:"type"`
	IntentID string        `json:"intent_id"`
	Rail     domain.Rail   `json:"rail"`
	Status   domain.Status `json:"status"`
	Previous domain.Status `json:"previous"`
	Demo     bool          `json:"demo"`
}

// NotifyTransition implements service.TransitionNotifier. Slow clients
// drop frames rather than block the status machine.
func (h *Hub) NotifyTransition(intent *models.PaymentIntent, previous domain.Status) {
	data, _ := json.Marshal(StatusUpdate{
		Type:     "status",
		IntentID: intent.ID,
		Rail:     intent.Rail,
		Status:   intent.Status,
		Previous: previous,
		Demo:     intent.IsDemo,
	})
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.IntentID == "" || c.IntentID == intent.ID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.trySend(data)
	}
}
