package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"chemviz-dashboard/internal/pkg/logger"

	"github.com/google/uuid"
)

// Envelope is what every viewer receives.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans dashboard updates out to every connected viewer.
type Hub struct {
	// Registered viewers by connection id.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	// last message broadcast, replayed to viewers as they connect
	last []byte

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]*Client),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.last != nil {
				client.Send <- h.last
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Viewer registered", map[string]interface{}{
				"viewer_id": client.ID,
				"username":  client.Username,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Info("Hub", "Viewer unregistered", map[string]interface{}{"viewer_id": client.ID})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a typed message to all viewers. Viewers whose buffer is
// full are disconnected.
func (h *Hub) Broadcast(kind string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: kind, Data: payload})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal broadcast", map[string]interface{}{
			"type":  kind,
			"error": err.Error(),
		})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for id, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// closing Send makes writePump close the connection
			delete(h.clients, id)
			close(client.Send)
			h.logger.Warn("Hub", "Viewer send buffer full, disconnecting", map[string]interface{}{"viewer_id": id})
		}
	}
}

// join hands client to Run. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands client back to Run; a stopped hub has already let go of it.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
