// Package realtime streams thought events to websocket subscribers.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"happythoughts/internal/middleware"
	"happythoughts/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// DefaultMaxConnections caps concurrent subscribers per process.
const DefaultMaxConnections = 10000

var (
	ErrConnectionLimit = errors.New("server connection limit reached")
	ErrHubClosed       = errors.New("hub is shut down")
)

// Hub tracks connected clients and fans events out to all of them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
	metrics  *observability.Metrics
}

// NewHub creates a hub. A maxConns of 0 means DefaultMaxConnections; metrics may be nil.
func NewHub(maxConns int, metrics *observability.Metrics) *Hub {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxConns,
		metrics:  metrics,
	}
}

// Register adds a connection. conn may be nil in tests that only exercise fan-out.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrConnectionLimit
	}

	client := newClient(h, conn)
	h.clients[client] = struct{}{}
	h.metrics.WSConnected()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		h.metrics.WSDisconnected()
		client.close()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected websocket client. Clients that
// cannot take it are disconnected.
func (h *Hub) BroadcastAll(message []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		if !c.TrySend(message) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.UnregisterClient(c)
	}
}

// Shutdown sends a going-away close frame to every client and refuses new ones.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		h.metrics.WSDisconnected()
		if client.Conn != nil {
			if err := client.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
				time.Now().Add(writeWait)); err != nil {
				middleware.Logger.Debug("failed to write close frame", slog.String("client_id", client.ID), slog.String("error", err.Error()))
			}
		}
		client.close()
	}
	return nil
}
