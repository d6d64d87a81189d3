package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/domain"
)

// Client represents a connected admin console.
type Client struct {
	userID      string
	systemAdmin bool
	// tenants the client may see events for, snapshot at connect time.
	// A console reconnects after its assignments change.
	tenants map[string]struct{}
	send    chan []byte
}

// Hub manages all active SSE client connections and routes admin events
// to the consoles allowed to see them. Single-instance model: all
// broadcast is in-process. For multi-instance: replace with Redis Pub/Sub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a new SSE client.
func (h *Hub) Register(userID string, systemAdmin bool, tenantIDs []string, send chan []byte) *Client {
	tenants := make(map[string]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		tenants[id] = struct{}{}
	}
	c := &Client{userID: userID, systemAdmin: systemAdmin, tenants: tenants, send: send}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("user", userID).Bool("system_admin", systemAdmin).Msg("SSE client connected")
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	log.Debug().Str("user", c.userID).Msg("SSE client disconnected")
}

// Broadcast delivers an admin event to system admins and to admins of the
// event's tenant. Events without a tenant go to system admins only.
// This satisfies the application.EventHub interface.
func (h *Hub) Broadcast(event domain.AdminEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}
	msg := buildSSEMessage(event)

	for c := range h.clients {
		if !c.systemAdmin {
			if event.TenantID == "" {
				continue
			}
			if _, ok := c.tenants[event.TenantID]; !ok {
				continue
			}
		}
		select {
		case c.send <- msg:
		default:
			// Client is slow/disconnected, skip
			log.Warn().Str("user", c.userID).Msg("SSE client send buffer full, skipping")
		}
	}
}

// ConnectedCount returns the total number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// buildSSEMessage formats an admin event as an SSE data frame.
func buildSSEMessage(event domain.AdminEvent) []byte {
	b, _ := json.Marshal(event)
	return []byte("event: admin\ndata: " + string(b) + "\n\n")
}
