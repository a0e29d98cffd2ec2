// Package sse streams catalog and order changes to connected admin clients.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/metrics"
)

const clientBuffer = 64

// Frame is one encoded event ready to be written to a stream.
type Frame struct {
	Type events.Type
	Data []byte
}

// Client is a connected admin stream. An empty filter receives every event.
type Client struct {
	ID     string
	Frames chan Frame
	filter map[events.Type]bool
}

func (c *Client) wants(t events.Type) bool {
	return len(c.filter) == 0 || c.filter[t]
}

// Hub fans events out to the connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a client interested in types, or in everything when types
// is empty. A client registered again under the same id replaces the old one.
func (h *Hub) Register(clientID string, types ...events.Type) *Client {
	c := &Client{ID: clientID, Frames: make(chan Frame, clientBuffer)}
	if len(types) > 0 {
		c.filter = make(map[events.Type]bool, len(types))
		for _, t := range types {
			c.filter[t] = true
		}
	}

	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		close(old.Frames)
	}
	h.clients[clientID] = c
	total := len(h.clients)
	h.mu.Unlock()

	log.Info().Str("client_id", clientID).Int("filters", len(types)).Int("total_clients", total).Msg("SSE client connected")
	return c
}

// Unregister removes c and closes its channel. A client already replaced
// under the same id is left alone.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		close(c.Frames)
		delete(h.clients, c.ID)
		log.Info().Str("client_id", c.ID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast encodes event once and offers it to every interested client.
// A client whose buffer is full misses the event.
func (h *Hub) Broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Type)).Msg("Failed to marshal SSE event")
		return
	}
	frame := Frame{Type: event.Type, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.wants(event.Type) {
			continue
		}
		select {
		case c.Frames <- frame:
		default:
			metrics.RecordSSEDrop()
			log.Warn().Str("client_id", c.ID).Str("event", string(event.Type)).Msg("SSE client buffer full, dropping event")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
