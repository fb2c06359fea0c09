// Package ws pushes progression events to connected browsers. Each user can
// hold several connections, every event for an address fans out to all of
// them.
package ws

import (
	"encoding/json"
	"sync"

	"taskfi_backend/internal/logger"
)

// Event is one push message.
type Event struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventLevelUp     = "level_up"
	EventXPGranted   = "xp_granted"
	EventTokensPaid  = "tokens_paid"
	EventTaskUpdated = "task_updated"
	EventStreak      = "streak"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // address -> connections
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.address]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.address] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.address]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.address)
		}
	}
}

// Publish sends an event to every connection of the event's address.
// A slow connection is dropped rather than blocking the caller.
func (h *Hub) Publish(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		logger.Error("marshal ws event", "type", e.Type, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[e.Address] {
		select {
		case c.send <- msg:
		default:
			logger.Warn("ws client send buffer full, dropping", "address", e.Address)
			go c.close()
		}
	}
}

// Connected reports how many connections an address holds.
func (h *Hub) Connected(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[address])
}
