// SPDX-License-Identifier: AGPL-3.0-or-later

package wsdash

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/cartographus/internal/logging"
)

// Message types carried over the dashboard WebSocket. These mirror the
// stats wire protocol's line kinds (spec.md §4.4/§6) rather than
// inventing a parallel vocabulary.
const (
	MessageTypeEvent  = "event"
	MessageTypeNew    = "new"
	MessageTypeDelete = "delete"
	MessageTypeFlush  = "flush"
	MessageTypeInfo   = "info"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
)

// Message is one JSON frame sent to a dashboard client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventData is the payload for MessageTypeEvent.
type EventData struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewData is the payload for MessageTypeNew.
type NewData struct {
	ServerType string `json:"server_type"`
	Mount      string `json:"mount"`
}

// DeleteData is the payload for MessageTypeDelete.
type DeleteData struct {
	Scope string `json:"scope"`
	Name  string `json:"name,omitempty"`
}

// Hub maintains the set of connected dashboard clients and broadcasts
// translated stat events to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// String identifies this service to a suture supervisor.
func (h *Hub) String() string { return "wsdash-hub" }

// Serve runs the hub until ctx is canceled, matching the
// suture.Service shape used throughout this module.
//
// DETERMINISM: lifecycle events (Register/Unregister) are drained ahead
// of broadcast messages so client state is always consistent before a
// message is fanned out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	logging.Info().Int("total_clients", h.GetClientCount()).Msg("dashboard client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	logging.Info().Int("total_clients", h.GetClientCount()).Msg("dashboard client disconnected")
}

func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			toRemove = append(toRemove, c)
		}
	}
	for _, c := range toRemove {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	logging.Info().Msg("closed all dashboard clients during shutdown")
}

// Broadcast enqueues message for delivery to every connected client,
// dropping it if the broadcast channel is saturated rather than
// blocking the caller (typically the Bridge's drain loop).
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", message.Type).Msg("dashboard broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected dashboard clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
