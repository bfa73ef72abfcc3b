// Package websocket pushes ingest lifecycle events to connected API clients.
package websocket

import (
	"log"
	"sync"
)

// Hub fans outbound frames out to every connected client. A client whose
// send buffer is full gets disconnected rather than stalling the loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	outbound   chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an empty hub. Call Run in a goroutine before registering
// clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		outbound:   make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub loop: client registration, removal and fan-out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("websocket client connected (total: %d)", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("websocket client disconnected (total: %d)", total)

		case frame := <-h.outbound:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a raw frame for every connected client. Frames are
// dropped when the hub itself is backed up.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.outbound <- frame:
	default:
		log.Println("websocket broadcast queue full, dropping frame")
	}
}

// BroadcastMessage encodes a typed message and queues it for delivery.
func (h *Hub) BroadcastMessage(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("encoding websocket message: %v", err)
		return
	}
	h.Broadcast(data)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one connected websocket peer as seen by the hub.
type Client struct {
	hub  *Hub
	send chan []byte
}

// NewClient creates a client attached to the given hub.
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// Send returns the client's outbound frame channel.
func (c *Client) Send() chan []byte {
	return c.send
}
