package websocket

import (
	"context"
	"sync"
)

// Hub is the live-connection registry: at most one connection per user. A
// fresh authenticated connection replaces and closes any prior one for the
// same user. It implements events.ConnectionRegistry.
type Hub struct {
	mu sync.RWMutex

	// clients maps user ID to the user's single live client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Send delivers a payload to the user's live connection. Returns false when
// the user has no connection; the caller treats that as a silent drop. The
// read lock is held across the channel send: every close of a Send channel
// happens under the write lock, so a racing reconnect cannot close the
// channel out from under us.
func (h *Hub) Send(userID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[userID]
	if !ok {
		return false
	}
	client.SendMessage(payload)
	return true
}

// ConnectedUsers returns the number of users with a live connection
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// The newest connection wins; the stale one gets its send channel closed
	// so its write loop exits. Closing inside the write lock keeps the close
	// ordered against in-flight Sends.
	prev, ok := h.clients[client.UserID]
	h.clients[client.UserID] = client
	if ok && prev != client {
		close(prev.Send)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Only remove if this client is still the registered one; a replacement
	// may already have taken the slot.
	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
		close(client.Send)
	}
}
