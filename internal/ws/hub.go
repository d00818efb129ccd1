package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"guess_dapp/internal/game"
	"guess_dapp/internal/logger"
)

// Hub fans controller snapshots out to every connected client
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	last        []byte
	lastVersion uint64
	closed      bool
	log         *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     logger.Component("ws"),
	}
}

func encodeState(s game.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: MsgState, Payload: payload})
}

// Publish broadcasts a snapshot. Snapshots older than the last one sent are
// dropped, listeners may be called from several goroutines.
func (h *Hub) Publish(s game.Snapshot) {
	msg, err := encodeState(s)
	if err != nil {
		h.log.Error("encode snapshot", logger.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.last != nil && s.Version < h.lastVersion) {
		return
	}
	h.last = msg
	h.lastVersion = s.Version

	for c := range h.clients {
		select {
		case c.Send <- msg:
		default:
			// slow reader, let it reconnect
			h.log.Warn("dropping slow client", "remote", c.remote)
			h.removeLocked(c)
		}
	}
}

// Register adds a client and queues the freshest state for it. initial is
// used when it is newer than the last broadcast.
func (h *Hub) Register(c *Client, initial game.Snapshot) {
	msg, err := encodeState(initial)
	if err != nil {
		h.log.Error("encode snapshot", logger.Err(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.Send)
		return
	}
	if msg == nil || (h.last != nil && initial.Version < h.lastVersion) {
		msg = h.last
	}
	h.clients[c] = struct{}{}
	if msg != nil {
		c.Send <- msg
	}
	h.log.Debug("client registered", "remote", c.remote, "clients", len(h.clients))
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects everyone and rejects new clients
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
