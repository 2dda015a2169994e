// Package server coordinates connection registration, room membership, and
// message broadcast for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsechat/relay/internal/metrics"
)

// Hub owns the room registry and the set of live connections. Membership
// operations are synchronous: when Leave returns, no future broadcast will
// iterate over that connection. Delivery is best-effort; durability is the
// write-behind queue's job, never the hub's.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex // guards clients and the rooms map
	clients map[*Client]bool
	rooms   map[string]*Room

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a Hub ready to manage connections.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:     log,
		clients: make(map[*Client]bool),
		rooms:   make(map[string]*Room),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds an authenticated client and launches its pump goroutines.
// Only called after the credential check has passed; a rejected connection
// never reaches the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	c.closed = false
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.Connections.Set(float64(count))
	h.log.Info("client.registered", "user", c.userID, "addr", c.addr, "total", count)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// Unregister removes a client from its room and from the hub, then closes its
// send channel. Room removal happens first and synchronously, so the close
// never races a broadcast into a stale handle. Idempotent.
func (h *Hub) Unregister(c *Client) {
	h.Leave(c)

	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.closed = true
	count := len(h.clients)
	h.mu.Unlock()

	// Close the channel after releasing the lock.
	close(c.send)
	metrics.Connections.Set(float64(count))
	h.log.Info("client.unregistered", "user", c.userID, "addr", c.addr, "total", count)
}

// Join moves the client into the room for chatID, creating the room lazily.
// The client leaves whatever room it previously occupied: a connection
// belongs to at most one room at any instant. Safe to call repeatedly for the
// same room.
func (h *Hub) Join(c *Client, chatID string) {
	h.mu.Lock()
	rm := h.rooms[chatID]
	if rm == nil {
		rm = newRoom(chatID)
		h.rooms[chatID] = rm
	}
	h.mu.Unlock()

	prev := c.setRoom(rm)
	if prev == rm {
		// Re-join of the current room; set insertion keeps it single.
		rm.add(c)
		return
	}
	if prev != nil {
		prev.remove(c)
	}
	rm.add(c)
	h.log.Debug("client.joined", "user", c.userID, "chat", chatID, "members", rm.size())
}

// Leave removes the client from its current room, if any. Idempotent;
// duplicate close events are harmless.
func (h *Hub) Leave(c *Client) {
	if prev := c.setRoom(nil); prev != nil {
		prev.remove(c)
	}
}

// Members returns a snapshot of the connections watching chatID. An unknown
// chat behaves as an empty room.
func (h *Hub) Members(chatID string) []*Client {
	h.mu.RLock()
	rm := h.rooms[chatID]
	h.mu.RUnlock()
	if rm == nil {
		return nil
	}
	return rm.snapshot()
}

// Broadcast delivers payload to every connection currently in the room, at
// most once each. A recipient whose send buffer is full or whose channel has
// closed is skipped; one bad recipient never aborts delivery to the rest.
func (h *Hub) Broadcast(chatID string, payload []byte) {
	members := h.Members(chatID)
	if len(members) == 0 {
		return
	}

	delivered := 0
	for _, c := range members {
		if h.safeSend(c, payload) {
			delivered++
		}
	}
	metrics.BroadcastsDelivered.Add(float64(delivered))
	h.log.Debug("broadcast", "chat", chatID, "members", len(members), "delivered", delivered)
}

func (h *Hub) safeSend(c *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("broadcast.send.recovered", "panic", r)
		}
	}()

	// Hold the lock during the send so an unregister cannot close the channel
	// mid-write.
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, exists := h.clients[c]; !exists || c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		// Slow consumer; broadcast carries no delivery guarantee.
		return false
	}
}

// shutdownClients closes every live connection, unblocking their read pumps.
func (h *Hub) shutdownClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("client.close", "addr", c.addr, "err", err)
			}
		}
	}
	h.log.Info("clients.closed", "count", len(clients))
}

// Shutdown closes all client connections and waits for their goroutines to
// finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("hub.shutdown.start")
	h.cancel()
	h.shutdownClients()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub.shutdown.complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub.shutdown.timeout")
		return context.DeadlineExceeded
	}
}
