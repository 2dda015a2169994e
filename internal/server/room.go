package server

import "sync"

// Room is the set of connections currently watching one chat. Created lazily
// on first join and retained when empty. Each room has its own lock so
// membership changes in one room never block another.
type Room struct {
	id      string
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func newRoom(id string) *Room {
	return &Room{id: id, clients: make(map[*Client]struct{})}
}

// ID returns the chat identifier this room serves.
func (r *Room) ID() string { return r.id }

func (r *Room) add(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

func (r *Room) remove(c *Client) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// snapshot copies the member set so a broadcast can iterate without holding
// the lock while it writes to send buffers.
func (r *Room) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		members = append(members, c)
	}
	return members
}
