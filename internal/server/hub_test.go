package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient creates a client without a network connection and registers
// it with the hub's client set directly, skipping the pump goroutines.
func newTestClient(h *Hub, userID string) *Client {
	c := NewClient(nil, h, userID, "test:"+userID, NewConfig(), testLogger())
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func memberIDs(h *Hub, chatID string) map[string]bool {
	ids := make(map[string]bool)
	for _, c := range h.Members(chatID) {
		ids[c.UserID()] = true
	}
	return ids
}

func TestJoinMovesClientBetweenRooms(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")

	h.Join(c, "room-a")
	req.True(memberIDs(h, "room-a")["u1"])
	req.Equal("room-a", c.CurrentChat())

	h.Join(c, "room-b")
	req.False(memberIDs(h, "room-a")["u1"], "client must leave room-a on joining room-b")
	req.True(memberIDs(h, "room-b")["u1"])
	req.Equal("room-b", c.CurrentChat())
}

func TestJoinSameRoomTwiceKeepsSingleMembership(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")

	h.Join(c, "room-a")
	h.Join(c, "room-a")

	req.Len(h.Members("room-a"), 1)
}

func TestLeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")

	h.Join(c, "room-a")
	h.Leave(c)
	req.Empty(h.Members("room-a"))

	// Duplicate close events must not error or change state.
	h.Leave(c)
	req.Empty(h.Members("room-a"))
	req.Empty(c.CurrentChat())
}

func TestMembersOfUnknownRoomIsEmpty(t *testing.T) {
	h := NewHub(testLogger())
	require.Empty(t, h.Members("never-seen"))
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c1 := newTestClient(h, "u1")
	c2 := newTestClient(h, "u2")
	other := newTestClient(h, "u3")

	h.Join(c1, "room-a")
	h.Join(c2, "room-a")
	h.Join(other, "room-b")

	payload := []byte(`{"type":"new_message"}`)
	h.Broadcast("room-a", payload)

	req.Equal(payload, <-c1.send)
	req.Equal(payload, <-c2.send)
	req.Empty(other.send, "a connection in a different room receives nothing")
}

func TestBroadcastDeliversAtMostOncePerCall(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")
	h.Join(c, "room-a")

	h.Broadcast("room-a", []byte("one"))
	req.Len(c.send, 1)
}

func TestBroadcastSkipsUnwritableRecipient(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	full := newTestClient(h, "u1")
	full.send = make(chan []byte) // unbuffered and never read: not writable
	ok := newTestClient(h, "u2")

	h.Join(full, "room-a")
	h.Join(ok, "room-a")

	h.Broadcast("room-a", []byte("hello"))
	req.Len(ok.send, 1, "one bad recipient must not abort delivery to the rest")
}

func TestBroadcastSkipsUnregisteredClient(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")
	h.Join(c, "room-a")
	h.Unregister(c)

	// Unregister left the room synchronously; the broadcast sees no one.
	req.Empty(h.Members("room-a"))
	h.Broadcast("room-a", []byte("late"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(testLogger())
	c := newTestClient(h, "u1")
	h.Join(c, "room-a")

	h.Unregister(c)
	h.Unregister(c) // second close event; must not panic on the closed channel
	require.Empty(t, h.Members("room-a"))
}
