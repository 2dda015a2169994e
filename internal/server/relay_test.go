package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsechat/relay/internal/queue"
)

func TestSubmitEnqueuesAndBroadcasts(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	q := queue.NewPending()
	relay := NewRelay(h, q, nil, testLogger())

	c := newTestClient(h, "u2")
	h.Join(c, "general")

	msg := relay.Submit(context.Background(), "general", "u1", "hello there")

	// Enqueued for durability.
	pending := q.Snapshot()
	req.Len(pending, 1)
	req.Equal(msg.ID, pending[0].ID)
	req.Equal("general", pending[0].ChatID)
	req.Equal("u1", pending[0].SenderID)
	req.Equal("hello there", pending[0].Content)
	req.False(pending[0].InsertedAt.IsZero())

	// Broadcast to the room with matching fields.
	var ev NewMessageEvent
	req.NoError(json.Unmarshal(<-c.send, &ev))
	req.Equal(EventNewMessage, ev.Type)
	req.Equal("general", ev.ChatID)
	req.Equal("u1", ev.SenderID)
	req.Equal("hello there", ev.Content)
	req.True(ev.InsertedAt.Equal(msg.InsertedAt))
}

func TestSubmitBroadcastsToSenderToo(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	q := queue.NewPending()
	relay := NewRelay(h, q, nil, testLogger())

	sender := newTestClient(h, "u1")
	h.Join(sender, "general")

	relay.Submit(context.Background(), "general", "u1", "echo")
	req.Len(sender.send, 1, "the sender's connection receives its own message")
}

func TestSubmitTimestampsAreNonDecreasing(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	q := queue.NewPending()
	relay := NewRelay(h, q, nil, testLogger())

	var last time.Time
	for i := 0; i < 10; i++ {
		m := relay.Submit(context.Background(), "general", "u1", "tick")
		req.False(m.InsertedAt.Before(last))
		last = m.InsertedAt
	}
}

func TestSubmitEnqueuesEvenWithEmptyRoom(t *testing.T) {
	req := require.New(t)
	h := NewHub(testLogger())
	q := queue.NewPending()
	relay := NewRelay(h, q, nil, testLogger())

	relay.Submit(context.Background(), "empty-room", "u1", "anyone here?")
	req.Equal(1, q.Len(), "durability does not depend on anyone watching")
}
