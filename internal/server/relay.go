package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsechat/relay/internal/queue"
	"github.com/pulsechat/relay/internal/store"
)

// Relay is the submission entry point the request gateway calls. Every
// accepted submission is both enqueued for durability and broadcast to the
// room, unconditionally; the two paths are deliberately decoupled so a slow
// or failing store never delays delivery.
type Relay struct {
	hub   *Hub
	queue *queue.Pending
	bus   *RedisBus // nil when cross-instance fanout is disabled
	log   *slog.Logger
	now   func() time.Time
}

// NewRelay wires the relay to its hub, pending queue, and optional bus.
func NewRelay(hub *Hub, q *queue.Pending, bus *RedisBus, log *slog.Logger) *Relay {
	return &Relay{hub: hub, queue: q, bus: bus, log: log, now: time.Now}
}

// Submit accepts a message: assigns its id and submission timestamp, enqueues
// it for the next flush cycle, and fans the new_message event out to the
// room's current members, the sender included. From the sender's perspective
// this always succeeds; durability failures surface only through the flusher's
// logs and metrics.
func (r *Relay) Submit(ctx context.Context, chatID, senderID, content string) store.Message {
	msg := store.Message{
		ID:         uuid.New(),
		ChatID:     chatID,
		SenderID:   senderID,
		Content:    content,
		InsertedAt: r.now().UTC(),
	}

	r.queue.Enqueue(msg)

	payload, err := json.Marshal(NewMessageEvent{
		Type:       EventNewMessage,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		Content:    msg.Content,
		InsertedAt: msg.InsertedAt,
	})
	if err != nil {
		// Marshal of a plain struct cannot realistically fail; the message is
		// already queued for durability either way.
		r.log.Error("relay.event.marshal", "err", err)
		return msg
	}

	r.hub.Broadcast(chatID, payload)

	if r.bus != nil {
		if err := r.bus.Publish(ctx, chatID, payload); err != nil {
			r.log.Warn("relay.bus.publish", "chat", chatID, "err", err)
		}
	}
	return msg
}
