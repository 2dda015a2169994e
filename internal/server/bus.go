package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// busEnvelope is the wire format on the Redis channel. Origin identifies the
// publishing instance so a subscriber can skip its own messages; without the
// filter every local member would receive each event twice.
type busEnvelope struct {
	Origin  string          `json:"origin"`
	ChatID  string          `json:"chat_id"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus fans broadcast events out across relay instances over pub/sub.
// Delivery is best-effort, same as the local dispatcher.
type RedisBus struct {
	rdb    *redis.Client
	origin string
	log    *slog.Logger
}

// NewRedisBus connects to redis and verifies connectivity.
func NewRedisBus(ctx context.Context, addr string, db int, log *slog.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisBus{rdb: rdb, origin: uuid.NewString(), log: log}, nil
}

// Publish sends an already-marshaled event to the channel for a chat.
func (b *RedisBus) Publish(ctx context.Context, chatID string, payload []byte) error {
	raw, err := json.Marshal(busEnvelope{Origin: b.origin, ChatID: chatID, Payload: payload})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, busChannel(chatID), raw).Err()
}

// Subscribe listens on all chat channels and invokes fn for every event
// published by another instance. Blocks until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(chatID string, payload []byte)) {
	pubsub := b.rdb.PSubscribe(ctx, busChannel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("bus.malformed", "err", err)
				continue
			}
			if env.Origin == b.origin || env.ChatID == "" {
				continue
			}
			fn(env.ChatID, env.Payload)
		}
	}
}

// Close shuts down the redis connection.
func (b *RedisBus) Close() { _ = b.rdb.Close() }

func busChannel(chatID string) string { return "chat:" + chatID }
