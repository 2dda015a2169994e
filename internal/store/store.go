// Package store persists chat messages and serves recent history. The relay
// treats it as a batch-write collaborator: a batch either commits as a unit or
// fails as a unit, so the pending queue can retry the whole thing.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one chat utterance. Immutable once created; InsertedAt is assigned
// at submission time and orders history reads.
type Message struct {
	ID         uuid.UUID `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Store is the durability collaborator consumed by the flusher and the history
// API. SaveBatch must be atomic: on any error the caller assumes nothing from
// the batch was persisted and retries the whole batch.
type Store interface {
	SaveBatch(ctx context.Context, msgs []Message) error
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	Close()
}
