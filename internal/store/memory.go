package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used when no database is configured and in
// tests. Same contract as Postgres: SaveBatch is all-or-nothing (it cannot
// fail), RecentMessages returns newest first.
type Memory struct {
	mu       sync.RWMutex
	messages map[string][]Message // chatID -> messages in arrival order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{messages: make(map[string][]Message)}
}

func (m *Memory) SaveBatch(_ context.Context, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
	}
	return nil
}

func (m *Memory) RecentMessages(_ context.Context, chatID string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.messages[chatID]
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]Message, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Memory) Close() {}
