// Package server defines the event frames exchanged over the persistent
// connection and utility helpers reused across client and hub logic.
package server

import (
	"strings"
	"time"
)

// Event frame type discriminators.
const (
	EventJoin       = "join"
	EventNewMessage = "new_message"
)

// InboundEvent is the V1 JSON frame a client sends over the socket. Only
// "join" is recognized; anything else is discarded.
type InboundEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

// NewMessageEvent is the outbound frame fanned out to every member of a room
// when a message is submitted, the sender included.
type NewMessageEvent struct {
	Type       string    `json:"type"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	InsertedAt time.Time `json:"inserted_at"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
