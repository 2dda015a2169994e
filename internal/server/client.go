// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents one authenticated WebSocket connection. The owning user
// id is set at authentication and immutable afterwards; the current room is
// mutable and guarded by its own mutex.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	log    *slog.Logger
	userID string
	addr   string
	closed bool // guarded by hub.mu

	roomMu sync.Mutex
	room   *Room

	maxMessageSize int64
	limiter        *tokenBucket
	rateLimit      RateLimitConfig
}

// NewClient wraps an accepted, authenticated connection. The send channel is
// buffered so broadcasts never block on a single slow consumer.
func NewClient(conn *websocket.Conn, hub *Hub, userID, addr string, cfg Config, log *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		log:            log,
		userID:         userID,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newTokenBucket(cfg.RateLimit()),
		rateLimit:      cfg.RateLimit(),
	}
}

// UserID returns the authenticated owner of this connection.
func (c *Client) UserID() string { return c.userID }

// CurrentChat returns the chat id the connection is watching, or "".
func (c *Client) CurrentChat() string {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	if c.room == nil {
		return ""
	}
	return c.room.ID()
}

// setRoom swaps the current room pointer and returns the previous one.
func (c *Client) setRoom(rm *Room) *Room {
	c.roomMu.Lock()
	prev := c.room
	c.room = rm
	c.roomMu.Unlock()
	return prev
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.log.Warn("read.deadline", "addr", c.addr, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.log.Warn("pong.deadline", "addr", c.addr, "err", err)
		}
		return nil
	})
}

// handleReadError classifies a read error and returns true if the read loop
// should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("read.oversize", "addr", c.addr, "limit", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Debug("client.disconnected", "addr", c.addr, "err", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Debug("client.connection.closed", "addr", c.addr, "err", err)
		return true
	}

	c.log.Warn("ws.read", "addr", c.addr, "err", err)
	return true
}

// checkRateLimit returns true if the inbound frame may be processed.
func (c *Client) checkRateLimit() bool {
	ok, left := c.limiter.allow()
	if !ok {
		c.log.Warn("ratelimit.exceeded", "addr", c.addr, "remaining", left,
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
	}
	return ok
}

// processEvent parses an inbound frame and applies it. Malformed frames and
// unknown types are discarded; the connection stays open.
func (c *Client) processEvent(raw []byte) {
	var ev InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.log.Debug("event.malformed", "addr", c.addr, "err", err)
		return
	}

	switch ev.Type {
	case EventJoin:
		if ev.ChatID == "" {
			c.log.Debug("event.join.empty_chat", "addr", c.addr)
			return
		}
		c.hub.Join(c, ev.ChatID)
	default:
		c.log.Debug("event.unknown", "addr", c.addr, "type", ev.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		// Leave the room before the connection close completes so no future
		// broadcast sees a stale handle.
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("readpump.close", "addr", c.addr, "err", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("writepump.close", "addr", c.addr, "err", err)
	}
}

// handleMessage writes an outbound event, or the close frame when the send
// channel has been closed by the hub.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("write.deadline", "addr", c.addr, "err", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("write.close", "addr", c.addr, "err", err)
		}
	}
	return false
}

// writeTextMessage writes the event and coalesces any queued events into the
// same frame, newline separated.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warn("write.writer", "addr", c.addr, "err", err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		c.log.Warn("write.payload", "addr", c.addr, "err", err)
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.log.Warn("write.separator", "addr", c.addr, "err", err)
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.log.Warn("write.queued", "addr", c.addr, "err", err)
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Warn("write.flush", "addr", c.addr, "err", err)
		return false
	}
	return true
}

// handlePing keeps the connection alive between events.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("ping.deadline", "addr", c.addr, "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("ping.write", "addr", c.addr, "err", err)
		}
		return false
	}
	return true
}
