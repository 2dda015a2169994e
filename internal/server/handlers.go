// Package server exposes HTTP handlers, including the authenticated WebSocket
// upgrade, health check, and the message gateway API.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsechat/relay/internal/auth"
	"github.com/pulsechat/relay/internal/store"
)

// Close reasons for rejected handshakes. Distinct by cause so clients can
// tell a missing credential from a bad one.
const (
	closeReasonNoToken      = "no token provided"
	closeReasonInvalidToken = "invalid token"
)

// API bundles the handlers with their collaborators.
type API struct {
	cfg      Config
	log      *slog.Logger
	hub      *Hub
	relay    *Relay
	store    store.Store
	jwt      *auth.JWT
	upgrader websocket.Upgrader
}

// NewAPI builds the handler set. The upgrader enforces the configured origin
// allowlist.
func NewAPI(cfg Config, log *slog.Logger, hub *Hub, relay *Relay, st store.Store, jwt *auth.JWT) *API {
	policy := newOriginPolicy(cfg.AllowedOrigins, log)
	return &API{
		cfg:   cfg,
		log:   log,
		hub:   hub,
		relay: relay,
		store: st,
		jwt:   jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
	}
}

// ServeWS upgrades the connection, then authenticates the bearer token from
// the token query parameter. A connection that fails the check is closed with
// a policy-violation frame before it is registered anywhere: it is never
// visible to the room registry or the dispatcher.
func (a *API) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("ws.upgrade", "err", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		a.reject(conn, closeReasonNoToken)
		return
	}

	userID, err := a.jwt.Verify(token)
	if err != nil {
		a.log.Debug("ws.token.invalid", "addr", r.RemoteAddr, "err", err)
		a.reject(conn, closeReasonInvalidToken)
		return
	}

	client := NewClient(conn, a.hub, userID, r.RemoteAddr, a.cfg, a.log)
	a.hub.Register(client)
}

// reject closes an unauthenticated connection with a 1008 close frame.
func (a *API) reject(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !isExpectedCloseError(err) {
		a.log.Debug("ws.reject.write", "err", err)
	}
	if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
		a.log.Debug("ws.reject.close", "err", err)
	}
}

// Health provides a simple health check endpoint that returns server status.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "PulseChat relay is running!")
}

type postMessageReq struct {
	Content string `json:"content"`
}

// PostMessage accepts a message submission for a chat: enqueued for
// durability and broadcast to the room, both unconditionally. Responds with
// the created message; from the sender's perspective submission always
// succeeds immediately.
func (a *API) PostMessage(w http.ResponseWriter, r *http.Request) {
	senderID := auth.UserID(r.Context())
	if senderID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID := r.PathValue("id")
	if chatID == "" {
		http.Error(w, "chat id required", http.StatusBadRequest)
		return
	}

	var req postMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	msg := a.relay.Submit(r.Context(), chatID, senderID, req.Content)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		a.log.Warn("response.encode", "err", err)
	}
}

// ListMessages returns recent history for a chat, newest first.
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if chatID == "" {
		http.Error(w, "chat id required", http.StatusBadRequest)
		return
	}

	limit := a.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	msgs, err := a.store.RecentMessages(r.Context(), chatID, limit)
	if err != nil {
		a.log.Error("history.query", "chat", chatID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, a.log, msgs)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("response.encode", "err", err)
	}
}
