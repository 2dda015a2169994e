// Package server wires HTTP handlers into a ServeMux for the relay
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/pulsechat/relay/internal/metrics"
)

// NewRouter configures all application routes: health check, WebSocket
// endpoint, message gateway API, and metrics. CORS wraps the whole mux.
func NewRouter(api *API, mw *Middleware) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", api.Health)
	mux.HandleFunc("/ws", api.ServeWS)
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/chats/{id}/messages", mw.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			api.PostMessage(w, r)
		case http.MethodGet:
			api.ListMessages(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	return mw.Wrap(mux)
}
