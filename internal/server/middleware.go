package server

import (
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/pulsechat/relay/internal/auth"
)

// Middleware holds the shared CORS and auth layers for the gateway API.
type Middleware struct {
	cors *cors.Cors
	jwt  *auth.JWT
}

// NewMiddleware builds the middleware stack from config.
func NewMiddleware(cfg Config, jwt *auth.JWT) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		jwt: jwt,
	}
}

// Wrap applies CORS to a handler.
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(h)
}

// Auth enforces a Bearer token and adds the user id to the request context.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		uid, err := m.jwt.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), uid)))
	})
}
