// Package auth verifies the bearer credentials presented on WebSocket
// handshakes and API requests, and carries the authenticated user through
// request contexts.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when a token verifies but carries no user identity.
var ErrNoSubject = errors.New("token has no subject")

type ctxKey int

const userKey ctxKey = 1

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userKey, uid)
}

// UserID extracts the authenticated user id from the context, or "" if the
// request was not authenticated.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userKey).(string)
	return uid
}

// JWT signs and verifies HS256 tokens against a shared secret.
type JWT struct {
	secret []byte
}

// New creates a signer/verifier for the given secret.
func New(secret string) *JWT { return &JWT{secret: []byte(secret)} }

// Verify checks the token's signature and expiry and returns the subject
// (user id) claim.
func (j *JWT) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// Sign issues a token for uid valid for ttl. Used by tests and dev tooling;
// production tokens come from the identity provider sharing the secret.
func (j *JWT) Sign(uid string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", ErrNoSubject
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
