package server

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger with formatting and level based on env:
// JSON at Info in prod, Text at Debug otherwise.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
