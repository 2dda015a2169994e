// Package server implements the real-time relay core: authenticated WebSocket
// connections, the room registry, best-effort broadcast, and the submission
// entry point feeding the write-behind queue.
//
// The implementation is organized into specialized files for configuration,
// hub and room management, clients, the relay, routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server
