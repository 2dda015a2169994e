// Package metrics exposes the relay's Prometheus instruments. Durability
// failures are invisible to end users, so these counters are the only place
// a stalled storage backend becomes observable.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BroadcastsDelivered counts events handed to a live connection's send
	// buffer. Skipped recipients are not counted.
	BroadcastsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_broadcasts_delivered_total",
		Help: "Events delivered to connection send buffers.",
	})

	// FlushBatches counts flush cycles that attempted a storage write.
	FlushBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_flush_batches_total",
		Help: "Write-behind flush attempts (non-empty batches).",
	})

	// FlushFailures counts batches returned to the queue for retry.
	FlushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_flush_failures_total",
		Help: "Write-behind batches that failed and were requeued.",
	})

	// QueueDepth tracks messages accepted but not yet confirmed durable.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_pending_queue_depth",
		Help: "Messages buffered for the next flush cycle.",
	})

	// Connections tracks currently registered WebSocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections",
		Help: "Registered WebSocket connections.",
	})
)

// Handler exposes the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
