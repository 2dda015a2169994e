package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/pulsechat/relay/internal/metrics"
	"github.com/pulsechat/relay/internal/store"
)

// Flusher drains the pending queue into storage on a fixed interval. A single
// goroutine owns the loop and calls the store synchronously, so two flush
// cycles can never overlap: a tick that fires while a write is in flight is
// absorbed by the ticker.
type Flusher struct {
	queue    *Pending
	store    store.Store
	interval time.Duration
	log      *slog.Logger
}

// NewFlusher creates a flusher for the given queue and store. Intervals at or
// below zero fall back to one second.
func NewFlusher(q *Pending, s store.Store, interval time.Duration, log *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Flusher{queue: q, store: s, interval: interval, log: log}
}

// Run ticks until ctx is cancelled, then makes one final drain attempt with a
// bounded deadline so a graceful shutdown does not strand accepted messages.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.FlushOnce(ctx)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			f.FlushOnce(drainCtx)
			cancel()
			return
		}
	}
}

// FlushOnce takes the current batch and attempts a single storage write. On
// failure the batch goes back to the front of the queue for the next cycle;
// nothing is ever dropped. Returns the storage error, nil on success or when
// the queue was empty.
func (f *Flusher) FlushOnce(ctx context.Context) error {
	batch := f.queue.TakeBatch()
	if len(batch) == 0 {
		return nil
	}

	metrics.FlushBatches.Inc()
	if err := f.store.SaveBatch(ctx, batch); err != nil {
		f.queue.Requeue(batch)
		metrics.FlushFailures.Inc()
		f.log.Error("flush.failed", "count", len(batch), "err", err)
		return err
	}

	f.log.Debug("flush.saved", "count", len(batch))
	return nil
}
