// Package queue implements the write-behind buffer between the relay and
// durable storage. The queue is the sole source of truth for "accepted but not
// yet durable": entries leave it only when a flush cycle confirms the batch
// that contained them.
package queue

import (
	"sync"

	"github.com/pulsechat/relay/internal/metrics"
	"github.com/pulsechat/relay/internal/store"
)

// Pending is an ordered buffer of messages awaiting durability. TakeBatch and
// Requeue are the only operations that change the head; Enqueue only appends
// at the tail. All three are safe for concurrent use.
type Pending struct {
	mu      sync.Mutex
	entries []store.Message
}

// NewPending creates an empty queue.
func NewPending() *Pending {
	return &Pending{}
}

// Enqueue appends a message at the tail. The queue is unbounded: dropping is
// never the queue's decision.
func (q *Pending) Enqueue(m store.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, m)
	q.publishDepth()
}

// Len reports the current number of buffered messages.
func (q *Pending) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// TakeBatch atomically removes and returns the entire current contents.
// Messages enqueued after the call belong to a later batch. Returns nil when
// the queue is empty.
func (q *Pending) TakeBatch() []store.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.entries
	q.entries = nil
	q.publishDepth()
	return batch
}

// Requeue reinserts a failed batch at the front, preserving its internal
// order ahead of anything that arrived during the failed attempt.
func (q *Pending) Requeue(batch []store.Message) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]store.Message, 0, len(batch)+len(q.entries))
	merged = append(merged, batch...)
	merged = append(merged, q.entries...)
	q.entries = merged
	q.publishDepth()
}

// publishDepth pushes the current depth to the gauge. Called with q.mu held
// so concurrent mutations cannot publish out of order.
func (q *Pending) publishDepth() {
	metrics.QueueDepth.Set(float64(len(q.entries)))
}

// Snapshot returns a copy of the buffered messages in order, for tests and
// introspection.
func (q *Pending) Snapshot() []store.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]store.Message, len(q.entries))
	copy(out, q.entries)
	return out
}
