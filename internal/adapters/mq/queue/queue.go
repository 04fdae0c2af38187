// Package queue defines the contract for enqueuing and consuming hook
// dispatches.
//
// Conflict resolution produces dispatch records for the winning occurrence of
// each overlap group; consumers drain them asynchronously so temporal queries
// never block on hook delivery.
package queue

import (
	"context"
	"sync"

	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/timestamp"
	"github.com/okian/almanac/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
	defaultBufferSize    = 4096
)

// Dispatch is the payload type flowing through the queue. It carries the
// hooks of the occurrence that won an overlap group, already ordered by hook
// priority, plus the effects that apply while it is active.
type Dispatch struct {
	SourceID   string
	SourceKind string
	CalendarID string
	Start      timestamp.Timestamp
	Hooks      []hook.Descriptor
	Effects    []phenomenon.Effect
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a dispatch record to the queue.
	// Returns false if the queue is full and the record was not enqueued.
	Enqueue(ctx context.Context, d Dispatch) bool

	// Dequeue returns a channel that will receive records as they become
	// available. The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Dispatch

	// Len returns the current number of queued records.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new records can be enqueued and the dequeue channel
	// will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	records    chan Dispatch
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.records = make(chan Dispatch, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a dispatch record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, d Dispatch) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	if len(q.records) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.records <- d:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.records)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that will receive records as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Dispatch {
	out := make(chan Dispatch)
	go func() {
		defer close(out)
		for d := range q.records {
			select {
			case out <- d:
				metrics.RecordQueueDequeue()
				currentSize := len(q.records)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.records)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.records)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
