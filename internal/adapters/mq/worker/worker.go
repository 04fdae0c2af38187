// Package worker drains the dispatch queue and hands each record to a
// Dispatcher.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/almanac/internal/adapters/mq/queue"
	"github.com/okian/almanac/pkg/logger"
	"github.com/okian/almanac/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Dispatch abstracts what workers read off the queue.
type Dispatch = queue.Dispatch

// Dispatcher delivers the hooks and effects of a dispatch record. The
// transport is up to the implementation; the default logs each record.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Dispatch) error
}

// Queue defines how workers receive dispatch records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Dispatch
}

// Worker consumes dispatch records until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing dispatch records.
type InMemoryWorker struct {
	queue      Queue
	dispatcher Dispatcher
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, dispatcher Dispatcher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		dispatcher: dispatcher,
		name:       "worker", // default name
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case d, ok := <-records:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.process(ctx, d); err != nil {
				w.logger.Error(ctx, "error processing dispatch", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process hands a single record to the dispatcher.
func (w *InMemoryWorker) process(ctx context.Context, d Dispatch) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordDispatchLatency(float64(latency))
	}()

	if err := w.dispatcher.Dispatch(ctx, d); err != nil {
		metrics.RecordDispatchError()
		w.logger.Error(ctx, "dispatch failed",
			logger.String("sourceID", d.SourceID),
			logger.Error(err),
		)
		return fmt.Errorf("dispatch for %s failed: %w", d.SourceID, err)
	}

	metrics.RecordHooksDispatched(len(d.Hooks))

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	dispatcher Dispatcher

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, dispatcher Dispatcher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      q,
		dispatcher: dispatcher,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			dispatcher,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new records
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
