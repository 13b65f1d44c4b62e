package db

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultChannelCapacity is the default buffer size for queued writes.
const DefaultChannelCapacity = 100

// AsyncWriter applies writes on a background goroutine so request
// handlers never wait on the database. Write never blocks; a full queue
// drops the item and reports false.
type AsyncWriter[T any] struct {
	queue   chan T
	handler func(T) error
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	stopped   atomic.Bool
}

// NewAsyncWriter creates a writer. capacity < 1 uses DefaultChannelCapacity.
func NewAsyncWriter[T any](handler func(T) error, capacity int, logger *zap.Logger) *AsyncWriter[T] {
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncWriter[T]{
		queue:   make(chan T, capacity),
		handler: handler,
		logger:  logger.Named("async_writer"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the background goroutine. Repeated calls are no-ops.
func (w *AsyncWriter[T]) Start() {
	w.startOnce.Do(func() { go w.run() })
}

func (w *AsyncWriter[T]) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			w.drain()
			return
		case item := <-w.queue:
			w.apply(item)
		}
	}
}

func (w *AsyncWriter[T]) drain() {
	for {
		select {
		case item := <-w.queue:
			w.apply(item)
		default:
			return
		}
	}
}

func (w *AsyncWriter[T]) apply(item T) {
	if err := w.handler(item); err != nil {
		w.logger.Error("Async write failed", zap.Error(err))
	}
}

// Write queues item. It returns false when the queue is full or the writer
// has stopped.
func (w *AsyncWriter[T]) Write(item T) bool {
	if w.stopped.Load() {
		return false
	}
	select {
	case w.queue <- item:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued writes.
func (w *AsyncWriter[T]) Pending() int {
	return len(w.queue)
}

// Stop drains queued writes and waits up to timeout for the goroutine to
// finish. It reports whether the drain completed. A writer that was never
// started is drained inline.
func (w *AsyncWriter[T]) Stop(timeout time.Duration) bool {
	w.stopped.Store(true)
	w.startOnce.Do(func() { close(w.done) })
	w.stopOnce.Do(func() { close(w.stop) })

	select {
	case <-w.done:
	case <-time.After(timeout):
		return false
	}
	// catches writes that raced with stop, or a writer never started
	w.drain()
	return true
}
