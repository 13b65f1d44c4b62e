package shutdown

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when a run starts after shutdown began.
var ErrTrackerClosed = errors.New("shutdown: not accepting new runs")

// ErrWaitTimeout is returned when in-flight runs outlast the timeout.
var ErrWaitTimeout = errors.New("shutdown: in-flight runs did not finish in time")

// Operation is an in-flight unit of work.
type Operation struct {
	ID      uint64    `json:"id"`
	Name    string    `json:"name"`
	Started time.Time `json:"started"`
}

// OperationTracker counts in-flight operations and refuses new ones once
// closed.
//
// Thread Safety: all methods are safe for concurrent use.
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	nextID uint64
	active map[uint64]Operation
	closed bool
}

// NewOperationTracker creates an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{active: make(map[uint64]Operation)}
}

// Start registers an operation. ok is false after Close.
func (t *OperationTracker) Start(name string) (id uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, false
	}
	t.nextID++
	t.active[t.nextID] = Operation{ID: t.nextID, Name: name, Started: time.Now()}
	t.wg.Add(1)
	return t.nextID, true
}

// Done marks operation id finished.
func (t *OperationTracker) Done(id uint64) {
	t.mu.Lock()
	if _, ok := t.active[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.active, id)
	t.mu.Unlock()
	t.wg.Done()
}

// Wait blocks until every operation is done or timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}

// Close stops accepting new operations.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// IsClosed reports whether Close was called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// ActiveCount returns the number of in-flight operations.
func (t *OperationTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Active lists in-flight operations, oldest first.
func (t *OperationTracker) Active() []Operation {
	t.mu.Lock()
	ops := make([]Operation, 0, len(t.active))
	for _, op := range t.active {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops
}
