package webui

import "sync"

// CircularBuffer is a fixed-capacity FIFO that overwrites its oldest entry
// when full. Safe for concurrent use.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	data     []T
	capacity int
	size     int
	head     int // next write
	tail     int // oldest
}

// NewCircularBuffer panics if capacity < 1.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity < 1 {
		panic("CircularBuffer capacity must be at least 1")
	}
	return &CircularBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends item, evicting the oldest entry when full.
func (b *CircularBuffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	} else {
		b.tail = (b.tail + 1) % b.capacity
	}
}

// All returns the contents, oldest first.
func (b *CircularBuffer[T]) All() []T {
	return b.Last(b.Capacity())
}

// Last returns up to n most recent entries, oldest first.
func (b *CircularBuffer[T]) Last(n int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.data[(b.tail+start+i)%b.capacity]
	}
	return out
}

// Size returns the number of stored entries.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity is immutable.
func (b *CircularBuffer[T]) Capacity() int {
	return b.capacity
}
