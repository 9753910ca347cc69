// Package ring provides the bounded FIFO the engine publishes completed
// executions into for the live feed job. Dropping on overflow is
// acceptable here: durable delivery goes through the exit WAL.
package ring

import "sync"

type Buffer[T any] struct {
	mu   sync.Mutex
	buf  []T
	head uint64
	tail uint64
	mask uint64
}

func New[T any](size uint64) *Buffer[T] {
	if size == 0 || size&(size-1) != 0 {
		panic("ring: size must be a power of two")
	}
	return &Buffer[T]{
		buf:  make([]T, size),
		mask: size - 1,
	}
}

// Enqueue returns false when the buffer is full.
func (r *Buffer[T]) Enqueue(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head-r.tail == uint64(len(r.buf)) {
		return false
	}
	r.buf[r.head&r.mask] = v
	r.head++
	return true
}

// Dequeue returns the oldest element, or ok=false when empty.
func (r *Buffer[T]) Dequeue() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.tail == r.head {
		return zero, false
	}
	v := r.buf[r.tail&r.mask]
	r.buf[r.tail&r.mask] = zero
	r.tail++
	return v, true
}

func (r *Buffer[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.head - r.tail)
}
