package archive

import "sync"

// Buffer is a growable ring buffer between the feed's read goroutine and a
// writer. Send never blocks: once the buffer passes 70% of capacity it
// doubles, trading memory for backpressure that would otherwise reach the
// connection.
type Buffer[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	accepted  int64
	delivered int64
	resizes   int
}

// NewBuffer returns a buffer with the given initial capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Send enqueues one item, growing the buffer if needed. It reports false
// once the buffer is closed.
func (b *Buffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.accepted++
	return true
}

// TryReceive dequeues one item without blocking. Items queued before Close
// remain receivable after it.
func (b *Buffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.count == 0 {
		return zero, false
	}

	item := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.delivered++
	return item, true
}

// Close rejects further sends.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the number of queued items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// BufferStats is a snapshot of buffer activity.
type BufferStats struct {
	Len       int
	Capacity  int
	Accepted  int64
	Delivered int64
	Resizes   int
}

// Stats returns a snapshot of buffer activity.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Len:       b.count,
		Capacity:  b.capacity,
		Accepted:  b.accepted,
		Delivered: b.delivered,
		Resizes:   b.resizes,
	}
}

// grow doubles capacity and linearizes the ring. Caller holds the lock.
func (b *Buffer[T]) grow() {
	bigger := make([]T, b.capacity*2)
	if b.count > 0 {
		if b.head < b.tail {
			copy(bigger, b.items[b.head:b.tail])
		} else {
			n := copy(bigger, b.items[b.head:])
			copy(bigger[n:], b.items[:b.tail])
		}
	}
	b.items = bigger
	b.head = 0
	b.tail = b.count
	b.capacity *= 2
	b.resizes++
}
