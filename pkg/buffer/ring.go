// Package buffer provides the lock-free, allocation-free containers the
// engine uses to move data across the audio/frontend/helper thread boundary.
package buffer

import "sync/atomic"

// Ring is a fixed-capacity, lock-free single-producer/single-consumer queue.
// Capacity is rounded up to the next power of two so index wrapping can use a
// bitmask instead of a modulo. Safe for exactly one goroutine calling
// TryPush and exactly one (possibly different) goroutine calling TryPop
// concurrently; it is not safe for multiple producers or multiple consumers.
type Ring[T any] struct {
	data     []T
	mask     uint64
	readPos  uint64
	writePos uint64
}

// NewRing creates a ring buffer able to hold at least capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPowerOf2(uint32(capacity))
	return &Ring[T]{
		data: make([]T, size),
		mask: uint64(size) - 1,
	}
}

// TryPush appends v to the ring. Reports false if the ring is full.
// Must only be called from the single producer goroutine.
func (r *Ring[T]) TryPush(v T) bool {
	writePos := r.writePos
	readPos := atomic.LoadUint64(&r.readPos)

	if writePos-readPos >= uint64(len(r.data)) {
		return false
	}

	r.data[writePos&r.mask] = v
	atomic.StoreUint64(&r.writePos, writePos+1)
	return true
}

// TryPop removes and returns the oldest element. Reports false if the ring
// is empty. Must only be called from the single consumer goroutine.
func (r *Ring[T]) TryPop() (T, bool) {
	readPos := r.readPos
	writePos := atomic.LoadUint64(&r.writePos)

	if readPos >= writePos {
		var zero T
		return zero, false
	}

	v := r.data[readPos&r.mask]
	var zero T
	r.data[readPos&r.mask] = zero // drop the reference so GC can reclaim it
	atomic.StoreUint64(&r.readPos, readPos+1)
	return v, true
}

// Len reports the number of elements currently queued. It is a snapshot and
// may be stale by the time the caller acts on it.
func (r *Ring[T]) Len() int {
	writePos := atomic.LoadUint64(&r.writePos)
	readPos := atomic.LoadUint64(&r.readPos)
	return int(writePos - readPos)
}

// Cap reports the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// nextPowerOf2 rounds n up to the next power of two.
func nextPowerOf2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
