package buffer

import "runtime"

// fragment is one pre-allocated chunk of a Buffer. Fragments are linked
// together as they fill, so a Buffer never has to move previously written
// elements: once written, an element's address never changes for the
// lifetime of the Buffer.
type fragment[T any] struct {
	data []T
	next *fragment[T]
}

// Buffer is a growable, append-only container designed to be written to
// from a real-time thread without ever allocating on that thread. Growth
// is outsourced: when the active fragment starts running low, the Buffer
// asks a background helper goroutine to pre-allocate the next fragment,
// and the real-time thread simply picks it up once it is ready. If the
// active fragment fills up before the next one has arrived, Push reports
// failure instead of allocating or blocking.
//
// A Buffer is intended for a single producer and a single consumer that
// never run concurrently with each other (the audio thread plays back from
// and records into the owning take one after the other within a cycle), so
// Push and the
// read-side cursor methods are not safe to call concurrently with each
// other. The helper goroutine only ever communicates through the two
// rings below, so it never races with either side.
type Buffer[T any] struct {
	head *fragment[T]
	tail *fragment[T]

	capacityIncrement  int
	remainingThreshold int
	requestPending     bool

	growthRequests *Ring[struct{}]
	freshFragments *Ring[*fragment[T]]
	wake           chan struct{}
	done           chan struct{}

	curFrag *fragment[T]
	curIdx  int
}

// NewBuffer creates a Buffer whose fragments hold capacityIncrement
// elements each. A new fragment is requested from the helper goroutine as
// soon as the active fragment's free space drops below remainingThreshold.
func NewBuffer[T any](capacityIncrement, remainingThreshold int) *Buffer[T] {
	if capacityIncrement < 1 {
		capacityIncrement = 1
	}
	first := &fragment[T]{data: make([]T, 0, capacityIncrement)}

	b := &Buffer[T]{
		head:               first,
		tail:               first,
		capacityIncrement:  capacityIncrement,
		remainingThreshold: remainingThreshold,
		growthRequests:     NewRing[struct{}](4),
		freshFragments:     NewRing[*fragment[T]](4),
		wake:               make(chan struct{}, 1),
		done:               make(chan struct{}),
		curFrag:            first,
	}
	go b.growthWorker()
	return b
}

// growthWorker parks until woken, then preallocates fragments for every
// pending request. It touches no state shared with the producer except
// through growthRequests and freshFragments.
func (b *Buffer[T]) growthWorker() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
			for {
				if _, ok := b.growthRequests.TryPop(); !ok {
					break
				}
				frag := &fragment[T]{data: make([]T, 0, b.capacityIncrement)}
				for !b.freshFragments.TryPush(frag) {
					runtime.Gosched()
				}
			}
		}
	}
}

// Push appends v to the buffer. It reports false, without allocating or
// blocking, if the active fragment is full and the next one has not been
// delivered by the growth worker yet. Callers on the real-time thread must
// decide how to handle that case (the engine treats it as a take going
// RecordStale rather than panicking; see DESIGN.md).
func (b *Buffer[T]) Push(v T) bool {
	if len(b.tail.data) < cap(b.tail.data) {
		b.tail.data = append(b.tail.data, v)
		b.maybeRequestGrowth()
		return true
	}

	frag, ok := b.freshFragments.TryPop()
	if !ok {
		return false
	}
	b.tail.next = frag
	b.tail = frag
	b.requestPending = false
	b.tail.data = append(b.tail.data, v)
	b.maybeRequestGrowth()
	return true
}

func (b *Buffer[T]) maybeRequestGrowth() {
	if b.requestPending {
		return
	}
	remaining := cap(b.tail.data) - len(b.tail.data)
	if remaining >= b.remainingThreshold {
		return
	}
	if b.growthRequests.TryPush(struct{}{}) {
		b.requestPending = true
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
}

// Rewind resets the read cursor to the first element.
func (b *Buffer[T]) Rewind() {
	b.curFrag = b.head
	b.curIdx = 0
}

// Peek returns the element the cursor is on without advancing it.
func (b *Buffer[T]) Peek() (T, bool) {
	f, i := b.advanceToData(b.curFrag, b.curIdx)
	if f == nil {
		var zero T
		return zero, false
	}
	return f.data[i], true
}

// Next returns the element the cursor is on and advances past it.
func (b *Buffer[T]) Next() (T, bool) {
	b.curFrag, b.curIdx = b.advanceToData(b.curFrag, b.curIdx)
	if b.curFrag == nil {
		var zero T
		return zero, false
	}
	v := b.curFrag.data[b.curIdx]
	b.curIdx++
	return v, true
}

// advanceToData walks forward over exhausted fragments, returning the
// fragment and index of the next unread element, or (nil, 0) if none remain.
func (b *Buffer[T]) advanceToData(f *fragment[T], i int) (*fragment[T], int) {
	for f != nil && i >= len(f.data) {
		f = f.next
		i = 0
	}
	return f, i
}

// Seek moves the read cursor to absolute position n from the start of the
// buffer. Used only off the hot path (take finalization can run the
// playhead past the just-finalized boundary and needs to snap it back);
// it walks the cursor forward one element at a time rather than indexing
// directly, since fragments are not randomly addressable.
func (b *Buffer[T]) Seek(n int) {
	b.Rewind()
	for i := 0; i < n; i++ {
		if _, ok := b.Next(); !ok {
			return
		}
	}
}

// Len reports how many elements have been written so far.
func (b *Buffer[T]) Len() int {
	n := 0
	for f := b.head; f != nil; f = f.next {
		n += len(f.data)
	}
	return n
}

// Close stops the growth worker. The Buffer must not be used afterward.
func (b *Buffer[T]) Close() {
	close(b.done)
}
