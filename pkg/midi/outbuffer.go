package midi

import "sort"

// OutBuffer collects the MIDI messages a device will emit during one
// process block. Messages are queued in whatever order the playback and
// recording stages produce them (take playback, the metronome's sibling
// MIDI clock, synthetic note-offs from a mute transition, ...) and are not
// guaranteed to arrive in timestamp order; Commit sorts them once per
// block so the concrete driver can hand them to the OS in order.
//
// OutBuffer has a fixed capacity set at construction and never grows:
// Queue reports false instead of allocating once it is full, mirroring
// the fixed inline capacity a real MIDI output port enforces.
type OutBuffer struct {
	events []Message
}

// NewOutBuffer creates an OutBuffer able to hold capacity messages per
// block.
func NewOutBuffer(capacity int) *OutBuffer {
	return &OutBuffer{events: make([]Message, 0, capacity)}
}

// Queue appends m to the buffer. Reports false if the buffer is full.
func (b *OutBuffer) Queue(m Message) bool {
	if len(b.events) >= cap(b.events) {
		return false
	}
	b.events = append(b.events, m)
	return true
}

// Reset empties the buffer for the next block, keeping its backing array.
func (b *OutBuffer) Reset() {
	b.events = b.events[:0]
}

// Commit stably sorts the queued messages by timestamp and returns them.
// Stability preserves queueing order among messages sharing a timestamp,
// which keeps e.g. a synthetic note-off ahead of an unrelated note-on
// queued at the same sample offset by whichever stage ran first.
func (b *OutBuffer) Commit() []Message {
	sort.SliceStable(b.events, func(i, j int) bool {
		return b.events[i].Timestamp < b.events[j].Timestamp
	})
	return b.events
}

// Len reports how many messages are currently queued.
func (b *OutBuffer) Len() int { return len(b.events) }
