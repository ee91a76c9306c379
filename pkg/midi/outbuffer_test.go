package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutBufferSortsByTimestamp(t *testing.T) {
	b := NewOutBuffer(8)
	require.True(t, b.Queue(NoteOn(50, 0, 1, 1)))
	require.True(t, b.Queue(NoteOn(10, 0, 2, 1)))
	require.True(t, b.Queue(NoteOn(30, 0, 3, 1)))

	committed := b.Commit()
	var timestamps []uint32
	for _, m := range committed {
		timestamps = append(timestamps, m.Timestamp)
	}
	assert.Equal(t, []uint32{10, 30, 50}, timestamps)
}

func TestOutBufferStableForEqualTimestamps(t *testing.T) {
	b := NewOutBuffer(8)
	first := NoteOn(10, 0, 1, 1)
	second := NoteOff(10, 0, 1, 64)
	require.True(t, b.Queue(first))
	require.True(t, b.Queue(second))

	committed := b.Commit()
	assert.Equal(t, first, committed[0])
	assert.Equal(t, second, committed[1])
}

func TestOutBufferRejectsBeyondCapacity(t *testing.T) {
	b := NewOutBuffer(1)
	require.True(t, b.Queue(NoteOn(0, 0, 1, 1)))
	assert.False(t, b.Queue(NoteOn(1, 0, 2, 1)))
}

func TestOutBufferResetKeepsCapacity(t *testing.T) {
	b := NewOutBuffer(2)
	b.Queue(NoteOn(0, 0, 1, 1))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.Queue(NoteOn(0, 0, 1, 1)))
	assert.True(t, b.Queue(NoteOn(0, 0, 2, 1)))
}
