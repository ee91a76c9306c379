package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryTracksHeldNotes(t *testing.T) {
	var r NoteRegistry
	r.Register(NoteOn(0, 2, 60, 100))
	assert.True(t, r.IsHeld(2, 60))

	r.Register(NoteOff(10, 2, 60, 0))
	assert.False(t, r.IsHeld(2, 60))
}

func TestZeroVelocityNoteOnReleasesNote(t *testing.T) {
	var r NoteRegistry
	r.Register(NoteOn(0, 0, 42, 92))
	require := assert.New(t)
	require.True(r.IsHeld(0, 42))

	r.Register(Message{Timestamp: 1, Data: [3]byte{StatusNoteOnMask | 0, 42, 0}})
	require.False(r.IsHeld(0, 42))
}

func TestAppendNoteOnsAndOffs(t *testing.T) {
	var r NoteRegistry
	r.Register(NoteOn(0, 1, 42, 92))
	r.Register(NoteOn(0, 1, 50, 10))

	ons := r.AppendNoteOns(100, nil)
	assert.Len(t, ons, 2)
	for _, m := range ons {
		assert.Equal(t, uint32(100), m.Timestamp)
		kind, _, _, _ := m.Classify()
		assert.Equal(t, KindNoteOn, kind)
	}

	offs := r.AppendNoteOffs(200, nil)
	assert.Len(t, offs, 2)
	for _, m := range offs {
		assert.Equal(t, uint32(200), m.Timestamp)
		kind, _, _, velocity := m.Classify()
		assert.Equal(t, KindNoteOff, kind)
		assert.Equal(t, uint8(64), velocity)
	}
}

func TestResetClearsRegistry(t *testing.T) {
	var r NoteRegistry
	r.Register(NoteOn(0, 0, 1, 1))
	r.Reset()
	assert.False(t, r.IsHeld(0, 1))
	assert.Empty(t, r.AppendNoteOns(0, nil))
}
