package engine

import "sync/atomic"

// SharedState is the small set of process-wide counters the audio thread
// publishes every cycle and the frontend polls to display transport
// position, without any ordering requirement against other state: these
// are relaxed reads of values nothing else depends on happens-before.
type SharedState struct {
	songLength        atomic.Uint32
	songPosition      atomic.Uint32
	transportPosition atomic.Uint32
}

func (s *SharedState) SongLength() uint32        { return s.songLength.Load() }
func (s *SharedState) SongPosition() uint32      { return s.songPosition.Load() }
func (s *SharedState) TransportPosition() uint32 { return s.transportPosition.Load() }

func (s *SharedState) setSongLength(v uint32)        { s.songLength.Store(v) }
func (s *SharedState) publish(songPos, transportPos uint32) {
	s.songPosition.Store(songPos)
	s.transportPosition.Store(transportPos)
}
