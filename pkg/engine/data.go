package engine

// RecordState is the lifecycle of a single take, in both the audio and
// MIDI flavor. A take starts out Waiting for the transport to reach its
// arm point, moves to Recording once the audio thread starts writing into
// it, and becomes Finished once the frontend asks it to stop.
//
// Stale extends the Waiting/Recording/Finished lifecycle with one more
// outcome: what a take becomes if its outsourced-allocation buffer cannot
// keep up (the growth worker hasn't delivered a fresh fragment by the
// time the active one fills). Recording simply stops rather than
// panicking the audio thread; see DESIGN.md for why this was chosen over
// a hard failure.
type RecordState uint8

const (
	RecordWaiting RecordState = iota
	RecordRecording
	RecordFinished
	RecordStale
)

func (s RecordState) String() string {
	switch s {
	case RecordWaiting:
		return "waiting"
	case RecordRecording:
		return "recording"
	case RecordFinished:
		return "finished"
	case RecordStale:
		return "stale"
	default:
		return "unknown"
	}
}

// EventKind distinguishes the events the audio thread reports back to the
// frontend over the realtime event queue.
type EventKind uint8

const (
	EventAudioTakeStateChanged EventKind = iota
	EventMidiTakeStateChanged
	EventTimestamp
	EventKill
)

// Event is a flat, allocation-free report from the audio thread. Only the
// fields relevant to Kind are meaningful; a plain value rather than a
// tagged union so it can be pushed through a generic Ring without boxing.
type Event struct {
	Kind EventKind

	DeviceID uint32
	TakeID   uint32
	State    RecordState
	Length   uint32

	SongPosition      uint32
	TransportPosition uint32
}
