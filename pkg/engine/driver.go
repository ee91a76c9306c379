package engine

import "github.com/loopcraft/loopcraft/pkg/midi"

// Scope describes one process cycle: how many frames it covers. Real
// drivers hand out a scope whose buffers are only valid for the duration
// of the callback; the dummy driver used in tests hands out a scope over
// manually advanced, persistent test buffers.
type Scope interface {
	NumFrames() int
}

// AudioDeviceInfo is the static, driver-reported description of an audio
// device.
type AudioDeviceInfo struct {
	Name            string
	NumChannels     int
	CaptureLatency  uint32
	PlaybackLatency uint32
}

// AudioDevice is a named collection of input/output channel ports. The
// concrete driver backs it with real hardware buffers; the dummy driver
// backs it with plain slices the test fills and inspects directly.
type AudioDevice interface {
	Info() AudioDeviceInfo
	// Buffers returns this cycle's capture (read-only, driver-owned) and
	// playback (to be filled by the engine) buffers, one slice per
	// channel, both exactly scope.NumFrames() long.
	Buffers(scope Scope) (capture, playback [][]float32)
}

// MidiDeviceInfo is the static, driver-reported description of a MIDI
// device.
type MidiDeviceInfo struct {
	Name            string
	CaptureLatency  uint32
	PlaybackLatency uint32
}

// MidiDevice is a named MIDI input/output port pair plus the bounded
// out-buffer the engine stages outgoing messages into before committing
// them to the driver, and the note registry tracking what's currently
// held on its input.
type MidiDevice interface {
	Info() MidiDeviceInfo
	// Incoming returns this cycle's captured events, each carrying a
	// frame offset relative to the cycle start. Only 3-byte channel-voice
	// messages ever reach here; the driver is responsible for filtering
	// out anything longer or shorter before handing events to the engine.
	Incoming(scope Scope) []midi.Message
	// Out is the bounded staging buffer the engine queues this cycle's
	// outgoing events into; CommitOut flushes it to the driver in
	// timestamp order.
	Out() *midi.OutBuffer
	CommitOut(scope Scope)
	// Registry is the device-wide held-note table built from Incoming
	// events, independent of any take.
	Registry() *midi.NoteRegistry
}

// Driver is the abstraction the audio thread runs against. A concrete
// driver wraps real hardware (or JACK/ALSA/CoreAudio-style ports) and
// invokes the engine's process callback once per cycle; the dummy driver
// used by tests drives the same callback under direct, synchronous
// control with pre-filled buffers instead.
type Driver interface {
	SampleRate() float64
	// Activate hands ownership of the audio thread to the driver: it
	// invokes process exactly once per cycle, with a Scope describing
	// that cycle, until the driver is stopped or an unrecoverable error
	// occurs.
	Activate(process func(Scope)) error
}
