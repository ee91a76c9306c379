// Package enginetest provides a deterministic, manually-driven stand-in
// for a real audio/MIDI driver, so engine behavior can be tested without
// real hardware: capture buffers are pre-filled by the test and advanced
// cycle by cycle under direct control, and everything written to a
// playback buffer or committed to a MIDI out-buffer is kept around for
// inspection afterward.
package enginetest

import (
	"github.com/loopcraft/loopcraft/pkg/engine"
	"github.com/loopcraft/loopcraft/pkg/midi"
)

// Scope is a fixed frame count, the only thing the dummy driver needs to
// describe a cycle.
type Scope struct {
	Frames int
}

func (s Scope) NumFrames() int { return s.Frames }

// AudioDevice is a test double for engine.AudioDevice. The test sets
// Capture directly before each call to Backend.Process and reads
// Playback (and, if it wants a full history, appends a copy to its own
// slice) afterward.
type AudioDevice struct {
	Name            string
	Channels        int
	CaptureLatency  uint32
	PlaybackLatency uint32

	Capture  [][]float32
	Playback [][]float32
}

// NewAudioDevice creates a device with numChannels channels and the given
// driver-reported latencies.
func NewAudioDevice(name string, numChannels int, captureLatency, playbackLatency uint32) *AudioDevice {
	return &AudioDevice{Name: name, Channels: numChannels, CaptureLatency: captureLatency, PlaybackLatency: playbackLatency}
}

func (d *AudioDevice) Info() engine.AudioDeviceInfo {
	return engine.AudioDeviceInfo{
		Name:            d.Name,
		NumChannels:     d.Channels,
		CaptureLatency:  d.CaptureLatency,
		PlaybackLatency: d.PlaybackLatency,
	}
}

// Buffers returns the test-supplied capture buffer and a playback buffer
// sized to the cycle, allocating a fresh one only when the cycle length
// changes (real drivers never do this on the hot path; the dummy is
// test-only and is allowed to).
func (d *AudioDevice) Buffers(scope engine.Scope) (capture, playback [][]float32) {
	n := scope.NumFrames()
	if len(d.Playback) != d.Channels || (d.Channels > 0 && len(d.Playback[0]) != n) {
		d.Playback = make([][]float32, d.Channels)
		for ch := range d.Playback {
			d.Playback[ch] = make([]float32, n)
		}
	}
	return d.Capture, d.Playback
}

// SetCapture installs the buffer the next cycle will read from.
func (d *AudioDevice) SetCapture(capture [][]float32) {
	d.Capture = capture
}

// MidiDevice is a test double for engine.MidiDevice. The test sets
// IncomingEvents before each call to Backend.Process (timestamps
// relative to the cycle start) and inspects Committed afterward, which
// accumulates one sorted slice per cycle's CommitOut call.
type MidiDevice struct {
	Name            string
	CaptureLatency  uint32
	PlaybackLatency uint32

	IncomingEvents []midi.Message
	Committed      [][]midi.Message

	out      *midi.OutBuffer
	registry midi.NoteRegistry
}

// NewMidiDevice creates a device with the given driver-reported latencies
// and out-buffer capacity.
func NewMidiDevice(name string, captureLatency, playbackLatency uint32, outCapacity int) *MidiDevice {
	return &MidiDevice{
		Name:            name,
		CaptureLatency:  captureLatency,
		PlaybackLatency: playbackLatency,
		out:             midi.NewOutBuffer(outCapacity),
	}
}

func (d *MidiDevice) Info() engine.MidiDeviceInfo {
	return engine.MidiDeviceInfo{Name: d.Name, CaptureLatency: d.CaptureLatency, PlaybackLatency: d.PlaybackLatency}
}

func (d *MidiDevice) Incoming(scope engine.Scope) []midi.Message { return d.IncomingEvents }

func (d *MidiDevice) Out() *midi.OutBuffer { return d.out }

// CommitOut appends this cycle's sorted, queued messages to Committed and
// resets the out-buffer for the next cycle.
func (d *MidiDevice) CommitOut(scope engine.Scope) {
	committed := append([]midi.Message(nil), d.out.Commit()...)
	d.Committed = append(d.Committed, committed)
	d.out.Reset()
}

func (d *MidiDevice) Registry() *midi.NoteRegistry { return &d.registry }

// Driver is a minimal engine.Driver so a Backend can be wired through
// engine.New in tests that want the full Engine, not just a bare
// Backend. Activate is driven manually via Step rather than looping
// internally, since tests need synchronous control over each cycle.
type Driver struct {
	SampleRateHz float64
	process      func(engine.Scope)
}

func NewDriver(sampleRate float64) *Driver {
	return &Driver{SampleRateHz: sampleRate}
}

func (d *Driver) SampleRate() float64 { return d.SampleRateHz }

// Activate just records the callback; call Step to run one cycle.
func (d *Driver) Activate(process func(engine.Scope)) error {
	d.process = process
	return nil
}

// Step runs exactly one process cycle of numFrames frames.
func (d *Driver) Step(numFrames int) {
	d.process(Scope{Frames: numFrames})
}
