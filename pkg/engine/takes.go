package engine

import (
	"github.com/loopcraft/loopcraft/pkg/buffer"
	"github.com/loopcraft/loopcraft/pkg/midi"
)

// audioFragmentSize is the per-channel fragment capacity for an audio
// take's outsourced-allocation buffer: a power of two comfortably larger
// than any realistic process cycle, so the growth worker has many cycles
// of notice before a fragment actually fills.
const audioFragmentSize = 1 << 16

// midiFragmentSize is generous relative to plausible note density per
// loop; MIDI events are tiny compared to audio samples so a smaller
// fragment still avoids frequent growth requests.
const midiFragmentSize = 1 << 10

// AudioTake is one armed or recorded loop of audio on a single device. It
// is owned exclusively by the audio thread; the frontend only ever sees
// its id.
type AudioTake struct {
	ID            uint32
	AudioDeviceID uint32
	Unmuted       bool
	Playing       bool
	State         RecordState

	Channels []*buffer.Buffer[float32]

	RecordedLength     uint32
	Length             *uint32
	PlaybackPosition   uint32
	StartedRecordingAt uint32
}

// NewAudioTake allocates a take with one outsourced-allocation buffer per
// channel of the owning device.
func NewAudioTake(id, audioDeviceID uint32, numChannels int, startedRecordingAt uint32) *AudioTake {
	channels := make([]*buffer.Buffer[float32], numChannels)
	for i := range channels {
		channels[i] = buffer.NewBuffer[float32](audioFragmentSize, audioFragmentSize/8)
	}
	return &AudioTake{
		ID:                 id,
		AudioDeviceID:      audioDeviceID,
		State:              RecordWaiting,
		Channels:           channels,
		StartedRecordingAt: startedRecordingAt,
	}
}

// Playback adds this take's contribution into dst, one slice per channel
// of the owning device's playback buffer for this cycle. The read cursor
// always advances exactly len(dst[ch]) samples per channel, looping back
// to the start once it catches up with what has been recorded, which is
// always at least one cycle behind because playback runs before recording
// within a single process callback invocation.
func (t *AudioTake) Playback(dst [][]float32) {
	if !t.Playing {
		return
	}
	n := 0
	if len(dst) > 0 {
		n = len(dst[0])
	}
	for i := 0; i < n; i++ {
		for ch, buf := range t.Channels {
			v, ok := buf.Next()
			if !ok {
				buf.Rewind()
				v, ok = buf.Next()
			}
			if ok && t.Unmuted {
				dst[ch][i] += v
			}
		}
		t.PlaybackPosition++
		if t.Length != nil && *t.Length > 0 {
			t.PlaybackPosition %= *t.Length
		}
	}
}

// Record appends one cycle's worth of capture samples into every channel
// buffer. It reports false the instant any channel's push fails (the
// allocator helper could not keep up), and moves the take to RecordStale
// itself when that happens; see DESIGN.md for why this replaces the
// source's panic-on-overrun behavior.
func (t *AudioTake) Record(capture [][]float32) bool {
	n := 0
	if len(capture) > 0 {
		n = len(capture[0])
	}
	for i := 0; i < n; i++ {
		for ch, buf := range t.Channels {
			if !buf.Push(capture[ch][i]) {
				t.State = RecordStale
				return false
			}
		}
		t.RecordedLength++
	}
	return true
}

// Finish stores the finalized length requested by FinishAudioTake. The
// transition to Finished itself happens in MaybeFinalize, once
// RecordedLength actually reaches it (finishing can be requested before
// or after the recorded length has caught up; both converge here).
func (t *AudioTake) Finish(length uint32) {
	l := length
	t.Length = &l
}

// MaybeFinalize transitions a Recording take to Finished once its
// recorded length has reached the requested finish length, realigning
// the playhead to the finalized loop if it had run past the boundary
// while still growing. Reports whether the transition happened, so the
// caller can emit the corresponding event exactly once.
func (t *AudioTake) MaybeFinalize() bool {
	if t.State != RecordRecording || t.Length == nil {
		return false
	}
	if t.RecordedLength < *t.Length {
		return false
	}
	t.State = RecordFinished
	if t.PlaybackPosition >= *t.Length {
		t.PlaybackPosition %= *t.Length
		for _, buf := range t.Channels {
			buf.Seek(int(t.PlaybackPosition))
		}
	}
	return true
}

// MidiTake is one armed or recorded loop of MIDI events on a single
// device.
type MidiTake struct {
	ID           uint32
	MidiDeviceID uint32
	Unmuted      bool
	UnmutedPrev  bool
	Playing      bool
	State        RecordState

	StartedRecordingAt uint32
	Duration           uint32
	CurrentPosition    uint32
	Length             *uint32 // target duration requested by FinishMidiTake; nil while still growing

	Events   *buffer.Buffer[midi.Message]
	Registry midi.NoteRegistry
}

// NewMidiTake allocates a take with an empty event buffer.
func NewMidiTake(id, midiDeviceID uint32, startedRecordingAt uint32) *MidiTake {
	return &MidiTake{
		ID:                 id,
		MidiDeviceID:       midiDeviceID,
		State:              RecordWaiting,
		StartedRecordingAt: startedRecordingAt,
		Events:             buffer.NewBuffer[midi.Message](midiFragmentSize, midiFragmentSize/8),
	}
}

// BeginRecording transitions the take into Recording and injects a
// synthetic note-on at timestamp 0 for every note already held on the
// device at the moment of the loop boundary, so the take starts in a
// musically consistent state even if the player struck the note before
// the loop wrapped.
func (t *MidiTake) BeginRecording(deviceRegistry *midi.NoteRegistry) {
	t.State = RecordRecording
	var scratch [256]midi.Message
	for _, m := range deviceRegistry.AppendNoteOns(0, scratch[:0]) {
		t.Events.Push(m)
		t.Registry.Register(m)
	}
}

// Record appends one cycle's incoming events (already filtered to 3-byte
// channel-voice messages by the caller) with timestamps relative to the
// take's own start. Reports false if a push failed, in which case Record
// has already moved the take to RecordStale.
func (t *MidiTake) Record(numFrames uint32, events []midi.Message) bool {
	ok := true
	for _, ev := range events {
		m := midi.Message{Timestamp: ev.Timestamp + t.Duration, Data: ev.Data}
		if !t.Events.Push(m) {
			t.State = RecordStale
			ok = false
			break
		}
		t.Registry.Register(ev)
	}
	t.Duration += numFrames
	return ok
}

// Finish stores the target duration requested by FinishMidiTake. Recording
// keeps growing the take until Duration reaches length, mirroring
// AudioTake.Finish; see MaybeFinalize.
func (t *MidiTake) Finish(length uint32) { t.Length = &length }

// MaybeFinalize transitions a Recording take to Finished once it has
// grown to its requested length, injecting synthetic note-offs for every
// note still held (so the loop does not bleed a hung note into silence on
// first playback) and realigning the playhead if it has already run past
// the finalized boundary. Reports whether a transition happened, so the
// caller knows whether to emit a state-changed event.
func (t *MidiTake) MaybeFinalize() bool {
	if t.State != RecordRecording || t.Length == nil {
		return false
	}
	if t.Duration < *t.Length {
		return false
	}
	t.State = RecordFinished
	var scratch [256]midi.Message
	for _, m := range t.Registry.AppendNoteOffs(t.Duration, scratch[:0]) {
		t.Events.Push(m)
	}
	if t.Duration > 0 && t.CurrentPosition >= t.Duration {
		t.CurrentPosition %= t.Duration
	}
	return true
}

// Playback queues this take's events falling within the current cycle
// into out, with timestamps relative to the cycle start. It handles
// wrapping the event buffer mid-cycle (when the take loops within a
// single process block) and emits synthetic note-on/note-off pairs
// around mute transitions so no note is ever left hanging.
func (t *MidiTake) Playback(numFrames uint32, out *midi.OutBuffer) {
	if !t.Playing {
		return
	}

	if t.Unmuted != t.UnmutedPrev {
		var scratch [256]midi.Message
		if t.Unmuted {
			for _, m := range t.Registry.AppendNoteOns(0, scratch[:0]) {
				out.Queue(m)
			}
		} else {
			for _, m := range t.Registry.AppendNoteOffs(0, scratch[:0]) {
				out.Queue(m)
			}
		}
		t.UnmutedPrev = t.Unmuted
	}

	rewindOffset := uint32(0)
	for {
		for {
			ev, ok := t.Events.Peek()
			if !ok {
				break
			}
			relative := ev.Timestamp + rewindOffset - t.CurrentPosition
			if relative >= numFrames {
				break
			}
			t.Events.Next()
			t.Registry.Register(ev)
			if t.Unmuted {
				out.Queue(midi.Message{Timestamp: relative, Data: ev.Data})
			}
		}

		if t.Duration == 0 {
			break
		}
		positionAfter := t.CurrentPosition + numFrames
		if positionAfter-rewindOffset < t.Duration {
			break
		}
		t.Events.Rewind()
		rewindOffset += t.Duration
	}

	t.CurrentPosition += numFrames - rewindOffset
	if t.Duration > 0 {
		t.CurrentPosition %= t.Duration
	}
}
