// Package midi implements the plain 3-byte MIDI message model the engine
// records, plays back, and clocks with, along with the allocation-free
// helpers (a held-note registry and a sortable device out-buffer) built on
// top of it.
package midi

import "fmt"

// Status bytes the engine emits or inspects directly, independent of
// channel.
const (
	StatusNoteOffMask uint8 = 0x80
	StatusNoteOnMask  uint8 = 0x90

	ClockByte    uint8 = 0xF8
	StartByte    uint8 = 0xFA
	ContinueByte uint8 = 0xFB
	StopByte     uint8 = 0xFC
)

// Message is a timestamped, fixed-size MIDI message. Three bytes covers
// every channel voice message the engine needs to record and play back;
// system exclusive data is out of scope (engine.MidiDevice implementations
// hand the engine only 3-byte messages).
type Message struct {
	// Timestamp is a sample offset. Its meaning is context-dependent: while
	// held in a process-callback event list it is an offset into the
	// current block, while stored in a MidiTake it is an offset from the
	// start of the take.
	Timestamp uint32
	Data      [3]byte
}

func (m Message) String() string {
	return fmt.Sprintf("Message{t:%d, %02X %02X %02X}", m.Timestamp, m.Data[0], m.Data[1], m.Data[2])
}

// Status returns the status byte including channel nibble.
func (m Message) Status() uint8 { return m.Data[0] }

// Channel returns the channel nibble (0-15) of the status byte.
func (m Message) Channel() uint8 { return m.Data[0] & 0x0F }

// Kind classifies the handful of message shapes the note registry and
// take playback care about. Everything else (CC, pitch bend, program
// change, realtime bytes, ...) round-trips through takes unmodified but is
// classified as KindOther.
type Kind uint8

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
)

// Classify reports the Kind of m, applying the standard MIDI convention
// that a note-on with velocity 0 is a note-off in disguise (used by many
// controllers and sequencers to avoid a second status byte on legato
// runs).
func (m Message) Classify() (kind Kind, channel, note, velocity uint8) {
	status := m.Data[0] & 0xF0
	channel = m.Data[0] & 0x0F
	note = m.Data[1]
	velocity = m.Data[2]

	switch status {
	case StatusNoteOnMask:
		if velocity == 0 {
			return KindNoteOff, channel, note, velocity
		}
		return KindNoteOn, channel, note, velocity
	case StatusNoteOffMask:
		return KindNoteOff, channel, note, velocity
	default:
		return KindOther, channel, note, velocity
	}
}

// NoteOn builds a note-on message with the given sample-offset timestamp.
func NoteOn(timestamp uint32, channel, note, velocity uint8) Message {
	return Message{Timestamp: timestamp, Data: [3]byte{StatusNoteOnMask | (channel & 0x0F), note, velocity}}
}

// NoteOff builds a note-off message. The engine always emits note-offs
// with status 0x80 (never a zero-velocity note-on) so synthetic note-offs
// are unambiguous on the wire.
func NoteOff(timestamp uint32, channel, note, velocity uint8) Message {
	return Message{Timestamp: timestamp, Data: [3]byte{StatusNoteOffMask | (channel & 0x0F), note, velocity}}
}

// RealtimeByte builds a single-byte system realtime message (clock,
// start, stop, continue). The second and third bytes are unused and left
// zero.
func RealtimeByte(timestamp uint32, status uint8) Message {
	return Message{Timestamp: timestamp, Data: [3]byte{status, 0, 0}}
}
