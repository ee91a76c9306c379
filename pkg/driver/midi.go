package driver

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/loopcraft/loopcraft/pkg/buffer"
	"github.com/loopcraft/loopcraft/pkg/engine"
	"github.com/loopcraft/loopcraft/pkg/midi"
)

// incomingCapacity bounds how many events can be queued between one
// process cycle's Incoming call and the next.
const incomingCapacity = 256

// MidiDevice is a gomidi/rtmididrv-backed engine.MidiDevice. A listener
// goroutine (gomidi.ListenTo, the grahamseamans-go-sequence/midi/keyboard.go
// pattern) pushes incoming channel-voice messages onto a lock-free ring;
// Incoming drains that ring into a reusable scratch slice every cycle so
// the audio thread never allocates to read its own input.
type MidiDevice struct {
	name            string
	captureLatency  uint32
	playbackLatency uint32

	incoming        *buffer.Ring[midi.Message]
	incomingScratch []midi.Message
	out             *midi.OutBuffer
	registry        midi.NoteRegistry

	send   func(gomidi.Message) error
	stopIn func()
}

// OpenMidiDevice wires in (may be nil for an output-only device) and out
// (may be nil for an input-only device) into a MidiDevice with the given
// out-buffer capacity.
func OpenMidiDevice(name string, in drivers.In, out drivers.Out, outCapacity int) (*MidiDevice, error) {
	d := &MidiDevice{
		name:     name,
		incoming: buffer.NewRing[midi.Message](incomingCapacity),
		out:      midi.NewOutBuffer(outCapacity),
	}

	if in != nil {
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
			raw := msg.Bytes()
			if len(raw) != 3 {
				return // sysex/realtime bytes fall outside the engine's 3-byte channel-voice model
			}
			d.incoming.TryPush(midi.Message{Data: [3]byte{raw[0], raw[1], raw[2]}})
		})
		if err != nil {
			return nil, fmt.Errorf("listen on MIDI input %q: %w", name, err)
		}
		d.stopIn = stop
	}

	if out != nil {
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("open MIDI output %q: %w", name, err)
		}
		d.send = send
	}

	return d, nil
}

// OpenMidiNamed resolves inputName/outputName (either may be empty) to
// rtmididrv ports via FindMidiInPort/FindMidiOutPort and opens a
// MidiDevice through OpenMidiDevice.
func OpenMidiNamed(name, inputName, outputName string, outCapacity int) (*MidiDevice, error) {
	var in drivers.In
	var out drivers.Out
	var err error
	if inputName != "" {
		if in, err = FindMidiInPort(inputName); err != nil {
			return nil, err
		}
	}
	if outputName != "" {
		if out, err = FindMidiOutPort(outputName); err != nil {
			return nil, err
		}
	}
	return OpenMidiDevice(name, in, out, outCapacity)
}

func (d *MidiDevice) Info() engine.MidiDeviceInfo {
	return engine.MidiDeviceInfo{Name: d.name, CaptureLatency: d.captureLatency, PlaybackLatency: d.playbackLatency}
}

// Incoming drains the listener goroutine's ring into a reusable scratch
// slice, stamping every event at offset 0. The listener runs on gomidi's
// own callback thread, asynchronously from the audio thread's cycle
// boundary, so there is no shared clock to place an event later in the
// block with sample accuracy; see DESIGN.md.
func (d *MidiDevice) Incoming(engine.Scope) []midi.Message {
	d.incomingScratch = d.incomingScratch[:0]
	for {
		msg, ok := d.incoming.TryPop()
		if !ok {
			break
		}
		d.incomingScratch = append(d.incomingScratch, msg)
	}
	return d.incomingScratch
}

func (d *MidiDevice) Out() *midi.OutBuffer { return d.out }

// CommitOut sends every queued message to the output port in the order
// Commit sorted them, then resets the buffer for the next cycle.
func (d *MidiDevice) CommitOut(engine.Scope) {
	for _, ev := range d.out.Commit() {
		if d.send != nil {
			d.send(gomidi.Message(ev.Data[:]))
		}
	}
	d.out.Reset()
}

func (d *MidiDevice) Registry() *midi.NoteRegistry { return &d.registry }

// Close stops the input listener, if any. Called by the destructor
// helper once the backend hands the device off.
func (d *MidiDevice) Close() error {
	if d.stopIn != nil {
		d.stopIn()
	}
	return nil
}
