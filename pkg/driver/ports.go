// Package driver adapts the engine's abstract Driver/AudioDevice/MidiDevice
// interfaces (pkg/engine) to real hardware: PortAudio for audio I/O and
// gomidi/v2's rtmididrv backend for MIDI I/O.
package driver

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Init starts the PortAudio backend. Callers must call Terminate before
// exit. The rtmididrv MIDI backend needs no call here: it registers itself
// through this package's import of it.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio backend.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate portaudio: %w", err)
	}
	return nil
}

// FindAudioDevice looks up a PortAudio device by exact name, the name a
// config file records and cmd/loopcraftd resolves at startup.
func FindAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate portaudio devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// FindMidiInPort looks up an rtmididrv input port by a case-insensitive
// substring match, the same matching grahamseamans-go-sequence's
// midi/manager.go findPortByName uses.
func FindMidiInPort(name string) (drivers.In, error) {
	for _, p := range gomidi.GetInPorts() {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("MIDI input port %q not found", name)
}

// FindMidiOutPort looks up an rtmididrv output port the same way.
func FindMidiOutPort(name string) (drivers.Out, error) {
	for _, p := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("MIDI output port %q not found", name)
}
