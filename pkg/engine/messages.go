package engine

// CommandKind enumerates the frontend-to-audio-thread command protocol.
// Commands are totally ordered by arrival in the command queue and are
// all applied before any audio processing happens in that cycle.
type CommandKind uint8

const (
	CmdSetSongLength CommandKind = iota
	CmdUpdateAudioDevice
	CmdUpdateMidiDevice
	CmdNewAudioTake
	CmdNewMidiTake
	CmdRestartMidiTransport
	CmdSetAudioEcho
	CmdSetAudioMute
	CmdSetMidiMute
	CmdFinishAudioTake
	CmdFinishMidiTake
	CmdDeleteTake
)

// Command is a single flattened message on the command queue. As with
// Event, only the fields relevant to Kind are meaningful; this keeps the
// type a plain value so it moves through a generic Ring without boxing
// or a dynamic dispatch on the audio thread's hot path.
type Command struct {
	Kind CommandKind

	// DeviceIndex is the frontend-chosen slot number for device-addressed
	// commands; it doubles as the device id a take's AudioDeviceID or
	// MidiDeviceID field refers to (see audioDeviceSlot/midiDeviceSlot).
	DeviceIndex int
	TakeID      uint32

	SongLength uint32
	NumBeats   uint32
	Length     uint32
	Flag       bool

	AudioDevice AudioDevice
	MidiDevice  MidiDevice

	AudioTake *AudioTake
	MidiTake  *MidiTake
}

// DestructionKind enumerates what is being handed off to the destructor
// helper.
type DestructionKind uint8

const (
	DestroyAudioDevice DestructionKind = iota
	DestroyMidiDevice
	DestroyAudioTake
	DestroyMidiTake
)

// DestructionRequest carries an object the audio thread is done with
// (replaced or deleted) to the destructor goroutine, so freeing it never
// happens on the audio thread.
type DestructionRequest struct {
	Kind        DestructionKind
	AudioDevice AudioDevice
	MidiDevice  MidiDevice
	AudioTake   *AudioTake
	MidiTake    *MidiTake
}
