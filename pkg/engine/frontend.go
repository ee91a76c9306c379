package engine

import "github.com/loopcraft/loopcraft/pkg/buffer"

// Frontend is the user-facing half of the command protocol: it owns
// nothing but ids and a mirror of each device's channel count (needed to
// size a new take's buffers before the audio thread ever sees it), and
// talks to the audio thread exclusively through the bounded command and
// event queues on Backend.
type Frontend struct {
	backend *Backend
	ids     IDGenerator

	audioDeviceChannels map[uint32]int
}

// NewFrontend wraps a Backend's queues for frontend-side use.
func NewFrontend(b *Backend) *Frontend {
	return &Frontend{backend: b, audioDeviceChannels: make(map[uint32]int)}
}

// Events returns the event queue, so a caller can drain state-change and
// timestamp notifications as they arrive.
func (f *Frontend) Events() *buffer.Ring[Event] { return f.backend.Events }

// TransportPosition reports the audio thread's latest published
// transport position.
func (f *Frontend) TransportPosition() uint32 { return f.backend.Shared.TransportPosition() }

// SongPosition reports the audio thread's latest published song
// position.
func (f *Frontend) SongPosition() uint32 { return f.backend.Shared.SongPosition() }

// SetSongLength requests a new song length and beat count. Rejected
// (silently, by the audio thread) if any take currently exists; the
// caller must guarantee that precondition.
func (f *Frontend) SetSongLength(length, numBeats uint32) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdSetSongLength, SongLength: length, NumBeats: numBeats})
}

// UpdateAudioDevice installs (or, with dev == nil, removes) the audio
// device at index. The index doubles as the device id takes reference
// (AudioTake.AudioDeviceID); there is no separately generated id.
func (f *Frontend) UpdateAudioDevice(index int, dev AudioDevice) (uint32, bool) {
	id := uint32(index)
	if dev != nil {
		f.audioDeviceChannels[id] = dev.Info().NumChannels
	} else {
		delete(f.audioDeviceChannels, id)
	}
	ok := RetrySend(f.backend.Commands, Command{Kind: CmdUpdateAudioDevice, DeviceIndex: index, AudioDevice: dev})
	return id, ok
}

// UpdateMidiDevice installs (or removes) the MIDI device at index. As
// with audio devices, index is the id.
func (f *Frontend) UpdateMidiDevice(index int, dev MidiDevice) (uint32, bool) {
	ok := RetrySend(f.backend.Commands, Command{Kind: CmdUpdateMidiDevice, DeviceIndex: index, MidiDevice: dev})
	return uint32(index), ok
}

// NewAudioTake arms a new take (state Waiting) on audioDeviceID.
func (f *Frontend) NewAudioTake(audioDeviceID uint32) (uint32, bool) {
	id := f.ids.Next()
	channels := f.audioDeviceChannels[audioDeviceID]
	take := NewAudioTake(id, audioDeviceID, channels, 0)
	ok := RetrySend(f.backend.Commands, Command{Kind: CmdNewAudioTake, AudioTake: take})
	return id, ok
}

// NewMidiTake arms a new take (state Waiting) on midiDeviceID.
func (f *Frontend) NewMidiTake(midiDeviceID uint32) (uint32, bool) {
	id := f.ids.Next()
	take := NewMidiTake(id, midiDeviceID, 0)
	ok := RetrySend(f.backend.Commands, Command{Kind: CmdNewMidiTake, MidiTake: take})
	return id, ok
}

// RestartMidiTransport asks the MIDI clock generator to emit a start byte
// at the top of its next cycle. The byte always goes to the backend's
// MidiClockDevice; midiDeviceID is carried in the command but not used to
// pick a device.
func (f *Frontend) RestartMidiTransport(midiDeviceID uint32) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdRestartMidiTransport, DeviceIndex: int(midiDeviceID)})
}

// SetAudioEcho toggles direct input monitoring on an audio device,
// independent of any take.
func (f *Frontend) SetAudioEcho(audioDeviceID uint32, echo bool) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdSetAudioEcho, DeviceIndex: int(audioDeviceID), Flag: echo})
}

// SetAudioMute mutes or unmutes an audio take's playback.
func (f *Frontend) SetAudioMute(takeID uint32, unmuted bool) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdSetAudioMute, TakeID: takeID, Flag: unmuted})
}

// SetMidiMute mutes or unmutes a MIDI take's playback.
func (f *Frontend) SetMidiMute(takeID uint32, unmuted bool) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdSetMidiMute, TakeID: takeID, Flag: unmuted})
}

// FinishAudioTake requests that a Recording audio take stop growing once
// it reaches length frames.
func (f *Frontend) FinishAudioTake(takeID, length uint32) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdFinishAudioTake, TakeID: takeID, Length: length})
}

// FinishMidiTake requests that a Recording MIDI take stop growing once it
// reaches length frames, injecting synthetic note-offs for anything still
// held and realigning the playhead if it has already run past the
// boundary — parity with FinishAudioTake.
func (f *Frontend) FinishMidiTake(takeID, length uint32) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdFinishMidiTake, TakeID: takeID, Length: length})
}

// DeleteTake removes a take entirely, handing it off to the destructor
// helper.
func (f *Frontend) DeleteTake(takeID uint32) bool {
	return RetrySend(f.backend.Commands, Command{Kind: CmdDeleteTake, TakeID: takeID})
}
