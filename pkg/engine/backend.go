package engine

import (
	"github.com/loopcraft/loopcraft/pkg/audioutil"
	"github.com/loopcraft/loopcraft/pkg/buffer"
	"github.com/loopcraft/loopcraft/pkg/midi"
	"github.com/loopcraft/loopcraft/pkg/oscillator"
)

// maxDevices bounds how many audio or MIDI device slots the backend will
// track, matching the frontend's "refuse past 32 devices" policy.
const maxDevices = 32

// audioDeviceSlot and midiDeviceSlot pair a device with the id the
// frontend knows it by, so takes can be matched to their owning device by
// a linear scan over the (small) live list, as the design notes prescribe
// for take lookup.
// Device slots are keyed by the frontend-chosen slot index (the "index"
// in UpdateAudioDevice/UpdateMidiDevice), which also doubles as the
// device id a take's AudioDeviceID/MidiDeviceID field refers to. There is
// no separate generated device id: a slot's identity is exactly which
// index it occupies, for the lifetime it is occupied.
type audioDeviceSlot struct {
	index  uint32
	device AudioDevice
	echo   bool // direct input monitoring: capture mixed straight into this device's own playback

	// sliceScratch holds the per-channel post-wrap capture slices handed
	// to a take that arms mid-cycle (see (*Backend).sliceFrom). Sized to
	// the device's channel count once, when the device is installed, so
	// the arm path never allocates the outer [][]float32 on the audio
	// thread.
	sliceScratch [][]float32
}

// midiShiftScratchCapacity bounds how many incoming events
// (*Backend).shiftEvents can rewrite in one cycle without allocating.
// Sized generously against the command/event ring capacities elsewhere in
// Backend; a device delivering more note/control messages than this in a
// single cycle is already pathological.
const midiShiftScratchCapacity = 256

type midiDeviceSlot struct {
	index    uint32
	device   MidiDevice
	incoming []midi.Message // this cycle's captured events, cached so every take on the device shares one Incoming() call and one registry update

	// shiftScratch backs (*Backend).shiftEvents's output for this device,
	// preallocated at device-install time rather than per arm cycle.
	shiftScratch []midi.Message
}

// Backend is the audio thread's entire mutable state: every device and
// take, the shared atomics it publishes to, and the bounded queues it
// drains and fills each cycle. Nothing outside the audio thread may touch
// it directly; the frontend only ever sees ids.
type Backend struct {
	SampleRate float64
	Shared     *SharedState

	Commands     *buffer.Ring[Command]
	Events       *buffer.Ring[Event]
	Destructions *buffer.Ring[DestructionRequest]
	destructorWake chan struct{}

	SongLength uint32
	NumBeats   uint32

	audioDevices []audioDeviceSlot
	midiDevices  []midiDeviceSlot
	audioTakes   []*AudioTake
	midiTakes    []*MidiTake

	Metronome           AudioDevice
	MetronomeOscillator *oscillator.Oscillator
	MidiClockDevice     MidiDevice

	transportPosition uint32
	songPosition      uint32
	midiTransportByte *uint8 // pending 0xFA/0xFC from RestartMidiTransport, consumed next MIDI-clock pass
}

// NewBackend constructs a Backend. songLength is in sample frames (the
// caller is responsible for converting from the launch-time millisecond
// value using sampleRate).
func NewBackend(sampleRate float64, songLength, numBeats uint32, shared *SharedState) *Backend {
	b := &Backend{
		SampleRate:          sampleRate,
		Shared:              shared,
		Commands:            buffer.NewRing[Command](256),
		Events:              buffer.NewRing[Event](256),
		Destructions:        buffer.NewRing[DestructionRequest](64),
		SongLength:          songLength,
		NumBeats:            numBeats,
		MetronomeOscillator: oscillator.New(sampleRate),
		destructorWake:      make(chan struct{}, 1),
	}
	shared.setSongLength(songLength)
	return b
}

func wrapMod(x int64, m uint32) uint32 {
	if m == 0 {
		return 0
	}
	r := x % int64(m)
	if r < 0 {
		r += int64(m)
	}
	return uint32(r)
}

func (b *Backend) findAudioDevice(id uint32) AudioDevice {
	for _, s := range b.audioDevices {
		if s.index == id {
			return s.device
		}
	}
	return nil
}

func (b *Backend) findMidiDevice(id uint32) MidiDevice {
	for _, s := range b.midiDevices {
		if s.index == id {
			return s.device
		}
	}
	return nil
}

func (b *Backend) midiIncomingFor(id uint32) []midi.Message {
	for _, s := range b.midiDevices {
		if s.index == id {
			return s.incoming
		}
	}
	return nil
}

// captureMidiIncoming reads each MIDI device's incoming events exactly
// once per cycle, folds them into that device's held-note registry, and
// caches the slice for every take on the device to share, so a device
// with several takes doesn't double-count its registry updates.
func (b *Backend) captureMidiIncoming(scope Scope) {
	for i, s := range b.midiDevices {
		events := s.device.Incoming(scope)
		b.midiDevices[i].incoming = events
		reg := s.device.Registry()
		for _, ev := range events {
			reg.Register(ev)
		}
	}
}

func (b *Backend) findAudioTake(id uint32) *AudioTake {
	for _, t := range b.audioTakes {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *Backend) findMidiTake(id uint32) *MidiTake {
	for _, t := range b.midiTakes {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *Backend) emit(e Event) {
	b.Events.TryPush(e)
}

// sendDestruction hands an object off to the destructor helper and wakes
// it, so freeing never happens on the audio thread.
func (b *Backend) sendDestruction(req DestructionRequest) {
	b.Destructions.TryPush(req)
	select {
	case b.destructorWake <- struct{}{}:
	default:
	}
}

// Process runs exactly one process cycle: generators, then commands,
// then audio playback, MIDI playback, audio recording, MIDI recording,
// waiting-take arming, and finally position bookkeeping. It must never
// allocate; every slice it touches is either a driver-owned buffer or
// already-allocated take/device state.
func (b *Backend) Process(scope Scope) {
	numFrames := uint32(scope.NumFrames())

	b.runGenerators(scope, numFrames)
	b.drainCommands()
	b.playbackAudio(scope, numFrames)
	b.playbackMidi(scope, numFrames)
	b.captureMidiIncoming(scope)
	b.recordAudio(scope, numFrames)
	b.recordMidi(scope, numFrames)
	b.armWaitingTakes(scope, numFrames)
	b.advancePosition(numFrames)
}

func (b *Backend) runGenerators(scope Scope, numFrames uint32) {
	if b.Metronome != nil {
		latency := b.Metronome.Info().PlaybackLatency
		startPos := wrapMod(int64(b.songPosition)+int64(latency), b.SongLength)
		_, playback := b.Metronome.Buffers(scope)
		for ch := range playback {
			ProcessMetronome(b.MetronomeOscillator, playback[ch], startPos, b.periodPerBeat(), b.NumBeats, b.SampleRate)
		}
	}
	if b.MidiClockDevice != nil {
		latency := b.MidiClockDevice.Info().PlaybackLatency
		startPos := wrapMod(int64(b.songPosition)+int64(latency), b.SongLength)
		out := b.MidiClockDevice.Out()
		if b.midiTransportByte != nil {
			out.Queue(midi.RealtimeByte(0, *b.midiTransportByte))
			b.midiTransportByte = nil
		}
		ProcessMidiClock(out, startPos, numFrames, b.SongLength, b.NumBeats)
	}
}

func (b *Backend) periodPerBeat() uint32 {
	if b.NumBeats == 0 {
		return 0
	}
	return b.SongLength / b.NumBeats
}

func (b *Backend) drainCommands() {
	for {
		cmd, ok := b.Commands.TryPop()
		if !ok {
			return
		}
		b.apply(cmd)
	}
}

func (b *Backend) apply(cmd Command) {
	switch cmd.Kind {
	case CmdSetSongLength:
		if len(b.audioTakes) != 0 || len(b.midiTakes) != 0 {
			return // rejected: frontend must guarantee no takes exist
		}
		b.SongLength = cmd.SongLength
		b.NumBeats = cmd.NumBeats
		b.Shared.setSongLength(cmd.SongLength)

	case CmdUpdateAudioDevice:
		b.setAudioDeviceSlot(cmd.DeviceIndex, cmd.AudioDevice)

	case CmdUpdateMidiDevice:
		b.setMidiDeviceSlot(cmd.DeviceIndex, cmd.MidiDevice)

	case CmdNewAudioTake:
		if cmd.AudioTake != nil {
			b.audioTakes = append(b.audioTakes, cmd.AudioTake)
		}

	case CmdNewMidiTake:
		if cmd.MidiTake != nil {
			b.midiTakes = append(b.midiTakes, cmd.MidiTake)
		}

	case CmdRestartMidiTransport:
		start := midi.StartByte
		b.midiTransportByte = &start

	case CmdSetAudioEcho:
		key := uint32(cmd.DeviceIndex)
		for i, s := range b.audioDevices {
			if s.index == key {
				b.audioDevices[i].echo = cmd.Flag
			}
		}

	case CmdSetAudioMute:
		if t := b.findAudioTake(cmd.TakeID); t != nil {
			t.Unmuted = cmd.Flag
		}

	case CmdSetMidiMute:
		if t := b.findMidiTake(cmd.TakeID); t != nil {
			t.Unmuted = cmd.Flag
		}

	case CmdFinishAudioTake:
		if t := b.findAudioTake(cmd.TakeID); t != nil {
			t.Finish(cmd.Length)
		}

	case CmdFinishMidiTake:
		if t := b.findMidiTake(cmd.TakeID); t != nil {
			t.Finish(cmd.Length)
		}

	case CmdDeleteTake:
		b.deleteTake(cmd.TakeID)
	}
}

func (b *Backend) setAudioDeviceSlot(index int, dev AudioDevice) {
	key := uint32(index)
	for i, s := range b.audioDevices {
		if s.index == key {
			if s.device != nil {
				b.sendDestruction(DestructionRequest{Kind: DestroyAudioDevice, AudioDevice: s.device})
			}
			if dev == nil {
				b.audioDevices = append(b.audioDevices[:i], b.audioDevices[i+1:]...)
			} else {
				b.audioDevices[i].device = dev
				b.audioDevices[i].sliceScratch = make([][]float32, dev.Info().NumChannels)
			}
			return
		}
	}
	if dev != nil && len(b.audioDevices) < maxDevices {
		b.audioDevices = append(b.audioDevices, audioDeviceSlot{
			index:        key,
			device:       dev,
			sliceScratch: make([][]float32, dev.Info().NumChannels),
		})
	}
}

func (b *Backend) setMidiDeviceSlot(index int, dev MidiDevice) {
	key := uint32(index)
	for i, s := range b.midiDevices {
		if s.index == key {
			if s.device != nil {
				b.sendDestruction(DestructionRequest{Kind: DestroyMidiDevice, MidiDevice: s.device})
			}
			if dev == nil {
				b.midiDevices = append(b.midiDevices[:i], b.midiDevices[i+1:]...)
			} else {
				b.midiDevices[i].device = dev
				b.midiDevices[i].shiftScratch = make([]midi.Message, 0, midiShiftScratchCapacity)
			}
			return
		}
	}
	if dev != nil && len(b.midiDevices) < maxDevices {
		b.midiDevices = append(b.midiDevices, midiDeviceSlot{
			index:        key,
			device:       dev,
			shiftScratch: make([]midi.Message, 0, midiShiftScratchCapacity),
		})
	}
}

func (b *Backend) deleteTake(id uint32) {
	for i, t := range b.audioTakes {
		if t.ID == id {
			b.audioTakes = append(b.audioTakes[:i], b.audioTakes[i+1:]...)
			b.sendDestruction(DestructionRequest{Kind: DestroyAudioTake, AudioTake: t})
			return
		}
	}
	for i, t := range b.midiTakes {
		if t.ID == id {
			b.midiTakes = append(b.midiTakes[:i], b.midiTakes[i+1:]...)
			b.sendDestruction(DestructionRequest{Kind: DestroyMidiTake, MidiTake: t})
			return
		}
	}
}

func (b *Backend) playbackAudio(scope Scope, numFrames uint32) {
	for _, s := range b.audioDevices {
		capture, playback := s.device.Buffers(scope)
		for ch := range playback {
			audioutil.Clear(playback[ch])
			if s.echo && ch < len(capture) {
				audioutil.Add(playback[ch], capture[ch])
			}
		}
	}
	for _, t := range b.audioTakes {
		dev := b.findAudioDevice(t.AudioDeviceID)
		if dev == nil {
			continue
		}
		_, playback := dev.Buffers(scope)
		t.Playback(playback)
	}
}

func (b *Backend) playbackMidi(scope Scope, numFrames uint32) {
	for _, t := range b.midiTakes {
		dev := b.findMidiDevice(t.MidiDeviceID)
		if dev == nil {
			continue
		}
		t.Playback(numFrames, dev.Out())
	}
	for _, s := range b.midiDevices {
		s.device.CommitOut(scope)
	}
	if b.MidiClockDevice != nil {
		b.MidiClockDevice.CommitOut(scope)
	}
}

func (b *Backend) recordAudio(scope Scope, numFrames uint32) {
	for _, t := range b.audioTakes {
		if t.State != RecordRecording {
			continue
		}
		dev := b.findAudioDevice(t.AudioDeviceID)
		if dev == nil {
			continue
		}
		capture, _ := dev.Buffers(scope)
		if !t.Record(capture) {
			t.Unmuted = false
			b.emit(Event{
				Kind:              EventAudioTakeStateChanged,
				DeviceID:          t.AudioDeviceID,
				TakeID:            t.ID,
				State:             RecordStale,
				Length:            t.RecordedLength,
				TransportPosition: b.transportPosition,
			})
			continue
		}
		if t.MaybeFinalize() {
			b.emit(Event{
				Kind:              EventAudioTakeStateChanged,
				DeviceID:          t.AudioDeviceID,
				TakeID:            t.ID,
				State:             RecordFinished,
				Length:            *t.Length,
				TransportPosition: t.StartedRecordingAt + *t.Length,
			})
		}
	}
}

func (b *Backend) recordMidi(scope Scope, numFrames uint32) {
	for _, t := range b.midiTakes {
		if t.State != RecordRecording {
			continue
		}
		incoming := b.midiIncomingFor(t.MidiDeviceID)
		if !t.Record(numFrames, incoming) {
			t.Unmuted = false
			b.emit(Event{
				Kind:              EventMidiTakeStateChanged,
				DeviceID:          t.MidiDeviceID,
				TakeID:            t.ID,
				State:             RecordStale,
				Length:            t.Duration,
				TransportPosition: b.transportPosition,
			})
			continue
		}
		if t.MaybeFinalize() {
			b.emit(Event{
				Kind:              EventMidiTakeStateChanged,
				DeviceID:          t.MidiDeviceID,
				TakeID:            t.ID,
				State:             RecordFinished,
				Length:            *t.Length,
				TransportPosition: t.StartedRecordingAt + *t.Length,
			})
		}
	}
}

// armWaitingTakes transitions Waiting takes to Recording the instant the
// owning device's capture-latency-compensated song position wraps within
// this cycle, then immediately records the post-wrap portion of the
// cycle so no input is lost between the boundary and the next cycle.
func (b *Backend) armWaitingTakes(scope Scope, numFrames uint32) {
	for _, t := range b.audioTakes {
		if t.State != RecordWaiting {
			continue
		}
		dev := b.findAudioDevice(t.AudioDeviceID)
		if dev == nil {
			continue
		}
		latency := dev.Info().CaptureLatency
		recordPos := wrapMod(int64(b.songPosition)-int64(latency), b.SongLength)
		if recordPos+numFrames < b.SongLength {
			continue
		}
		wrapOffset := b.SongLength - recordPos
		t.State = RecordRecording
		t.Playing = true
		t.StartedRecordingAt = b.transportPosition + wrapOffset
		capture, _ := dev.Buffers(scope)
		post := b.sliceFrom(t.AudioDeviceID, capture, wrapOffset)
		t.Record(post)
		b.emit(Event{
			Kind:              EventAudioTakeStateChanged,
			DeviceID:          t.AudioDeviceID,
			TakeID:            t.ID,
			State:             RecordRecording,
			TransportPosition: t.StartedRecordingAt,
		})
	}

	for _, t := range b.midiTakes {
		if t.State != RecordWaiting {
			continue
		}
		dev := b.findMidiDevice(t.MidiDeviceID)
		if dev == nil {
			continue
		}
		latency := dev.Info().CaptureLatency
		recordPos := wrapMod(int64(b.songPosition)-int64(latency), b.SongLength)
		if recordPos+numFrames < b.SongLength {
			continue
		}
		wrapOffset := b.SongLength - recordPos
		t.Playing = true
		t.StartedRecordingAt = b.transportPosition + wrapOffset
		t.BeginRecording(dev.Registry())
		incoming := b.midiIncomingFor(t.MidiDeviceID)
		post := b.shiftEvents(t.MidiDeviceID, incoming, wrapOffset)
		t.Record(numFrames-wrapOffset, post)
		b.emit(Event{
			Kind:              EventMidiTakeStateChanged,
			DeviceID:          t.MidiDeviceID,
			TakeID:            t.ID,
			State:             RecordRecording,
			TransportPosition: t.StartedRecordingAt,
		})
	}
}

// sliceFrom returns, per channel, the portion of capture from frame
// offset onward, written into the owning device slot's preallocated
// sliceScratch rather than a freshly made slice — this runs on the audio
// thread the cycle a Waiting take arms, so it must not allocate.
func (b *Backend) sliceFrom(deviceID uint32, capture [][]float32, offset uint32) [][]float32 {
	for i, s := range b.audioDevices {
		if s.index != deviceID {
			continue
		}
		out := b.audioDevices[i].sliceScratch[:len(capture)]
		for ch := range capture {
			if int(offset) >= len(capture[ch]) {
				out[ch] = capture[ch][:0]
			} else {
				out[ch] = capture[ch][offset:]
			}
		}
		return out
	}
	return nil
}

// shiftEvents filters incoming events to those at or after offset and
// rewrites their timestamps relative to offset, into the owning device
// slot's preallocated shiftScratch. Events beyond midiShiftScratchCapacity
// in one cycle are dropped rather than grown into; see its doc comment.
func (b *Backend) shiftEvents(deviceID uint32, incoming []midi.Message, offset uint32) []midi.Message {
	for i, s := range b.midiDevices {
		if s.index != deviceID {
			continue
		}
		out := b.midiDevices[i].shiftScratch[:0]
		for _, ev := range incoming {
			if ev.Timestamp < offset {
				continue
			}
			if len(out) >= cap(out) {
				break
			}
			out = append(out, midi.Message{Timestamp: ev.Timestamp - offset, Data: ev.Data})
		}
		b.midiDevices[i].shiftScratch = out
		return out
	}
	return nil
}

func (b *Backend) advancePosition(numFrames uint32) {
	prevSongPosition := b.songPosition
	b.transportPosition += numFrames
	b.songPosition = wrapMod(int64(b.songPosition)+int64(numFrames), b.SongLength)
	b.Shared.publish(b.songPosition, b.transportPosition)

	if b.songPosition < prevSongPosition {
		b.emit(Event{
			Kind:              EventTimestamp,
			SongPosition:      b.songPosition,
			TransportPosition: b.transportPosition,
		})
	}
}
