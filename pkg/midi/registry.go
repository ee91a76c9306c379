package midi

// NoteRegistry tracks which (channel, note) pairs are currently held, so
// the engine can resynthesize note-on/note-off pairs around mute
// transitions and record start/finish without ever leaving a hung note on
// a downstream synth.
//
// Deliberately a fixed 16x128 array rather than a map: it is touched on
// every recorded or played-back note-on/note-off inside the audio
// callback, and a map lookup would allocate the first time a new
// (channel, note) key is inserted.
type NoteRegistry struct {
	velocity [16][128]uint8
}

// Register updates the registry from m. Note-ons set the held velocity;
// note-offs (including zero-velocity note-ons) clear it; every other
// message is ignored.
func (r *NoteRegistry) Register(m Message) {
	kind, channel, note, velocity := m.Classify()
	switch kind {
	case KindNoteOn:
		r.velocity[channel][note] = velocity
	case KindNoteOff:
		r.velocity[channel][note] = 0
	}
}

// IsHeld reports whether (channel, note) is currently sounding.
func (r *NoteRegistry) IsHeld(channel, note uint8) bool {
	return r.velocity[channel][note] != 0
}

// Reset clears every held note without emitting anything.
func (r *NoteRegistry) Reset() {
	r.velocity = [16][128]uint8{}
}

// AppendNoteOns appends a synthetic note-on at timestamp for every
// currently held note to dst and returns the extended slice. Used when a
// take is unmuted or starts recording, so a downstream synth picks up
// notes that were already sounding before the take became audible.
func (r *NoteRegistry) AppendNoteOns(timestamp uint32, dst []Message) []Message {
	for ch := 0; ch < 16; ch++ {
		for note := 0; note < 128; note++ {
			if v := r.velocity[ch][note]; v != 0 {
				dst = append(dst, NoteOn(timestamp, uint8(ch), uint8(note), v))
			}
		}
	}
	return dst
}

// AppendNoteOffs appends a synthetic note-off at timestamp for every
// currently held note to dst and returns the extended slice. Used when a
// take is muted or finishes recording, so notes it was sounding don't hang
// once it goes silent.
// The velocity on these synthetic note-offs is fixed at 64 regardless of
// how the note was originally struck; only the fact that it must stop
// matters.
func (r *NoteRegistry) AppendNoteOffs(timestamp uint32, dst []Message) []Message {
	for ch := 0; ch < 16; ch++ {
		for note := 0; note < 128; note++ {
			if r.velocity[ch][note] != 0 {
				dst = append(dst, NoteOff(timestamp, uint8(ch), uint8(note), 64))
			}
		}
	}
	return dst
}
