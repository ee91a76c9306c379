package engine

import "github.com/loopcraft/loopcraft/pkg/midi"

// clocksPerBeat is the MIDI standard: 24 clock bytes per quarter note.
const clocksPerBeat = 24

// ProcessMidiClock queues 0xF8 clock bytes falling within this cycle into
// out. position is the device's latency-compensated effective song
// position at the start of the cycle; clocks are scheduled at multiples
// of ceil(songLength / (24*beatsPerBar)), wrapping the search into the
// post-wrap portion of the cycle when the loop wraps mid-cycle.
func ProcessMidiClock(out *midi.OutBuffer, position, numFrames, songLength, beatsPerBar uint32) {
	if songLength == 0 || beatsPerBar == 0 {
		return
	}
	nClocks := clocksPerBeat * beatsPerBar
	period := ceilDiv(songLength, nClocks)
	if period == 0 {
		return
	}

	end := position + numFrames
	if end <= songLength {
		queueClocksInRange(out, position, end, period, 0)
		return
	}
	queueClocksInRange(out, position, songLength, period, 0)
	wrapOffset := songLength - position
	queueClocksInRange(out, 0, end-songLength, period, wrapOffset)
}

// queueClocksInRange queues a clock byte for every multiple of period in
// [rangeStart, rangeEnd), with its out-buffer timestamp computed relative
// to rangeStart and shifted by blockOffset (the number of frames already
// consumed earlier in this cycle, used when a wrap splits the cycle into
// two sub-ranges).
func queueClocksInRange(out *midi.OutBuffer, rangeStart, rangeEnd, period, blockOffset uint32) {
	k := ceilDiv(rangeStart, period)
	for k*period < rangeEnd {
		ts := k*period - rangeStart + blockOffset
		out.Queue(midi.RealtimeByte(ts, midi.ClockByte))
		k++
	}
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
