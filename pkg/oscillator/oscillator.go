// Package oscillator provides simple periodic waveform generators.
package oscillator

import "math"

// Oscillator generates periodic waveforms from a free-running phase
// accumulator. Phase can be set directly from an external sample position
// (SetPhase), which is what lets the metronome stay sample-exact across a
// song loop instead of drifting the way a purely incremental phase would.
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
}

// New creates a new oscillator at the given sample rate.
func New(sampleRate float64) *Oscillator {
	return &Oscillator{
		sampleRate: sampleRate,
		frequency:  440.0,
		phaseInc:   440.0 / sampleRate,
	}
}

// SetFrequency sets the oscillator frequency in Hz.
func (o *Oscillator) SetFrequency(freq float64) {
	o.frequency = freq
	o.phaseInc = freq / o.sampleRate
}

// SetPhase sets the oscillator phase, wrapping into [0, 1).
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset resets the oscillator phase to 0.
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

func (o *Oscillator) updatePhase() {
	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
}

// Square generates a square wave sample in {0, 1}, high for the first half
// of the cycle and low for the second.
func (o *Oscillator) Square() float32 {
	var sample float32
	if o.phase < 0.5 {
		sample = 1.0
	} else {
		sample = 0.0
	}
	o.updatePhase()
	return sample
}
