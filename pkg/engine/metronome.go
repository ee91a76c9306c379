package engine

import (
	"math"

	"github.com/loopcraft/loopcraft/pkg/oscillator"
)

// clickEnvelopeFraction is the portion of a second each metronome click's
// linear decay spans: sample_rate/10, i.e. a 100ms click.
const clickEnvelopeFraction = 0.1

// ProcessMetronome writes one cycle of click waveform into output,
// starting at startPosition (the device's latency-compensated effective
// song position). Every sample is computed directly from its absolute
// position within the beat rather than by accumulating oscillator phase
// cycle to cycle, so the click never drifts regardless of how many
// cycles have run.
func ProcessMetronome(osc *oscillator.Oscillator, output []float32, startPosition, period, beatsPerBar uint32, sampleRate float64) {
	if period == 0 || beatsPerBar == 0 {
		for i := range output {
			output[i] = 0
		}
		return
	}
	clickLength := uint32(sampleRate * clickEnvelopeFraction)
	for i := range output {
		position := startPosition + uint32(i)
		positionInBeat := position % period
		beat := (position / period) % beatsPerBar

		freq := 440.0
		if beat == 0 {
			freq = 880.0
		}

		remaining := positionInBeat
		if remaining > clickLength {
			remaining = clickLength
		}
		volume := 1.0
		if clickLength > 0 {
			volume = 1.0 - float64(remaining)/float64(clickLength)
		}

		osc.SetFrequency(freq)
		phase := math.Mod(float64(positionInBeat)/sampleRate*freq, 1.0)
		osc.SetPhase(phase)
		output[i] = osc.Square() * float32(volume)
	}
}
