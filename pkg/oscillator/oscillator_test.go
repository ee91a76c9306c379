package oscillator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquareWave(t *testing.T) {
	o := New(8)
	o.SetFrequency(1) // one cycle per 8 samples

	got := make([]float32, 8)
	for i := range got {
		got[i] = o.Square()
	}

	assert.Equal(t, []float32{1, 1, 1, 1, 0, 0, 0, 0}, got)
}

func TestSetPhaseIsSampleExact(t *testing.T) {
	o := New(44100)
	o.SetFrequency(440)
	o.SetPhase(0.75)
	assert.Equal(t, float32(0), o.Square())
}
