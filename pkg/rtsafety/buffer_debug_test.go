//go:build debug

package rtsafety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectAllocationPassesOnAllocationFreeWork(t *testing.T) {
	buf := make([]float32, 64)
	assert.NotPanics(t, func() {
		DetectAllocation(func() {
			for i := range buf {
				buf[i] = float32(i)
			}
		})
	})
}

// allocSink keeps the test's allocation escaping to the heap; a slice
// that is only discarded is placed on the stack and never counted.
var allocSink []float32

func TestDetectAllocationCatchesAllocation(t *testing.T) {
	assert.Panics(t, func() {
		DetectAllocation(func() {
			allocSink = make([]float32, 64)
		})
	})
}

func TestCheckAllocationPanicsOnNilBuffer(t *testing.T) {
	EnableAllocationTracking()
	defer DisableAllocationTracking()
	assert.Panics(t, func() {
		CheckAllocation(nil, "input")
	})
}
