package rtsafety_test

import (
	"github.com/loopcraft/loopcraft/pkg/audioutil"
	"github.com/loopcraft/loopcraft/pkg/rtsafety"
)

// Example of wrapping a process callback so a debug build panics the
// instant it allocates.
func Example_detectAllocation() {
	input := make([]float32, 512)
	output := make([]float32, 512)

	process := func() {
		audioutil.Clear(output)
		audioutil.Add(output, input)
	}

	rtsafety.DetectAllocation(process)
}
