// Package audioutil provides small allocation-free helpers for combining
// audio buffers, shared by every component that touches the process
// callback's input/output slices.
package audioutil

// Clear zeroes a buffer.
func Clear(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// Add adds src into dst sample-by-sample, in place.
func Add(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// AddScaled adds src scaled by scale into dst, in place.
func AddScaled(dst, src []float32, scale float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i] * scale
	}
}
