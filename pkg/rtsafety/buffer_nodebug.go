//go:build !debug

package rtsafety

// EnableAllocationTracking is a no-op when not built with the 'debug' tag.
func EnableAllocationTracking() {}

// DisableAllocationTracking is a no-op when not built with the 'debug' tag.
func DisableAllocationTracking() {}

// ResetAllocationTracking is a no-op when not built with the 'debug' tag.
func ResetAllocationTracking() {}

// CheckAllocation is a no-op when not built with the 'debug' tag.
func CheckAllocation(buffer []float32, name string) {}

// StartFrame is a no-op when not built with the 'debug' tag.
func StartFrame() {}

// EndFrame is a no-op when not built with the 'debug' tag.
func EndFrame() (allocations uint64, bytes uint64) { return 0, 0 }

// GetAllocationReport returns an empty string when not built with the
// 'debug' tag.
func GetAllocationReport() string { return "" }

// DetectAllocation just calls fn when not built with the 'debug' tag.
func DetectAllocation(fn func()) { fn() }
