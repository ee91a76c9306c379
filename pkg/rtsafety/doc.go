// Package rtsafety provides tools for verifying that the engine's process
// callback stays allocation-free and for tracking its CPU load.
//
// The allocation checks are only active when building with the 'debug'
// build tag, matching the way callers turn this on in development:
//
//	go build -tags debug
//
//	func (s *AudioThreadState) Process(scope ProcessScope) {
//	    rtsafety.DetectAllocation(func() {
//	        s.process(scope)
//	    })
//	}
//
// Go gives no way to disable the allocator for the duration of a call the
// way the engine's original runtime could, so DetectAllocation instead
// diffs runtime.MemStats.Mallocs across the call and panics if it moved -
// a runtime.GC() immediately before the call keeps a stop-the-world
// collection from landing mid-measurement and being misread as an
// allocation. Built without the 'debug' tag, the allocation-checking
// functions are no-ops (DetectAllocation just calls fn); the Profiler and
// ProcessProfiler work in every build.
package rtsafety
