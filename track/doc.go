// Package track wraps a guest allocator with live-span bookkeeping.
//
// The tracking Allocator records every span it hands out, counts allocs and
// frees, and flags foreign frees (releases of addresses with no live span,
// which includes double frees). Observers can subscribe to allocation
// lifecycle events; the inspector uses the live-span table as its data
// source, and tests use the counters to prove release-exactly-once
// behavior.
//
// # Usage
//
//	tracked := track.New(inst.Allocator())
//	p, err := memptr.New[uint32](mem, tracked, 42)
//	...
//	p.Drop()
//
//	stats := tracked.Stats()
//	// stats.Allocs == 1, stats.Frees == 1, stats.Live == 0
package track
