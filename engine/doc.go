// Package engine provides the wazero substrate for guest memory access.
//
// This package wraps wazero to compile and instantiate core modules and to
// surface the two capabilities the rest of the library builds on: the
// instance's linear memory as a guestmem.Memory, and the guest-exported
// allocator as a guestmem.Allocator.
//
// # Architecture
//
// The engine package provides three main types:
//
//	Engine   - Creates and manages a wazero runtime
//	Module   - Represents a compiled module, can create instances
//	Instance - A running instance with memory, allocator, and exports
//
// # Allocator Discovery
//
// Guests export their allocator under different names depending on the
// toolchain. At instantiation the engine probes, in order:
//
//	cabi_realloc          (Canonical ABI standard)
//	canonical_abi_realloc (pre-standardization)
//	allocate
//	alloc
//
// and for the release side:
//
//	cabi_free
//	deallocate
//	free
//
// A realloc-shaped export is called as (0, 0, align, size); an alloc-shaped
// export (fewer than four parameters) is called as (size). Allocation
// failures surface as errors; free failures are logged and swallowed since
// the release path has no error return.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use.
// Instance is NOT thread-safe and should be used by a single goroutine.
//
// # Known Limitations
//
// Memory64: The WebAssembly Memory64 proposal (64-bit memory addressing) is
// not supported. This limitation comes from the underlying wazero runtime
// (v1.10.1) which does not implement Memory64. Guest addresses are uint32
// throughout.
package engine
