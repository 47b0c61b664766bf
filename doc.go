// Package guestmem provides guest memory management primitives for
// wazero-based WebAssembly hosts.
//
// A host that exchanges data with a WASM guest constantly handles raw
// addresses into the guest's linear memory. Some of those addresses the
// host allocated itself, through the guest's exported allocator, and must
// free through the guest's exported deallocator exactly once. Others are
// borrowed views into memory the guest owns, and must never be freed by
// the host. Mixing the two up is the classic source of guest heap
// corruption: double frees, leaks, and frees of stack addresses.
//
// This library makes the distinction a property of the value that carries
// the address, decided once at construction and immutable afterwards
// except through an explicit move.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	guestmem/        Root package with Memory, Allocator and Deleter interfaces
//	├── memptr/      Maybe-owning pointers into guest memory (the core)
//	├── memview/     Index-mapped container views over element storage
//	├── abi/         Canonical ABI element layout for WIT types
//	├── track/       Allocation tracking, leak and foreign-free detection
//	├── engine/      wazero integration: instance memory and guest allocator
//	├── errors/      Structured error types for debugging
//	└── cmd/         meminspect, an interactive linear-memory inspector
//
// # Quick Start
//
// Attach to a running guest and place a value in its heap:
//
//	eng, err := engine.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	mod, err := eng.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	p, err := memptr.New[uint32](inst.Memory(), inst.Allocator(), 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Drop() // frees the guest allocation, exactly once
//
// Borrow an address the guest handed to the host; dropping the pointer
// leaves the memory alone:
//
//	view := memptr.BorrowArray[uint8](inst.Memory(), addr)
//	b, err := view.At(3)
//
// # Ownership Model
//
// Every pointer is in exactly one of two states, fixed at construction:
//
//	owned    - the pointer holds an exclusive allocation and must release
//	           it through its Deleter exactly once, on Drop or replacement
//	borrowed - the pointer holds a plain address; somebody else releases it
//
// Pointers are move-only. Copying one would manufacture a second release
// obligation for the same allocation, so the API hands out pointers
// (*memptr.Ptr, *memptr.Array) guarded against value copies by go vet.
// Move transfers the whole state and leaves the source as a null borrowed
// pointer.
//
// # Thread Safety
//
// Pointers model exclusive, single-owner semantics and are not safe for
// unsynchronized concurrent mutation, mirroring the underlying Instance
// which must be confined to one goroutine. Engine and Module are safe for
// concurrent use.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. Freed guest memory
// remains allocated to the instance and is recycled by the guest
// allocator. The track package can account for what the host still holds.
package guestmem
