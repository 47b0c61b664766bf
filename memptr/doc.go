// Package memptr provides maybe-owning pointers over WASM guest memory.
//
// A maybe-owning pointer wraps a guest address that, depending on how it
// was constructed, either owns the storage it refers to and must release
// it exactly once, or merely borrows storage owned elsewhere and must
// never release it. Callers use one interface for both cases; the
// ownership decision is made once, at construction, and changes only
// through move transfer or adoption of a new allocation.
//
// # Element Kinds
//
// Two kinds of pointee exist, carried as distinct types:
//
//	Ptr[T]    - a single value of T
//	Array[T]  - an unbounded sequence of T, with indexed access
//
// T is constrained to fixed-size scalar kinds (Element). Aggregates do
// not satisfy the constraint, so an owning pointer cannot be built from
// a composite value.
//
// # Construction
//
// Four forms, each fixing the ownership state:
//
//	p := memptr.Null[uint32]()                  // borrowed, address 0
//	p := memptr.Borrow[uint32](mem, addr)       // borrowed at addr
//	p := memptr.Adopt[uint32](mem, free, &blk)  // owned, block moved in
//	p, err := memptr.New(mem, alloc, uint32(7)) // owned, freshly stored
//
// Array variants mirror these. A raw address never selects an element
// kind on its own: Borrow and BorrowArray are separate entry points. A
// fixed-length Go array always constructs the unbounded Array kind:
//
//	var tens [10]uint8
//	arr, err := memptr.NewArray(mem, alloc, tens[:]) // *Array[uint8]
//
// # Ownership Discipline
//
// Pointers are move-only. Copying a value would duplicate a release
// obligation, so constructors hand out pointers, methods use pointer
// receivers, and go vet rejects value copies. State moves as a whole
// unit:
//
//	q := p.Move()    // q holds p's state, p is null and non-owning
//	p.MoveFrom(q)    // p releases its state, then takes q's
//	p.Drop()         // release if owning, then null; safe to repeat
//
// Dropping a borrowed pointer never touches the pointee. Dropping an
// owning pointer releases it exactly once; the pointer is then a null
// borrowed pointer and further drops are inert.
//
// # Detection
//
// The Pointer interface is satisfied only by *Ptr[T] and *Array[T] and
// exposes the type-level facts (element kind, address, ownership) that
// generic adapters need. IsMaybeOwning reports whether an arbitrary
// value is one of the two.
package memptr
