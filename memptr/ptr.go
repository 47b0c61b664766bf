package memptr

import (
	"reflect"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// Ptr is a maybe-owning pointer to a single element of type T in guest
// memory. It either owns the storage it points at, releasing it exactly
// once when dropped or replaced, or borrows storage owned elsewhere and
// never releases it. Which of the two applies is fixed at construction
// and changes only through move transfer or adoption of a new block.
//
// Ptr is move-only. Values must not be copied; constructors return
// pointers and transfer happens through Move, MoveFrom and Swap. The
// zero value is a null borrowed pointer.
type Ptr[T Element] struct {
	core
}

// Null returns an empty borrowed pointer, equivalent to the zero value.
func Null[T Element]() *Ptr[T] {
	return &Ptr[T]{}
}

// Borrow wraps an address owned elsewhere. The returned pointer reads
// and writes through mem but never releases the storage; the caller
// keeps every ownership obligation.
func Borrow[T Element](mem guestmem.Memory, addr uint32) *Ptr[T] {
	return &Ptr[T]{core{mem: mem, st: borrowed{address: addr}}}
}

// Adopt takes ownership of an allocated block, which is emptied. The
// pointer releases the block through free exactly once, when dropped or
// replaced.
func Adopt[T Element](mem guestmem.Memory, free guestmem.Deleter, b *Block) *Ptr[T] {
	p := &Ptr[T]{core{mem: mem, st: owned{block: *b, free: free}}}
	*b = Block{}
	return p
}

// New allocates guest storage for one element, stores v into it and
// returns an owning pointer over it.
func New[T Element](mem guestmem.Memory, alloc guestmem.Allocator, v T) (*Ptr[T], error) {
	b, err := AllocBlock[T](alloc, 1)
	if err != nil {
		return nil, err
	}
	p := Adopt[T](mem, alloc, &b)
	if err := p.Store(v); err != nil {
		p.Drop()
		return nil, err
	}
	return p, nil
}

// Load reads the pointee. A null address is not special: address 0 is a
// readable guest offset, and out of range access surfaces the memory's
// own error.
func (p *Ptr[T]) Load() (T, error) {
	var zero T
	if p.mem == nil {
		return zero, errors.NotInitialized(errors.PhaseRead, "memory")
	}
	return load[T](p.mem, p.Addr())
}

// Store writes the pointee.
func (p *Ptr[T]) Store(v T) error {
	if p.mem == nil {
		return errors.NotInitialized(errors.PhaseWrite, "memory")
	}
	return store(p.mem, p.Addr(), v)
}

// Move transfers the whole ownership state to a fresh pointer, leaving
// the receiver as a null borrowed pointer.
func (p *Ptr[T]) Move() *Ptr[T] {
	out := &Ptr[T]{}
	out.core.moveFrom(&p.core)
	return out
}

// MoveFrom releases the receiver's current state, then takes src's
// state and memory. src is left as a null borrowed pointer. Moving from
// self is a no-op.
func (p *Ptr[T]) MoveFrom(src *Ptr[T]) {
	p.core.moveFrom(&src.core)
}

// Swap exchanges the complete state of two pointers.
func (p *Ptr[T]) Swap(other *Ptr[T]) {
	p.core.swap(&other.core)
}

// Elem reports the element type.
func (*Ptr[T]) Elem() reflect.Type {
	var v T
	return reflect.TypeOf(v)
}

func (*Ptr[T]) isMaybeOwning() {}

var _ Pointer = (*Ptr[uint32])(nil)
