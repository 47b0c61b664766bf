package memptr

import (
	"math"
	"reflect"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// Array is a maybe-owning pointer to an unbounded sequence of elements
// of type T in guest memory. Ownership semantics match Ptr; indexed
// access offsets from the base address by the element stride. The
// sequence length is not part of the type and indexing is not bounds
// checked beyond what the backing memory itself enforces.
//
// Array is move-only, like Ptr. The zero value is a null borrowed
// array.
type Array[T Element] struct {
	core
}

// NullArray returns an empty borrowed array, equivalent to the zero
// value.
func NullArray[T Element]() *Array[T] {
	return &Array[T]{}
}

// BorrowArray wraps the address of a sequence owned elsewhere. The
// returned array never releases the storage.
func BorrowArray[T Element](mem guestmem.Memory, addr uint32) *Array[T] {
	return &Array[T]{core{mem: mem, st: borrowed{address: addr}}}
}

// AdoptArray takes ownership of an allocated block holding a sequence
// of T. The block is emptied; it is released through free exactly once.
func AdoptArray[T Element](mem guestmem.Memory, free guestmem.Deleter, b *Block) *Array[T] {
	a := &Array[T]{core{mem: mem, st: owned{block: *b, free: free}}}
	*b = Block{}
	return a
}

// NewArray allocates guest storage for a copy of vs and returns an
// owning array over it. A fixed-length Go array is passed as arr[:],
// which produces the same Array[T] whatever the array's declared
// length.
func NewArray[T Element](mem guestmem.Memory, alloc guestmem.Allocator, vs []T) (*Array[T], error) {
	if uint64(len(vs)) > math.MaxUint32 {
		return nil, errors.Overflow(errors.PhaseAlloc, nil, len(vs), "u32")
	}
	b, err := AllocBlock[T](alloc, uint32(len(vs)))
	if err != nil {
		return nil, err
	}
	a := AdoptArray[T](mem, alloc, &b)
	for i, v := range vs {
		if err := a.SetAt(uint32(i), v); err != nil {
			a.Drop()
			return nil, err
		}
	}
	return a, nil
}

// At reads element i.
func (a *Array[T]) At(i uint32) (T, error) {
	var zero T
	if a.mem == nil {
		return zero, errors.NotInitialized(errors.PhaseRead, "memory")
	}
	addr, err := a.elemAddr(i, errors.PhaseRead)
	if err != nil {
		return zero, err
	}
	return load[T](a.mem, addr)
}

// SetAt writes element i.
func (a *Array[T]) SetAt(i uint32, v T) error {
	if a.mem == nil {
		return errors.NotInitialized(errors.PhaseWrite, "memory")
	}
	addr, err := a.elemAddr(i, errors.PhaseWrite)
	if err != nil {
		return err
	}
	return store(a.mem, addr, v)
}

// elemAddr computes the address of element i, guarding the 32-bit
// address space.
func (a *Array[T]) elemAddr(i uint32, phase errors.Phase) (uint32, error) {
	off := uint64(a.Addr()) + uint64(i)*uint64(Stride[T]())
	if off > math.MaxUint32 {
		return 0, errors.Overflow(phase, nil, off, "u32")
	}
	return uint32(off), nil
}

// Move transfers the whole ownership state to a fresh array, leaving
// the receiver as a null borrowed array.
func (a *Array[T]) Move() *Array[T] {
	out := &Array[T]{}
	out.core.moveFrom(&a.core)
	return out
}

// MoveFrom releases the receiver's current state, then takes src's
// state and memory. src is left as a null borrowed array. Moving from
// self is a no-op.
func (a *Array[T]) MoveFrom(src *Array[T]) {
	a.core.moveFrom(&src.core)
}

// Swap exchanges the complete state of two arrays.
func (a *Array[T]) Swap(other *Array[T]) {
	a.core.swap(&other.core)
}

// Elem reports the element type.
func (*Array[T]) Elem() reflect.Type {
	var v T
	return reflect.TypeOf(v)
}

func (*Array[T]) isMaybeOwning() {}

var _ Pointer = (*Array[uint32])(nil)
