package memptr

import (
	"math"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// Block is an exclusively owned span of guest memory, produced by an
// allocator and consumed when a pointer adopts it. Whoever holds the
// block is responsible for releasing it exactly once.
type Block struct {
	Addr  uint32
	Size  uint32
	Align uint32
}

// IsZero reports whether the block holds no allocation.
func (b Block) IsZero() bool {
	return b == Block{}
}

// AllocBlock allocates guest storage for n elements of type T. The
// span is aligned to the element stride.
func AllocBlock[T Element](alloc guestmem.Allocator, n uint32) (Block, error) {
	stride := Stride[T]()
	size, err := mulU32(stride, n)
	if err != nil {
		return Block{}, err
	}
	addr, err := alloc.Alloc(size, stride)
	if err != nil {
		return Block{}, err
	}
	return Block{Addr: addr, Size: size, Align: stride}, nil
}

// mulU32 multiplies with overflow detection.
func mulU32(a, b uint32) (uint32, error) {
	if a != 0 && b > math.MaxUint32/a {
		return 0, errors.Overflow(errors.PhaseAlloc, nil, uint64(a)*uint64(b), "u32")
	}
	return a * b, nil
}
