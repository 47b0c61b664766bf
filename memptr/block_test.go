package memptr

import (
	"math"
	"testing"
)

func TestAllocBlock(t *testing.T) {
	alloc := newMockAllocator()
	alloc.offset = 1025 // force realignment

	b, err := AllocBlock[uint64](alloc, 3)
	if err != nil {
		t.Fatal(err)
	}

	if b.Addr != 1032 {
		t.Errorf("Addr = %d, want 1032 (1025 aligned up to 8)", b.Addr)
	}
	if b.Size != 24 {
		t.Errorf("Size = %d, want 24", b.Size)
	}
	if b.Align != 8 {
		t.Errorf("Align = %d, want 8", b.Align)
	}
	if b.IsZero() {
		t.Error("allocated block reports zero")
	}
}

func TestAllocBlock_SizeOverflow(t *testing.T) {
	alloc := newMockAllocator()

	if _, err := AllocBlock[uint64](alloc, math.MaxUint32); err == nil {
		t.Error("expected overflow error")
	}
	if alloc.allocs != 0 {
		t.Errorf("allocs = %d, want 0 (overflow rejected before allocating)", alloc.allocs)
	}
}

func TestBlock_IsZero(t *testing.T) {
	if !(Block{}).IsZero() {
		t.Error("empty block should be zero")
	}
	if (Block{Addr: 1}).IsZero() {
		t.Error("block with address should not be zero")
	}
	if (Block{Size: 1}).IsZero() {
		t.Error("block with size should not be zero")
	}
}
