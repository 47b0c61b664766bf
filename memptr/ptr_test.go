package memptr

import (
	"testing"

	"github.com/wippyai/wasm-guestmem/errors"
)

func TestPtr_ZeroValue(t *testing.T) {
	var p Ptr[uint32]

	if p.IsOwning() {
		t.Error("zero value should not be owning")
	}
	if !p.IsNull() {
		t.Error("zero value should be null")
	}
	if p.Addr() != 0 {
		t.Errorf("Addr() = %d, want 0", p.Addr())
	}

	// Dropping the zero value is a no-op
	p.Drop()
	if p.IsOwning() {
		t.Error("still not owning after drop")
	}
}

func TestPtr_Null(t *testing.T) {
	p := Null[int64]()

	if p.IsOwning() {
		t.Error("Null() should not be owning")
	}
	if !p.IsNull() {
		t.Error("Null() should be null")
	}

	_, err := p.Load()
	if err == nil {
		t.Error("Load on a pointer without memory should fail")
	}
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindNotInitialized {
		t.Errorf("Load error = %v, want not_initialized", err)
	}
}

func TestPtr_Borrow(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	const addr = uint32(256)
	if err := mem.WriteU32(addr, 0xCAFEBABE); err != nil {
		t.Fatal(err)
	}

	p := Borrow[uint32](mem, addr)

	if p.IsOwning() {
		t.Error("borrowed pointer reports owning")
	}
	if p.IsNull() {
		t.Error("borrowed pointer at 256 reports null")
	}
	if p.Addr() != addr {
		t.Errorf("Addr() = %d, want %d", p.Addr(), addr)
	}

	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xCAFEBABE {
		t.Errorf("Load() = %#x, want 0xCAFEBABE", got)
	}

	if err := p.Store(7); err != nil {
		t.Fatal(err)
	}
	raw, err := mem.ReadU32(addr)
	if err != nil {
		t.Fatal(err)
	}
	if raw != 7 {
		t.Errorf("store did not write through: raw = %d, want 7", raw)
	}

	// Dropping a borrowed pointer must never release the storage.
	p.Drop()
	if alloc.frees != 0 {
		t.Errorf("frees = %d after dropping a borrowed pointer, want 0", alloc.frees)
	}
	raw, err = mem.ReadU32(addr)
	if err != nil {
		t.Fatal(err)
	}
	if raw != 7 {
		t.Errorf("memory changed by borrowed drop: raw = %d, want 7", raw)
	}
}

func TestPtr_New(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p, err := New(mem, alloc, uint64(123456789012))
	if err != nil {
		t.Fatal(err)
	}

	if !p.IsOwning() {
		t.Error("New should produce an owning pointer")
	}
	if p.IsNull() {
		t.Error("New should not produce a null pointer")
	}
	if alloc.allocs != 1 {
		t.Fatalf("allocs = %d, want 1", alloc.allocs)
	}
	if p.Addr() != 1024 {
		t.Errorf("Addr() = %d, want the freshly allocated 1024", p.Addr())
	}

	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != 123456789012 {
		t.Errorf("Load() = %d, want 123456789012", got)
	}

	p.Drop()
	if alloc.frees != 1 {
		t.Fatalf("frees = %d after drop, want 1", alloc.frees)
	}
	want := Block{Addr: 1024, Size: 8, Align: 8}
	if alloc.freed[0] != want {
		t.Errorf("freed %+v, want %+v", alloc.freed[0], want)
	}
	if p.IsOwning() || !p.IsNull() {
		t.Error("dropped pointer should be null and non-owning")
	}

	// Release fires at most once.
	p.Drop()
	if alloc.frees != 1 {
		t.Errorf("frees = %d after second drop, want 1", alloc.frees)
	}
}

func TestPtr_New_AllocFailure(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()
	alloc.failNext = true

	if _, err := New(mem, alloc, uint32(1)); err == nil {
		t.Fatal("expected allocation failure")
	}
	if alloc.allocs != 0 || alloc.frees != 0 {
		t.Errorf("allocs=%d frees=%d after failed alloc, want 0/0", alloc.allocs, alloc.frees)
	}
}

func TestPtr_New_StoreFailureReleases(t *testing.T) {
	// Allocation lands at 1024 but the memory ends before the store
	// completes, so New must release the fresh block on its way out.
	mem := newMockMemory(1028)
	alloc := newMockAllocator()

	if _, err := New(mem, alloc, uint64(1)); err == nil {
		t.Fatal("expected store failure")
	}
	if alloc.allocs != 1 {
		t.Fatalf("allocs = %d, want 1", alloc.allocs)
	}
	if alloc.frees != 1 {
		t.Errorf("frees = %d, want 1 (failed New must not leak)", alloc.frees)
	}
}

func TestPtr_Adopt(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	b, err := AllocBlock[uint16](alloc, 1)
	if err != nil {
		t.Fatal(err)
	}
	orig := b

	p := Adopt[uint16](mem, alloc, &b)

	if !b.IsZero() {
		t.Error("adopted block should be emptied")
	}
	if !p.IsOwning() {
		t.Error("adopted pointer should be owning")
	}
	if p.Addr() != orig.Addr {
		t.Errorf("Addr() = %d, want %d", p.Addr(), orig.Addr)
	}

	p.Drop()
	if alloc.frees != 1 {
		t.Fatalf("frees = %d, want 1", alloc.frees)
	}
	if alloc.freed[0] != orig {
		t.Errorf("freed %+v, want %+v", alloc.freed[0], orig)
	}
}

func TestPtr_Move(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	a, err := New(mem, alloc, int32(-42))
	if err != nil {
		t.Fatal(err)
	}
	wasAddr := a.Addr()

	b := a.Move()

	if !b.IsOwning() {
		t.Error("move target should own the state")
	}
	if b.Addr() != wasAddr {
		t.Errorf("move target Addr() = %d, want %d", b.Addr(), wasAddr)
	}
	if a.IsOwning() {
		t.Error("move source should not own anything")
	}
	if !a.IsNull() {
		t.Error("move source should be null")
	}

	got, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != -42 {
		t.Errorf("Load() through move target = %d, want -42", got)
	}

	// Destroying both sides releases the resource exactly once.
	a.Drop()
	b.Drop()
	if alloc.frees != 1 {
		t.Errorf("frees = %d after dropping both, want 1", alloc.frees)
	}
}

func TestPtr_MoveBorrowed(t *testing.T) {
	mem := newMockMemory(4096)

	a := Borrow[uint8](mem, 33)
	b := a.Move()

	if b.IsOwning() {
		t.Error("moved borrowed state should stay borrowed")
	}
	if b.Addr() != 33 {
		t.Errorf("Addr() = %d, want 33", b.Addr())
	}
	if !a.IsNull() {
		t.Error("move source should be null")
	}
}

func TestPtr_MoveFrom_ReleasesOldFirst(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p1, err := New(mem, alloc, uint32(1))
	if err != nil {
		t.Fatal(err)
	}
	r1 := p1.Addr()

	p2, err := New(mem, alloc, uint32(2))
	if err != nil {
		t.Fatal(err)
	}
	r2 := p2.Addr()

	p1.MoveFrom(p2)

	if alloc.frees != 1 {
		t.Fatalf("frees = %d after move assignment, want 1", alloc.frees)
	}
	if alloc.freed[0].Addr != r1 {
		t.Errorf("freed %d first, want the replaced resource %d", alloc.freed[0].Addr, r1)
	}
	if p1.Addr() != r2 || !p1.IsOwning() {
		t.Error("assignment target should own the source's resource")
	}
	if p2.IsOwning() || !p2.IsNull() {
		t.Error("assignment source should be null and non-owning")
	}

	p1.Drop()
	p2.Drop()
	if alloc.frees != 2 {
		t.Errorf("frees = %d after dropping both, want 2", alloc.frees)
	}
	if alloc.freed[1].Addr != r2 {
		t.Errorf("freed %d second, want %d", alloc.freed[1].Addr, r2)
	}
}

func TestPtr_MoveFromSelf(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p, err := New(mem, alloc, uint8(9))
	if err != nil {
		t.Fatal(err)
	}

	p.MoveFrom(p)

	if alloc.frees != 0 {
		t.Errorf("frees = %d after self move, want 0", alloc.frees)
	}
	if !p.IsOwning() {
		t.Error("self move should keep ownership")
	}
	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Errorf("Load() = %d, want 9", got)
	}
}

func TestPtr_AdoptMethod_ReleasesOldFirst(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p, err := New(mem, alloc, uint32(1))
	if err != nil {
		t.Fatal(err)
	}
	r1 := p.Addr()

	b, err := AllocBlock[uint32](alloc, 1)
	if err != nil {
		t.Fatal(err)
	}
	r2 := b.Addr

	p.Adopt(alloc, &b)

	if alloc.frees != 1 || alloc.freed[0].Addr != r1 {
		t.Errorf("adopting a new block should release the old resource %d first", r1)
	}
	if !b.IsZero() {
		t.Error("adopted block should be emptied")
	}
	if p.Addr() != r2 || !p.IsOwning() {
		t.Error("pointer should own the new block")
	}
}

func TestPtr_AdoptOverBorrowed(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p := Borrow[uint32](mem, 64)

	b, err := AllocBlock[uint32](alloc, 1)
	if err != nil {
		t.Fatal(err)
	}

	p.Adopt(alloc, &b)

	if alloc.frees != 0 {
		t.Error("replacing a borrowed state must not release anything")
	}
	if !p.IsOwning() {
		t.Error("pointer should own after adopt")
	}
}

func TestPtr_Swap(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	own, err := New(mem, alloc, uint32(11))
	if err != nil {
		t.Fatal(err)
	}
	ownAddr := own.Addr()
	bor := Borrow[uint32](mem, 128)

	own.Swap(bor)

	if own.IsOwning() || own.Addr() != 128 {
		t.Error("swap should leave the first pointer borrowing 128")
	}
	if !bor.IsOwning() || bor.Addr() != ownAddr {
		t.Error("swap should leave the second pointer owning the allocation")
	}
	if alloc.frees != 0 {
		t.Errorf("frees = %d during swap, want 0", alloc.frees)
	}

	bor.Drop()
	own.Drop()
	if alloc.frees != 1 {
		t.Errorf("frees = %d after dropping both, want 1", alloc.frees)
	}
}

type celsius float64

func TestPtr_NamedElementType(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	p, err := New(mem, alloc, celsius(36.6))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Drop()

	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != 36.6 {
		t.Errorf("Load() = %v, want 36.6", got)
	}
}

func TestPtr_ElementKinds(t *testing.T) {
	mem := newMockMemory(4096)
	alloc := newMockAllocator()

	t.Run("bool", func(t *testing.T) {
		p, err := New(mem, alloc, true)
		if err != nil {
			t.Fatal(err)
		}
		defer p.Drop()
		got, err := p.Load()
		if err != nil {
			t.Fatal(err)
		}
		if got != true {
			t.Errorf("Load() = %v, want true", got)
		}
	})

	t.Run("int16", func(t *testing.T) {
		p, err := New(mem, alloc, int16(-1234))
		if err != nil {
			t.Fatal(err)
		}
		defer p.Drop()
		got, err := p.Load()
		if err != nil {
			t.Fatal(err)
		}
		if got != -1234 {
			t.Errorf("Load() = %d, want -1234", got)
		}
	})

	t.Run("float32", func(t *testing.T) {
		p, err := New(mem, alloc, float32(3.14))
		if err != nil {
			t.Fatal(err)
		}
		defer p.Drop()
		got, err := p.Load()
		if err != nil {
			t.Fatal(err)
		}
		if got != float32(3.14) {
			t.Errorf("Load() = %v, want 3.14", got)
		}
	})

	t.Run("int64", func(t *testing.T) {
		p, err := New(mem, alloc, int64(-123456789012))
		if err != nil {
			t.Fatal(err)
		}
		defer p.Drop()
		got, err := p.Load()
		if err != nil {
			t.Fatal(err)
		}
		if got != -123456789012 {
			t.Errorf("Load() = %d, want -123456789012", got)
		}
	})
}

// bogusState stands in for a corrupted third variant.
type bogusState struct{}

func (bogusState) isState() {}

func TestPtr_CorruptStatePanics(t *testing.T) {
	mustPanic := func(t *testing.T, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Error("expected panic on corrupt ownership state")
			}
		}()
		f()
	}

	fresh := func() *Ptr[uint8] {
		p := Borrow[uint8](newMockMemory(16), 4)
		p.core.st = bogusState{}
		return p
	}

	mustPanic(t, func() { fresh().IsOwning() })
	mustPanic(t, func() { fresh().Addr() })
	mustPanic(t, func() { fresh().Drop() })
}
