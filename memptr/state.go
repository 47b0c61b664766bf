package memptr

import (
	"fmt"

	guestmem "github.com/wippyai/wasm-guestmem"
)

// state is the ownership state of a pointer. Exactly one of the two
// variants below is active at any time; every operation switches on it
// exhaustively and treats any other value as corrupt internal state.
type state interface {
	isState()
}

// owned holds an exclusively owned block and the deleter that releases
// it. The release fires exactly once, on drop or replacement.
type owned struct {
	block Block
	free  guestmem.Deleter
}

func (owned) isState() {}

// borrowed holds a plain address with no release obligation.
type borrowed struct {
	address uint32
}

func (borrowed) isState() {}

// noCopy triggers the copylocks check from go vet when a value
// containing it is copied.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// core carries the ownership state shared by Ptr and Array. The zero
// value is a null borrowed pointer.
type core struct {
	noCopy noCopy

	mem guestmem.Memory
	st  state
}

// active returns the current state, normalizing the zero value to a
// null borrowed pointer.
func (c *core) active() state {
	if c.st == nil {
		return borrowed{}
	}
	return c.st
}

// Addr returns the raw address regardless of ownership state. It never
// allocates and never fails.
func (c *core) Addr() uint32 {
	switch s := c.active().(type) {
	case owned:
		return s.block.Addr
	case borrowed:
		return s.address
	default:
		panic(fmt.Sprintf("memptr: corrupt ownership state %T", s))
	}
}

// IsOwning reports whether the pointer currently owns its pointee.
func (c *core) IsOwning() bool {
	switch s := c.active().(type) {
	case owned:
		return true
	case borrowed:
		return false
	default:
		panic(fmt.Sprintf("memptr: corrupt ownership state %T", s))
	}
}

// IsNull reports whether the address is zero, independent of ownership
// state.
func (c *core) IsNull() bool {
	return c.Addr() == 0
}

// Drop releases the pointee if owned, then leaves the pointer as a null
// borrowed pointer. Dropping a borrowed or already dropped pointer does
// nothing, so the release fires at most once.
func (c *core) Drop() {
	switch s := c.active().(type) {
	case owned:
		if s.block.Addr != 0 && s.free != nil {
			s.free.Free(s.block.Addr, s.block.Size, s.block.Align)
		}
	case borrowed:
		// no release obligation
	default:
		panic(fmt.Sprintf("memptr: corrupt ownership state %T", s))
	}
	c.st = borrowed{}
}

// Adopt releases the current state, then takes ownership of block b,
// which is emptied. free runs when the pointer is dropped or replaced.
func (c *core) Adopt(free guestmem.Deleter, b *Block) {
	c.Drop()
	c.st = owned{block: *b, free: free}
	*b = Block{}
}

// moveFrom releases the receiver's state, then transfers src's whole
// state (variant and payload) along with its memory. src is left as a
// null borrowed pointer. Moving from self is a no-op.
func (c *core) moveFrom(src *core) {
	if src == c {
		return
	}
	c.Drop()
	c.mem = src.mem
	c.st = src.active()
	src.st = borrowed{}
}

// swap exchanges the complete state of two pointers, memory included.
func (c *core) swap(o *core) {
	c.mem, o.mem = o.mem, c.mem
	c.st, o.st = o.active(), c.active()
}
