package track

import (
	"sync"

	guestmem "github.com/wippyai/wasm-guestmem"
)

// Allocator wraps a guestmem.Allocator and records every span it hands out.
//
// A Free of an address with no live span (a double free, or a span the
// tracker never saw) is counted as a foreign free and is NOT forwarded to
// the wrapped allocator, so a misbehaving caller cannot release the same
// guest span twice through the tracker.
type Allocator struct {
	inner guestmem.Allocator

	mu           sync.RWMutex
	live         map[uint32]Span
	allocs       uint64
	frees        uint64
	foreignFrees uint64
	liveBytes    uint64

	obsMu     sync.RWMutex
	observers []Observer
}

var _ guestmem.Allocator = (*Allocator)(nil)

// New creates a tracking wrapper around inner.
func New(inner guestmem.Allocator) *Allocator {
	return &Allocator{
		inner: inner,
		live:  make(map[uint32]Span),
	}
}

// Alloc forwards to the wrapped allocator and records the returned span.
func (a *Allocator) Alloc(size, align uint32) (uint32, error) {
	ptr, err := a.inner.Alloc(size, align)
	if err != nil {
		return 0, err
	}

	span := Span{Addr: ptr, Size: size, Align: align}

	a.mu.Lock()
	a.live[ptr] = span
	a.allocs++
	a.liveBytes += uint64(size)
	a.mu.Unlock()

	a.notify(Event{Kind: EventAlloc, Addr: ptr, Size: size, Align: align})
	return ptr, nil
}

// Free releases a span. Live spans are forwarded to the wrapped allocator;
// anything else is counted as a foreign free and swallowed.
func (a *Allocator) Free(ptr, size, align uint32) {
	a.mu.Lock()
	span, ok := a.live[ptr]
	if ok {
		delete(a.live, ptr)
		a.frees++
		a.liveBytes -= uint64(span.Size)
	} else {
		a.foreignFrees++
	}
	a.mu.Unlock()

	if !ok {
		a.notify(Event{Kind: EventForeignFree, Addr: ptr, Size: size, Align: align})
		return
	}

	a.inner.Free(ptr, size, align)
	a.notify(Event{Kind: EventFree, Addr: ptr, Size: span.Size, Align: span.Align})
}

// Subscribe adds an observer for allocation events.
func (a *Allocator) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Unsubscribe removes an observer.
func (a *Allocator) Unsubscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	for i, obs := range a.observers {
		if obs == o {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// Stats returns a snapshot of the tracker's counters.
func (a *Allocator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Stats{
		Allocs:       a.allocs,
		Frees:        a.frees,
		ForeignFrees: a.foreignFrees,
		Live:         len(a.live),
		LiveBytes:    a.liveBytes,
	}
}

// Live returns the number of live spans.
func (a *Allocator) Live() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.live)
}

// LiveBytes returns the total size of all live spans.
func (a *Allocator) LiveBytes() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.liveBytes
}

// Each iterates over all live spans. Iteration order is unspecified.
func (a *Allocator) Each(fn func(Span) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, span := range a.live {
		if !fn(span) {
			break
		}
	}
}

// Reset clears all counters and forgets live spans. It does not free
// anything in guest memory.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live = make(map[uint32]Span)
	a.allocs = 0
	a.frees = 0
	a.foreignFrees = 0
	a.liveBytes = 0
}

func (a *Allocator) notify(e Event) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.OnAllocEvent(e)
	}
}
