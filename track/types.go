package track

// Span is one live allocation in guest memory.
type Span struct {
	Addr  uint32
	Size  uint32
	Align uint32
}

// Event kinds for allocation lifecycle notifications.
type EventKind uint8

const (
	EventAlloc EventKind = iota
	EventFree
	EventForeignFree
)

func (k EventKind) String() string {
	switch k {
	case EventAlloc:
		return "alloc"
	case EventFree:
		return "free"
	case EventForeignFree:
		return "foreign_free"
	default:
		return "unknown"
	}
}

// Event represents an allocation lifecycle event.
type Event struct {
	Kind  EventKind
	Addr  uint32
	Size  uint32
	Align uint32
}

// Observer receives notifications about allocation lifecycle events.
type Observer interface {
	OnAllocEvent(Event)
}

// Stats is a snapshot of the tracker's counters.
type Stats struct {
	Allocs       uint64
	Frees        uint64
	ForeignFrees uint64
	Live         int
	LiveBytes    uint64
}
