package memptr

import "reflect"

// Pointer is implemented by every maybe-owning pointer, whatever its
// element type. The raw address kind is always a uint32 guest offset
// and the release strategy kind is always guestmem.Deleter; the element
// kind is exposed through Elem. The interface is sealed: only *Ptr[T]
// and *Array[T] satisfy it.
type Pointer interface {
	// Addr returns the raw address regardless of ownership state.
	Addr() uint32
	// IsOwning reports whether the pointer owns its pointee.
	IsOwning() bool
	// IsNull reports whether the address is zero.
	IsNull() bool
	// Elem reports the element type.
	Elem() reflect.Type

	isMaybeOwning()
}

// IsMaybeOwning reports whether v is a maybe-owning pointer of any
// element kind. It inspects only the type, never the value, so a typed
// nil also reports true.
func IsMaybeOwning(v any) bool {
	_, ok := v.(Pointer)
	return ok
}
