package memview

import (
	"github.com/wippyai/wasm-guestmem/errors"
	"github.com/wippyai/wasm-guestmem/memptr"
)

// Storage is the backing contract of a mapped view: random access to
// elements by data index. Implementations that also implement Drop
// release their storage when the view is dropped.
type Storage[T memptr.Element] interface {
	At(i uint32) (T, error)
	Set(i uint32, v T) error
}

// sliceStorage backs a view with a Go slice owned by the caller. The
// view never outlives or releases it.
type sliceStorage[T memptr.Element] struct {
	data []T
}

func (s *sliceStorage[T]) At(i uint32) (T, error) {
	if uint64(i) >= uint64(len(s.data)) {
		var zero T
		return zero, errors.OutOfBounds(errors.PhaseView, []string{"data"}, int(i), len(s.data))
	}
	return s.data[i], nil
}

func (s *sliceStorage[T]) Set(i uint32, v T) error {
	if uint64(i) >= uint64(len(s.data)) {
		return errors.OutOfBounds(errors.PhaseView, []string{"data"}, int(i), len(s.data))
	}
	s.data[i] = v
	return nil
}

// arrayStorage backs a view with a maybe-owning array moved into it.
// The sequence carries no length, so data indexes are bounded only by
// the guest memory itself.
type arrayStorage[T memptr.Element] struct {
	arr *memptr.Array[T]
}

func (s *arrayStorage[T]) At(i uint32) (T, error) {
	return s.arr.At(i)
}

func (s *arrayStorage[T]) Set(i uint32, v T) error {
	return s.arr.SetAt(i, v)
}

// Drop releases the moved-in array if it owns its storage.
func (s *arrayStorage[T]) Drop() {
	s.arr.Drop()
}
