package memview

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-guestmem/errors"
	"github.com/wippyai/wasm-guestmem/memptr"
)

// InvalidIndex marks a view index with no corresponding element in the
// backing data. Reads of such indexes yield the view's default value.
const InvalidIndex uint32 = math.MaxUint32

// View is the read-only surface of a mapped view. It is what code that
// must not mutate the data should accept.
type View[T memptr.Element] interface {
	At(i int) (T, error)
	Len() int
	MapIndex(i int) (uint32, error)
	DefaultValue() T
	Each(f func(i int, v T) bool) error
}

// Mapped presents backing storage through an index mapping: view index
// i reads the data element mapping[i], and indexes mapped to
// InvalidIndex read the default value. The view holds no element
// storage of its own.
type Mapped[T memptr.Element] struct {
	storage Storage[T]
	mapping []uint32
	size    int
	def     T
}

var _ View[uint32] = (*Mapped[uint32])(nil)

// Option configures a view at construction.
type Option[T memptr.Element] func(*settings[T])

type settings[T memptr.Element] struct {
	size    int
	sizeSet bool
	def     T
}

// WithSize declares the nominal size of the view. Without it the view
// is as long as its mapping.
func WithSize[T memptr.Element](n int) Option[T] {
	return func(s *settings[T]) {
		s.size = n
		s.sizeSet = true
	}
}

// WithDefault sets the value returned for unmapped indexes. Without it
// the zero value of T is used.
func WithDefault[T memptr.Element](v T) Option[T] {
	return func(s *settings[T]) {
		s.def = v
	}
}

func newMapped[T memptr.Element](storage Storage[T], mapping []uint32, opts []Option[T]) (*Mapped[T], error) {
	var s settings[T]
	for _, opt := range opts {
		opt(&s)
	}

	size := len(mapping)
	if s.sizeSet {
		if s.size < 0 {
			return nil, errors.InvalidInput(errors.PhaseView, fmt.Sprintf("negative view size %d", s.size))
		}
		if s.size > len(mapping) {
			return nil, errors.InvalidInput(errors.PhaseView,
				fmt.Sprintf("view size %d exceeds mapping length %d", s.size, len(mapping)))
		}
		size = s.size
	}

	return &Mapped[T]{
		storage: storage,
		mapping: mapping,
		size:    size,
		def:     s.def,
	}, nil
}

// FromSlice builds a view over a Go slice owned by the caller. The
// view reads and writes the caller's elements and never releases them.
func FromSlice[T memptr.Element](data []T, mapping []uint32, opts ...Option[T]) (*Mapped[T], error) {
	return newMapped[T](&sliceStorage[T]{data: data}, mapping, opts)
}

// FromArray builds a view over a maybe-owning array. The array's whole
// ownership state is moved into the view: arr is left null and
// non-owning, and if the state was owning, Drop on the view performs
// the release.
func FromArray[T memptr.Element](arr *memptr.Array[T], mapping []uint32, opts ...Option[T]) (*Mapped[T], error) {
	if arr == nil {
		return nil, errors.NilPointer(errors.PhaseView, []string{"backing"}, "*memptr.Array")
	}
	return newMapped[T](&arrayStorage[T]{arr: arr.Move()}, mapping, opts)
}

// New builds a view over any supported backing: a []T, a
// *memptr.Array[T] (moved in, as FromArray) or a Storage[T]. Scalar
// maybe-owning pointers and arrays of a different element type are
// rejected.
func New[T memptr.Element](backing any, mapping []uint32, opts ...Option[T]) (*Mapped[T], error) {
	switch b := backing.(type) {
	case []T:
		return FromSlice(b, mapping, opts...)
	case *memptr.Array[T]:
		return FromArray(b, mapping, opts...)
	case Storage[T]:
		return newMapped[T](b, mapping, opts)
	}
	if memptr.IsMaybeOwning(backing) {
		var zero T
		return nil, errors.New(errors.PhaseView, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", backing)).
			Detail("maybe-owning backing must be *memptr.Array[%T]", zero).
			Build()
	}
	return nil, errors.New(errors.PhaseView, errors.KindUnsupported).
		GoType(fmt.Sprintf("%T", backing)).
		Detail("backing must be a slice, a maybe-owning array or a Storage").
		Build()
}

// Len returns the nominal size of the view.
func (m *Mapped[T]) Len() int {
	return m.size
}

// DefaultValue returns the value used for unmapped indexes.
func (m *Mapped[T]) DefaultValue() T {
	return m.def
}

// SetDefaultValue changes the value used for all following reads of
// unmapped indexes.
func (m *Mapped[T]) SetDefaultValue(v T) {
	m.def = v
}

// MapIndex returns the data index behind view index i, or InvalidIndex
// if i has no backing element.
func (m *Mapped[T]) MapIndex(i int) (uint32, error) {
	if i < 0 || i >= m.size {
		return 0, errors.OutOfBounds(errors.PhaseView, nil, i, m.size)
	}
	return m.mapping[i], nil
}

// At returns the element at view index i, or the default value if i is
// not mapped.
func (m *Mapped[T]) At(i int) (T, error) {
	var zero T
	if m.storage == nil {
		return zero, errors.NotInitialized(errors.PhaseView, "view storage")
	}
	j, err := m.MapIndex(i)
	if err != nil {
		return zero, err
	}
	if j == InvalidIndex {
		return m.def, nil
	}
	return m.storage.At(j)
}

// Set stores v at view index i. Unmapped indexes cannot be written.
func (m *Mapped[T]) Set(i int, v T) error {
	if m.storage == nil {
		return errors.NotInitialized(errors.PhaseView, "view storage")
	}
	j, err := m.MapIndex(i)
	if err != nil {
		return err
	}
	if j == InvalidIndex {
		return errors.InvalidInput(errors.PhaseView, fmt.Sprintf("view index %d is not mapped", i))
	}
	return m.storage.Set(j, v)
}

// Each calls f for every view index in order, stopping early when f
// returns false.
func (m *Mapped[T]) Each(f func(i int, v T) bool) error {
	for i := 0; i < m.size; i++ {
		v, err := m.At(i)
		if err != nil {
			return err
		}
		if !f(i, v) {
			return nil
		}
	}
	return nil
}

// Drop releases the backing storage if the view owns it. Dropping a
// view over borrowed or caller-owned storage does nothing.
func (m *Mapped[T]) Drop() {
	if d, ok := m.storage.(interface{ Drop() }); ok {
		d.Drop()
	}
}
