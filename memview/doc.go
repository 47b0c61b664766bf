// Package memview provides index-remapped views over element storage.
//
// A Mapped view presents backing data through an index mapping: view
// index i reads the data element mapping[i]. Indexes mapped to
// InvalidIndex have no backing element and read the view's default
// value instead. The view itself stores no elements.
//
//	data := []float64{10, 20, 30, 40}
//	mapping := []uint32{1, 0, memview.InvalidIndex, 3}
//
//	v, err := memview.FromSlice(data, mapping,
//		memview.WithDefault(math.NaN()))
//	v.At(0) // 20
//	v.At(1) // 10
//	v.At(2) // NaN
//
// Backing storage comes in three shapes: a Go slice owned by the
// caller (FromSlice), a maybe-owning guest memory array (FromArray),
// or any Storage implementation. FromArray moves the array's ownership
// state into the view, so a view built over an owning array releases
// the guest allocation when dropped, and the source array is left null
// and non-owning. New dispatches between the shapes at runtime.
//
// The View interface is the read-only surface of a Mapped view; code
// that must not mutate the data should accept a View rather than a
// *Mapped.
package memview
