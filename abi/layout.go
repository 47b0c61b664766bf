package abi

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-guestmem/errors"
)

// Layout describes how a WIT type occupies guest memory.
type Layout struct {
	Size  uint32
	Align uint32
}

// AlignTo rounds offset up to the given alignment.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// DiscriminantSize: 1 byte for <=256 cases, 2 for <=65536, else 4 per spec.
func DiscriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

// Of computes the Canonical ABI layout of a WIT type.
func Of(t wit.Type) (Layout, error) {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Layout{Size: 1, Align: 1}, nil
	case wit.U16, wit.S16:
		return Layout{Size: 2, Align: 2}, nil
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Layout{Size: 4, Align: 4}, nil
	case wit.U64, wit.S64, wit.F64:
		return Layout{Size: 8, Align: 8}, nil
	case wit.String:
		return Layout{Size: 8, Align: 4}, nil // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return ofTypeDef(typ)
	default:
		return Layout{}, errors.Unsupported(errors.PhaseLayout, typeName(t))
	}
}

// Stride returns the size of one element in a sequence of t: the size
// rounded up to the alignment.
func Stride(t wit.Type) (uint32, error) {
	l, err := Of(t)
	if err != nil {
		return 0, err
	}
	return AlignTo(l.Size, l.Align), nil
}

func ofTypeDef(t *wit.TypeDef) (Layout, error) {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		return ofRecord(kind)
	case *wit.Variant:
		return ofVariant(kind)
	case *wit.Enum:
		size := DiscriminantSize(len(kind.Cases))
		return Layout{Size: size, Align: size}, nil
	case *wit.List:
		return Layout{Size: 8, Align: 4}, nil
	case *wit.Option:
		return ofOption(kind)
	case *wit.Result:
		return ofResult(kind)
	case *wit.Tuple:
		return ofTuple(kind)
	case *wit.Flags:
		return ofFlags(kind), nil
	case wit.Type:
		return Of(kind)
	default:
		return Layout{}, errors.Unsupported(errors.PhaseLayout, typeName(t.Kind))
	}
}

func ofRecord(r *wit.Record) (Layout, error) {
	if len(r.Fields) == 0 {
		return Layout{Size: 0, Align: 1}, nil
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fl, err := Of(field.Type)
		if err != nil {
			return Layout{}, err
		}
		offset = AlignTo(offset, fl.Align)
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Layout{Size: AlignTo(offset, maxAlign), Align: maxAlign}, nil
}

func ofVariant(v *wit.Variant) (Layout, error) {
	if len(v.Cases) == 0 {
		return Layout{Size: 0, Align: 1}, nil
	}

	discSize := DiscriminantSize(len(v.Cases))
	maxAlign := discSize
	maxSize := uint32(0)

	for _, cs := range v.Cases {
		if cs.Type == nil {
			continue
		}
		cl, err := Of(cs.Type)
		if err != nil {
			return Layout{}, err
		}
		if cl.Align > maxAlign {
			maxAlign = cl.Align
		}
		if cl.Size > maxSize {
			maxSize = cl.Size
		}
	}

	payloadOffset := AlignTo(discSize, maxAlign)
	return Layout{Size: AlignTo(payloadOffset+maxSize, maxAlign), Align: maxAlign}, nil
}

func ofOption(o *wit.Option) (Layout, error) {
	inner, err := Of(o.Type)
	if err != nil {
		return Layout{}, err
	}

	maxAlign := inner.Align
	if maxAlign < 1 {
		maxAlign = 1
	}

	payloadOffset := AlignTo(1, inner.Align)
	return Layout{Size: AlignTo(payloadOffset+inner.Size, maxAlign), Align: maxAlign}, nil
}

func ofResult(r *wit.Result) (Layout, error) {
	maxSize := uint32(0)
	maxAlign := uint32(1)

	if r.OK != nil {
		ok, err := Of(r.OK)
		if err != nil {
			return Layout{}, err
		}
		maxSize = ok.Size
		maxAlign = ok.Align
	}
	if r.Err != nil {
		e, err := Of(r.Err)
		if err != nil {
			return Layout{}, err
		}
		if e.Size > maxSize {
			maxSize = e.Size
		}
		if e.Align > maxAlign {
			maxAlign = e.Align
		}
	}

	payloadOffset := AlignTo(1, maxAlign)
	return Layout{Size: AlignTo(payloadOffset+maxSize, maxAlign), Align: maxAlign}, nil
}

func ofTuple(t *wit.Tuple) (Layout, error) {
	if len(t.Types) == 0 {
		return Layout{Size: 0, Align: 1}, nil
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, typ := range t.Types {
		el, err := Of(typ)
		if err != nil {
			return Layout{}, err
		}
		offset = AlignTo(offset, el.Align)
		if el.Align > maxAlign {
			maxAlign = el.Align
		}
		offset += el.Size
	}

	return Layout{Size: AlignTo(offset, maxAlign), Align: maxAlign}, nil
}

func ofFlags(f *wit.Flags) Layout {
	n := len(f.Flags)

	switch {
	case n == 0:
		return Layout{Size: 0, Align: 1}
	case n <= 8:
		return Layout{Size: 1, Align: 1}
	case n <= 16:
		return Layout{Size: 2, Align: 2}
	case n <= 32:
		return Layout{Size: 4, Align: 4}
	case n <= 64:
		return Layout{Size: 8, Align: 8}
	}

	// >64 flags: multiple u32s per Canonical ABI spec
	numU32s := (n + 31) / 32
	return Layout{Size: uint32(numU32s * 4), Align: 4}
}
