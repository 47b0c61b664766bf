package abi

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// ReadValue reads one value of WIT type t from guest memory at addr and
// returns it as the matching Go type (bool, uint8 .. float64, rune, string).
//
// Strings follow the two-word indirection: addr holds [ptr: u32, len: u32]
// and the bytes live elsewhere in guest memory. Aggregate types are not
// supported here; callers that need records or lists should decode them
// field by field using Of for offsets.
func ReadValue(mem guestmem.Memory, addr uint32, t wit.Type) (any, error) {
	switch typ := t.(type) {
	case wit.Bool:
		v, err := mem.ReadU8(addr)
		if err != nil {
			return nil, err
		}
		return v != 0, nil

	case wit.U8:
		return mem.ReadU8(addr)

	case wit.S8:
		v, err := mem.ReadU8(addr)
		if err != nil {
			return nil, err
		}
		return int8(v), nil

	case wit.U16:
		return mem.ReadU16(addr)

	case wit.S16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return nil, err
		}
		return int16(v), nil

	case wit.U32:
		return mem.ReadU32(addr)

	case wit.S32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return nil, err
		}
		return int32(v), nil

	case wit.U64:
		return mem.ReadU64(addr)

	case wit.S64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return nil, err
		}
		return int64(v), nil

	case wit.F32:
		bits, err := mem.ReadU32(addr)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(CanonicalizeF32(bits)), nil

	case wit.F64:
		bits, err := mem.ReadU64(addr)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(CanonicalizeF64(bits)), nil

	case wit.Char:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return nil, err
		}
		r := rune(v)
		if !ValidateChar(r) {
			return nil, errors.New(errors.PhaseRead, errors.KindInvalidData).
				Detail("invalid Unicode scalar value: 0x%X", v).
				Build()
		}
		return r, nil

	case wit.String:
		return readString(mem, addr)

	case *wit.TypeDef:
		if alias, ok := typ.Kind.(wit.Type); ok {
			return ReadValue(mem, addr, alias)
		}
		return nil, errors.New(errors.PhaseRead, errors.KindUnsupported).
			Detail("aggregate type %s cannot be read as a single value", typeName(typ.Kind)).
			Build()

	default:
		return nil, errors.Unsupported(errors.PhaseRead, typeName(t))
	}
}

func readString(mem guestmem.Memory, addr uint32) (string, error) {
	dataAddr, err := mem.ReadU32(addr)
	if err != nil {
		return "", err
	}
	dataLen, err := mem.ReadU32(addr + 4)
	if err != nil {
		return "", err
	}

	if dataLen == 0 {
		return "", nil
	}

	if dataLen > MaxStringSize {
		return "", errors.New(errors.PhaseRead, errors.KindOverflow).
			Detail("string size %d exceeds maximum %d", dataLen, MaxStringSize).
			Build()
	}

	data, err := mem.Read(dataAddr, dataLen)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(data) {
		return "", errors.New(errors.PhaseRead, errors.KindInvalidData).
			Detail("string at 0x%x is not valid UTF-8", dataAddr).
			Build()
	}

	return string(data), nil
}

var namedTypes = map[string]wit.Type{
	"bool":   wit.Bool{},
	"u8":     wit.U8{},
	"s8":     wit.S8{},
	"u16":    wit.U16{},
	"s16":    wit.S16{},
	"u32":    wit.U32{},
	"s32":    wit.S32{},
	"u64":    wit.U64{},
	"s64":    wit.S64{},
	"f32":    wit.F32{},
	"f64":    wit.F64{},
	"char":   wit.Char{},
	"string": wit.String{},
}

// ParseType resolves a WIT primitive type name ("u8", "f64", "string", ...)
// to its wit.Type. Names are case-insensitive.
func ParseType(name string) (wit.Type, error) {
	t, ok := namedTypes[strings.ToLower(name)]
	if !ok {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Detail("unknown type name %q (want one of: %s)", name, typeNames()).
			Build()
	}
	return t, nil
}

func typeNames() string {
	names := make([]string, 0, len(namedTypes))
	for n := range namedTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
