package memptr

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// Element restricts pointees to fixed-size, naturally aligned value
// kinds that have a defined guest memory representation. Aggregates and
// platform-sized integers are rejected at compile time.
type Element interface {
	~bool | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Stride returns the byte size of one element of type T in guest
// memory. Element types are naturally aligned, so the stride doubles as
// the alignment.
func Stride[T Element]() uint32 {
	var v T
	return uint32(unsafe.Sizeof(v))
}

// load reads one element at addr. Exact types take the direct path;
// named types fall back to reflection.
func load[T Element](mem guestmem.Memory, addr uint32) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *bool:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return out, err
		}
		*p = b != 0
		return out, nil
	case *int8:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return out, err
		}
		*p = int8(b)
		return out, nil
	case *uint8:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return out, err
		}
		*p = b
		return out, nil
	case *int16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return out, err
		}
		*p = int16(v)
		return out, nil
	case *uint16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return out, err
		}
		*p = v
		return out, nil
	case *int32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return out, err
		}
		*p = int32(v)
		return out, nil
	case *uint32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return out, err
		}
		*p = v
		return out, nil
	case *int64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return out, err
		}
		*p = int64(v)
		return out, nil
	case *uint64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return out, err
		}
		*p = v
		return out, nil
	case *float32:
		bits, err := mem.ReadU32(addr)
		if err != nil {
			return out, err
		}
		*p = math.Float32frombits(bits)
		return out, nil
	case *float64:
		bits, err := mem.ReadU64(addr)
		if err != nil {
			return out, err
		}
		*p = math.Float64frombits(bits)
		return out, nil
	}
	err := loadReflect(mem, addr, reflect.ValueOf(&out).Elem())
	return out, err
}

func loadReflect(mem guestmem.Memory, addr uint32, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return err
		}
		rv.SetBool(b != 0)
	case reflect.Int8:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int8(b)))
	case reflect.Int16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int16(v)))
	case reflect.Int32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int32(v)))
	case reflect.Int64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Uint8:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(b))
	case reflect.Uint16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32:
		bits, err := mem.ReadU32(addr)
		if err != nil {
			return err
		}
		rv.SetFloat(float64(math.Float32frombits(bits)))
	case reflect.Float64:
		bits, err := mem.ReadU64(addr)
		if err != nil {
			return err
		}
		rv.SetFloat(math.Float64frombits(bits))
	default:
		return errors.Unsupported(errors.PhaseRead, fmt.Sprintf("element kind %s", rv.Kind()))
	}
	return nil
}

// store writes one element at addr, mirroring load.
func store[T Element](mem guestmem.Memory, addr uint32, v T) error {
	switch x := any(v).(type) {
	case bool:
		var b uint8
		if x {
			b = 1
		}
		return mem.WriteU8(addr, b)
	case int8:
		return mem.WriteU8(addr, uint8(x))
	case uint8:
		return mem.WriteU8(addr, x)
	case int16:
		return mem.WriteU16(addr, uint16(x))
	case uint16:
		return mem.WriteU16(addr, x)
	case int32:
		return mem.WriteU32(addr, uint32(x))
	case uint32:
		return mem.WriteU32(addr, x)
	case int64:
		return mem.WriteU64(addr, uint64(x))
	case uint64:
		return mem.WriteU64(addr, x)
	case float32:
		return mem.WriteU32(addr, math.Float32bits(x))
	case float64:
		return mem.WriteU64(addr, math.Float64bits(x))
	}
	return storeReflect(mem, addr, reflect.ValueOf(v))
}

func storeReflect(mem guestmem.Memory, addr uint32, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		var b uint8
		if rv.Bool() {
			b = 1
		}
		return mem.WriteU8(addr, b)
	case reflect.Int8:
		return mem.WriteU8(addr, uint8(rv.Int()))
	case reflect.Int16:
		return mem.WriteU16(addr, uint16(rv.Int()))
	case reflect.Int32:
		return mem.WriteU32(addr, uint32(rv.Int()))
	case reflect.Int64:
		return mem.WriteU64(addr, uint64(rv.Int()))
	case reflect.Uint8:
		return mem.WriteU8(addr, uint8(rv.Uint()))
	case reflect.Uint16:
		return mem.WriteU16(addr, uint16(rv.Uint()))
	case reflect.Uint32:
		return mem.WriteU32(addr, uint32(rv.Uint()))
	case reflect.Uint64:
		return mem.WriteU64(addr, rv.Uint())
	case reflect.Float32:
		return mem.WriteU32(addr, math.Float32bits(float32(rv.Float())))
	case reflect.Float64:
		return mem.WriteU64(addr, math.Float64bits(rv.Float()))
	default:
		return errors.Unsupported(errors.PhaseWrite, fmt.Sprintf("element kind %s", rv.Kind()))
	}
}
