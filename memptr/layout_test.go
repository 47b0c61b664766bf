package memptr

import (
	"math"
	"testing"
)

type myByte uint8

func TestStride(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"bool", Stride[bool](), 1},
		{"int8", Stride[int8](), 1},
		{"uint8", Stride[uint8](), 1},
		{"int16", Stride[int16](), 2},
		{"uint16", Stride[uint16](), 2},
		{"int32", Stride[int32](), 4},
		{"uint32", Stride[uint32](), 4},
		{"int64", Stride[int64](), 8},
		{"uint64", Stride[uint64](), 8},
		{"float32", Stride[float32](), 4},
		{"float64", Stride[float64](), 8},
		{"named uint8", Stride[myByte](), 1},
		{"named float64", Stride[celsius](), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("stride = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestLoadStore_ExactTypes(t *testing.T) {
	mem := newMockMemory(256)

	if err := store(mem, 0, int8(-5)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[int8](mem, 0); err != nil || got != -5 {
		t.Errorf("int8 = %d, %v; want -5", got, err)
	}

	if err := store(mem, 8, uint16(0xABCD)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[uint16](mem, 8); err != nil || got != 0xABCD {
		t.Errorf("uint16 = %#x, %v; want 0xABCD", got, err)
	}

	if err := store(mem, 16, int32(-123456)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[int32](mem, 16); err != nil || got != -123456 {
		t.Errorf("int32 = %d, %v; want -123456", got, err)
	}

	if err := store(mem, 24, uint64(math.MaxUint64)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[uint64](mem, 24); err != nil || got != math.MaxUint64 {
		t.Errorf("uint64 = %d, %v; want MaxUint64", got, err)
	}

	if err := store(mem, 32, float32(1.5)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[float32](mem, 32); err != nil || got != 1.5 {
		t.Errorf("float32 = %v, %v; want 1.5", got, err)
	}

	if err := store(mem, 40, float64(-2.25)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[float64](mem, 40); err != nil || got != -2.25 {
		t.Errorf("float64 = %v, %v; want -2.25", got, err)
	}

	if err := store(mem, 48, true); err != nil {
		t.Fatal(err)
	}
	if b, err := mem.ReadU8(48); err != nil || b != 1 {
		t.Errorf("bool raw = %d, %v; want 1", b, err)
	}
	if got, err := load[bool](mem, 48); err != nil || got != true {
		t.Errorf("bool = %v, %v; want true", got, err)
	}
}

// Named element types skip the direct path and go through reflection.
func TestLoadStore_NamedTypes(t *testing.T) {
	mem := newMockMemory(64)

	if err := store(mem, 0, myByte(200)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[myByte](mem, 0); err != nil || got != 200 {
		t.Errorf("myByte = %d, %v; want 200", got, err)
	}

	if err := store(mem, 8, celsius(-40)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[celsius](mem, 8); err != nil || got != -40 {
		t.Errorf("celsius = %v, %v; want -40", got, err)
	}

	type flag bool
	if err := store(mem, 16, flag(true)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[flag](mem, 16); err != nil || got != true {
		t.Errorf("flag = %v, %v; want true", got, err)
	}

	type tick int16
	if err := store(mem, 24, tick(-32000)); err != nil {
		t.Fatal(err)
	}
	if got, err := load[tick](mem, 24); err != nil || got != -32000 {
		t.Errorf("tick = %d, %v; want -32000", got, err)
	}
}

// Any nonzero byte decodes as true.
func TestLoad_BoolNonZero(t *testing.T) {
	mem := newMockMemory(8)
	if err := mem.WriteU8(0, 0x7F); err != nil {
		t.Fatal(err)
	}
	got, err := load[bool](mem, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("nonzero byte should load as true")
	}
}

func TestLoadStore_OutOfRange(t *testing.T) {
	mem := newMockMemory(8)

	if _, err := load[uint64](mem, 4); err == nil {
		t.Error("expected out of range load error")
	}
	if err := store(mem, 4, uint64(1)); err == nil {
		t.Error("expected out of range store error")
	}
}
