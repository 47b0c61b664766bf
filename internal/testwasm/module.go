// Package testwasm synthesizes the guest module the tests run against.
//
// Build emits a minimal core module, byte by byte, exporting:
//
//	memory       - one linear memory (1 page min, 16 max)
//	cabi_realloc - bump allocator over a heap starting at offset 1024
//	free         - counts calls and freed bytes into globals
//	frees        - returns the free-call count
//	freed_bytes  - returns the total bytes handed to free
//	sum_u8       - sums len bytes at ptr, the guest-side checksum
//
// The bump allocator never reuses memory; free only counts. That is exactly
// what the tests need: the counters prove how many times the host released a
// span, and the checksum proves what the host wrote is what the guest sees.
// Addresses below 1024 are scratch space for tests that poke raw bytes.
package testwasm

// Section IDs
const (
	sectionType     byte = 1
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// Export kinds
const (
	kindFunc   byte = 0
	kindMemory byte = 2
)

// Value types and markers
const (
	valI32       byte = 0x7F
	funcTypeByte byte = 0x60
	blockEmpty   byte = 0x40
)

// Opcodes
const (
	opBlock     byte = 0x02
	opLoop      byte = 0x03
	opEnd       byte = 0x0B
	opBr        byte = 0x0C
	opBrIf      byte = 0x0D
	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Load8U byte = 0x2D
	opI32Const  byte = 0x41
	opI32GeU    byte = 0x4F
	opI32Add    byte = 0x6A
	opI32Sub    byte = 0x6B
	opI32And    byte = 0x71
)

// HeapBase is the guest offset where the bump allocator starts handing out
// spans. Everything below it is untouched scratch space.
const HeapBase uint32 = 1024

// Build encodes the test guest module.
func Build() []byte {
	w := &writer{}

	// Magic number and version
	w.write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})

	// Type section:
	//   t0: (i32,i32,i32,i32) -> i32   cabi_realloc
	//   t1: (i32,i32,i32) -> ()        free
	//   t2: () -> i32                  frees, freed_bytes
	//   t3: (i32,i32) -> i32           sum_u8
	sec := &writer{}
	sec.writeU32(4)
	writeFuncType(sec, 4, true)
	writeFuncType(sec, 3, false)
	writeFuncType(sec, 0, true)
	writeFuncType(sec, 2, true)
	w.section(sectionType, sec.bytes())

	// Function section: type index per function
	sec = &writer{}
	sec.writeU32(5)
	for _, typeIdx := range []uint32{0, 1, 2, 2, 3} {
		sec.writeU32(typeIdx)
	}
	w.section(sectionFunction, sec.bytes())

	// Memory section: 1 memory, min 1 page, max 16 pages
	sec = &writer{}
	sec.writeU32(1)
	sec.byte(0x01) // limits with max
	sec.writeU32(1)
	sec.writeU32(16)
	w.section(sectionMemory, sec.bytes())

	// Global section:
	//   g0: heap (mut i32) = HeapBase
	//   g1: frees (mut i32) = 0
	//   g2: freed_bytes (mut i32) = 0
	sec = &writer{}
	sec.writeU32(3)
	writeMutGlobal(sec, int32(HeapBase))
	writeMutGlobal(sec, 0)
	writeMutGlobal(sec, 0)
	w.section(sectionGlobal, sec.bytes())

	// Export section
	sec = &writer{}
	sec.writeU32(6)
	writeExport(sec, "memory", kindMemory, 0)
	writeExport(sec, "cabi_realloc", kindFunc, 0)
	writeExport(sec, "free", kindFunc, 1)
	writeExport(sec, "frees", kindFunc, 2)
	writeExport(sec, "freed_bytes", kindFunc, 3)
	writeExport(sec, "sum_u8", kindFunc, 4)
	w.section(sectionExport, sec.bytes())

	// Code section
	sec = &writer{}
	sec.writeU32(5)
	writeBody(sec, reallocBody())
	writeBody(sec, freeBody())
	writeBody(sec, globalGetBody(1))
	writeBody(sec, globalGetBody(2))
	writeBody(sec, sumU8Body())
	w.section(sectionCode, sec.bytes())

	return w.bytes()
}

// writeFuncType writes (i32 x nParams) -> (i32)? as a function type.
func writeFuncType(w *writer, nParams int, hasResult bool) {
	w.byte(funcTypeByte)
	w.writeU32(uint32(nParams))
	for i := 0; i < nParams; i++ {
		w.byte(valI32)
	}
	if hasResult {
		w.writeU32(1)
		w.byte(valI32)
	} else {
		w.writeU32(0)
	}
}

func writeMutGlobal(w *writer, init int32) {
	w.byte(valI32)
	w.byte(0x01) // mutable
	w.byte(opI32Const)
	w.writeS32(init)
	w.byte(opEnd)
}

func writeExport(w *writer, name string, kind byte, idx uint32) {
	w.writeName(name)
	w.byte(kind)
	w.writeU32(idx)
}

// writeBody writes a code entry: body size, then the body bytes.
func writeBody(w *writer, body []byte) {
	w.writeU32(uint32(len(body)))
	w.write(body)
}

// reallocBody implements
//
//	cabi_realloc(old_ptr, old_size, align, new_size) -> i32
//
// as a bump allocation: aligned = (heap + align - 1) & -align,
// heap = aligned + new_size, return aligned. old_ptr and old_size are
// ignored; the tests never grow an existing span.
func reallocBody() []byte {
	b := &writer{}
	// one extra i32 local: index 4, the aligned pointer
	b.writeU32(1)
	b.writeU32(1)
	b.byte(valI32)

	b.byte(opGlobalGet)
	b.writeU32(0)
	b.byte(opLocalGet)
	b.writeU32(2)
	b.byte(opI32Add)
	b.byte(opI32Const)
	b.writeS32(1)
	b.byte(opI32Sub)
	b.byte(opI32Const)
	b.writeS32(0)
	b.byte(opLocalGet)
	b.writeU32(2)
	b.byte(opI32Sub)
	b.byte(opI32And)
	b.byte(opLocalSet)
	b.writeU32(4)

	b.byte(opLocalGet)
	b.writeU32(4)
	b.byte(opLocalGet)
	b.writeU32(3)
	b.byte(opI32Add)
	b.byte(opGlobalSet)
	b.writeU32(0)

	b.byte(opLocalGet)
	b.writeU32(4)
	b.byte(opEnd)
	return b.bytes()
}

// freeBody implements free(ptr, size, align): frees++ and
// freed_bytes += size. Nothing is returned to the heap.
func freeBody() []byte {
	b := &writer{}
	b.writeU32(0) // no locals

	b.byte(opGlobalGet)
	b.writeU32(1)
	b.byte(opI32Const)
	b.writeS32(1)
	b.byte(opI32Add)
	b.byte(opGlobalSet)
	b.writeU32(1)

	b.byte(opGlobalGet)
	b.writeU32(2)
	b.byte(opLocalGet)
	b.writeU32(1)
	b.byte(opI32Add)
	b.byte(opGlobalSet)
	b.writeU32(2)

	b.byte(opEnd)
	return b.bytes()
}

// globalGetBody implements () -> i32 returning the given global.
func globalGetBody(globalIdx uint32) []byte {
	b := &writer{}
	b.writeU32(0) // no locals
	b.byte(opGlobalGet)
	b.writeU32(globalIdx)
	b.byte(opEnd)
	return b.bytes()
}

// sumU8Body implements sum_u8(ptr, len) -> i32, summing len bytes at ptr.
func sumU8Body() []byte {
	b := &writer{}
	// two extra i32 locals: index 2 the loop counter, index 3 the sum
	b.writeU32(1)
	b.writeU32(2)
	b.byte(valI32)

	b.byte(opBlock)
	b.byte(blockEmpty)
	b.byte(opLoop)
	b.byte(blockEmpty)

	// if i >= len, break out of the block
	b.byte(opLocalGet)
	b.writeU32(2)
	b.byte(opLocalGet)
	b.writeU32(1)
	b.byte(opI32GeU)
	b.byte(opBrIf)
	b.writeU32(1)

	// sum += mem[ptr+i]
	b.byte(opLocalGet)
	b.writeU32(3)
	b.byte(opLocalGet)
	b.writeU32(0)
	b.byte(opLocalGet)
	b.writeU32(2)
	b.byte(opI32Add)
	b.byte(opI32Load8U)
	b.writeU32(0) // alignment
	b.writeU32(0) // offset
	b.byte(opI32Add)
	b.byte(opLocalSet)
	b.writeU32(3)

	// i++
	b.byte(opLocalGet)
	b.writeU32(2)
	b.byte(opI32Const)
	b.writeS32(1)
	b.byte(opI32Add)
	b.byte(opLocalSet)
	b.writeU32(2)

	b.byte(opBr)
	b.writeU32(0)
	b.byte(opEnd) // loop
	b.byte(opEnd) // block

	b.byte(opLocalGet)
	b.writeU32(3)
	b.byte(opEnd)
	return b.bytes()
}
