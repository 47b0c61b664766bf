package testwasm

import "bytes"

// writer provides buffered writing utilities for WASM binary encoding.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) write(data []byte) {
	w.buf.Write(data)
}

// writeU32 writes an unsigned LEB128 encoded uint32.
func (w *writer) writeU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// writeS32 writes a signed LEB128 encoded int32.
func (w *writer) writeS32(v int32) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
}

// writeName writes a UTF-8 encoded name (length-prefixed).
func (w *writer) writeName(s string) {
	w.writeU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// section writes a section header followed by its payload.
func (w *writer) section(id byte, payload []byte) {
	w.byte(id)
	w.writeU32(uint32(len(payload)))
	w.write(payload)
}
