// Package abi provides Canonical ABI layout calculations and scalar reads
// for WIT types in guest linear memory.
//
// This package computes size and alignment per the Component Model
// specification, so callers can address elements inside guest memory without
// hardcoding layout constants.
//
// # Layout Rules
//
// The Canonical ABI defines specific layout rules:
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records: fields laid out sequentially with padding for alignment
//   - Variants: discriminant followed by largest payload case
//   - Lists/Strings: (pointer, length) pair in memory, content elsewhere
//
// # Usage
//
//	l, err := abi.Of(witType)
//	// l.Size, l.Align available
//
//	v, err := abi.ReadValue(mem, addr, wit.U32{})
//	// v is a uint32
//
// ParseType maps the primitive type names used on the command line ("u8",
// "f64", "string", ...) to wit.Type values.
package abi
