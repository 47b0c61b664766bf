// Package errors provides structured error types for the guest memory library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/WIT type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrite, errors.KindTypeMismatch).
//		Path("buffer", "element").
//		GoType("string").
//		WitType("u32").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseWrite, path, "string", "u32")
//	err := errors.OutOfBounds(errors.PhaseRead, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
