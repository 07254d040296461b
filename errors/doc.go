// Package errors provides structured error types for the pg-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, expected and
// actual type OIDs, and cause chain. Every kind maps to a stable SQLSTATE so
// the boundary package can hand the host its own structured error format.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		Path("arg[1]").
//		Oids(pgtypes.Int4Oid, actual).
//		Detail("cannot convert text to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseConvert, path, expected, actual)
//	err := errors.ArrayElement(errors.PhaseConvert, path, 2, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
