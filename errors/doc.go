// Package errors provides structured error types for the multisock library.
//
// Errors are categorized by Phase (which group operation failed) and Kind (error category).
// OS failures additionally carry a Code classifying the underlying errno, the address
// involved, and the original cause so errors.Is(err, syscall.ECONNREFUSED) keeps working.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseListen, errors.KindOS).
//		Addr("[::]:8080").
//		Code(errors.CodeAddressInUse).
//		Cause(errno).
//		Detail("bind").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OS(errors.PhaseConnect, "connect", addr, code, cause)
//	err := errors.Resolution("example.com", "http", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
