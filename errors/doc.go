// Package errors provides the structured error types for the lua-machine
// library and its closed fault taxonomy.
//
// Errors are categorized by Phase (where the error occurred) and Kind (the
// fault category the callback bridge translates into a script-visible value).
// The taxonomy is closed on purpose: every host-side fault that crosses into
// the sandbox maps to one of a small, fixed set of result shapes, so scripts
// never observe raw host errors.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindBadArgument).
//		Detail("expected a string address").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoSuchMethod("getLabel")
//	err := errors.LimitReached()
//
// All errors implement the standard error interface and support errors.Is/As.
// Classify maps arbitrary host errors, including wrapped fs errors, into the
// taxonomy.
package errors
