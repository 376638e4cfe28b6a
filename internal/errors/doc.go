// Package errors defines error types for the crane service.
//
// This package provides structured error types for the failure modes of the
// worker boundary: spawning, protocol decoding, timeouts, and process
// termination. All error types support error unwrapping and can be checked
// using errors.Is, errors.As, and errors.AsType.
package errors
