package errors

import (
	"errors"
	"fmt"
)

// CraneError is the base interface for all service errors.
type CraneError interface {
	error
	IsCraneError() bool
}

// Compile-time verification that all error types implement CraneError.
var (
	_ CraneError = (*WorkerNotFoundError)(nil)
	_ CraneError = (*SpawnError)(nil)
	_ CraneError = (*ProcessTerminatedError)(nil)
	_ CraneError = (*ProtocolError)(nil)
	_ CraneError = (*WorkerError)(nil)
	_ CraneError = (*ValidationError)(nil)
	_ CraneError = (*ResultDecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotRunning indicates a call was issued while no worker is attached.
	ErrNotRunning = errors.New("worker not running")

	// ErrNotInitialized indicates chat was called before any successful initialize.
	ErrNotInitialized = errors.New("model not initialized: call Initialize first")

	// ErrRequestTimeout indicates a call's deadline elapsed before a response arrived.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrStdinClosed indicates the worker's input stream was closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrLineTooLong indicates a worker output line exceeded the maximum line size.
	ErrLineTooLong = errors.New("line exceeds maximum size")

	// ErrModelNotFound indicates no valid model directory matched a name or id.
	ErrModelNotFound = errors.New("model not found")
)

// WorkerNotFoundError indicates the worker binary could not be located.
type WorkerNotFoundError struct {
	SearchedPaths []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("chat-service worker not found in: %v", e.SearchedPaths)
}

// IsCraneError implements CraneError.
func (e *WorkerNotFoundError) IsCraneError() bool { return true }

// SpawnError indicates the worker could not be started: the executable is
// missing, a pipe could not be created, or the process failed to launch.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn worker: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsCraneError implements CraneError.
func (e *SpawnError) IsCraneError() bool { return true }

// ProcessTerminatedError indicates the worker exited while calls were pending.
//
// ExitCode is -1 when the process was terminated by a signal, in which case
// Signal holds the signal name.
type ProcessTerminatedError struct {
	InstanceID string
	ExitCode   int
	Signal     string
	Stderr     string
	Err        error
}

func (e *ProcessTerminatedError) Error() string {
	signal := e.Signal
	if signal == "" {
		signal = "none"
	}

	return fmt.Sprintf("worker process terminated (code: %d, signal: %s)", e.ExitCode, signal)
}

func (e *ProcessTerminatedError) Unwrap() error {
	return e.Err
}

// IsCraneError implements CraneError.
func (e *ProcessTerminatedError) IsCraneError() bool { return true }

// ProtocolError indicates a worker output line could not be decoded.
// These are absorbed at the codec boundary and never fail a call.
type ProtocolError struct {
	RawData string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("failed to decode worker output: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsCraneError implements CraneError.
func (e *ProtocolError) IsCraneError() bool { return true }

// WorkerError carries the error text of an {"error": ...} reply.
type WorkerError struct {
	Method  string
	Message string
}

func (e *WorkerError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("worker error: %s", e.Message)
	}

	return fmt.Sprintf("worker error (%s): %s", e.Method, e.Message)
}

// IsCraneError implements CraneError.
func (e *WorkerError) IsCraneError() bool { return true }

// ValidationError indicates request parameters failed schema validation.
// No wire traffic happens for a request that fails validation.
type ValidationError struct {
	Method string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s request: %v", e.Method, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsCraneError implements CraneError.
func (e *ValidationError) IsCraneError() bool { return true }

// ResultDecodeError indicates a successful reply whose result did not have
// the shape expected for its method.
type ResultDecodeError struct {
	Method string
	Err    error
}

func (e *ResultDecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s result: %v", e.Method, e.Err)
}

func (e *ResultDecodeError) Unwrap() error {
	return e.Err
}

// IsCraneError implements CraneError.
func (e *ResultDecodeError) IsCraneError() bool { return true }
