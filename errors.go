package crane

import "github.com/wagiedev/crane-service-go/internal/errors"

// Re-export error types from internal package

// CraneError is the base interface for all service errors.
type CraneError = errors.CraneError

// WorkerNotFoundError indicates the chat-service binary was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// SpawnError indicates the worker process could not be started.
type SpawnError = errors.SpawnError

// ProcessTerminatedError indicates the worker exited while calls were pending.
type ProcessTerminatedError = errors.ProcessTerminatedError

// ProtocolError indicates the worker wrote a malformed line.
type ProtocolError = errors.ProtocolError

// WorkerError carries an error reply from the worker.
type WorkerError = errors.WorkerError

// ValidationError indicates request parameters failed schema validation.
type ValidationError = errors.ValidationError

// ResultDecodeError indicates a reply result did not have the expected shape.
type ResultDecodeError = errors.ResultDecodeError

// Re-export sentinel errors from internal package.
var (
	// ErrNotRunning indicates no worker is attached.
	ErrNotRunning = errors.ErrNotRunning

	// ErrNotInitialized indicates chat was called before a model was loaded.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrRequestTimeout indicates a call's deadline elapsed.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrStdinClosed indicates the worker's stdin was closed.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrLineTooLong indicates a worker output line exceeded the size cap.
	ErrLineTooLong = errors.ErrLineTooLong

	// ErrModelNotFound indicates no checkpoint matched a model reference.
	ErrModelNotFound = errors.ErrModelNotFound
)
