// Package config provides configuration types for the crane worker supervisor.
package config

import "context"

// Transport is the write side of a worker connection as seen by the pending
// call registry.
//
// The default implementation is the subprocess Supervisor. Tests substitute
// an in-memory transport to drive the registry without a real process.
type Transport interface {
	// IsRunning reports whether a live worker is attached.
	IsRunning() bool

	// SendMessage writes one framed line to the worker's stdin.
	// The data must already end in a newline.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error
}
