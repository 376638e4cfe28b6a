package crane

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	internalerrors "github.com/wagiedev/crane-service-go/internal/errors"
)

// TestSentinelErrors_AreReExported tests that wrapped internal sentinels
// match the public ones.
func TestSentinelErrors_AreReExported(t *testing.T) {
	tests := []struct {
		public   error
		internal error
	}{
		{ErrNotRunning, internalerrors.ErrNotRunning},
		{ErrNotInitialized, internalerrors.ErrNotInitialized},
		{ErrRequestTimeout, internalerrors.ErrRequestTimeout},
		{ErrStdinClosed, internalerrors.ErrStdinClosed},
		{ErrLineTooLong, internalerrors.ErrLineTooLong},
		{ErrModelNotFound, internalerrors.ErrModelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.public.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("call failed: %w", tt.internal)
			require.ErrorIs(t, wrapped, tt.public)
		})
	}
}

// TestProcessTerminatedError_AsType tests extracting the exit report through
// the public alias.
func TestProcessTerminatedError_AsType(t *testing.T) {
	var err error = fmt.Errorf("chat: %w", &internalerrors.ProcessTerminatedError{
		ExitCode: -1,
		Signal:   "killed",
		Stderr:   "panicked at src/main.rs",
	})

	exit, ok := errors.AsType[*ProcessTerminatedError](err)
	require.True(t, ok)
	require.Equal(t, -1, exit.ExitCode)
	require.Equal(t, "killed", exit.Signal)
	require.Contains(t, err.Error(), "signal: killed")
}

// TestErrorTypes_ImplementCraneError tests the public error interface.
func TestErrorTypes_ImplementCraneError(t *testing.T) {
	errs := []error{
		&WorkerNotFoundError{SearchedPaths: []string{"$PATH"}},
		&SpawnError{Err: errors.New("fork")},
		&ProcessTerminatedError{ExitCode: 1},
		&ProtocolError{RawData: "oops", Err: errors.New("bad")},
		&WorkerError{Method: "chat", Message: "Model not initialized"},
		&ValidationError{Method: "chat", Err: errors.New("messages")},
		&ResultDecodeError{Method: "list_models", Err: errors.New("shape")},
	}

	for _, err := range errs {
		craneErr, ok := errors.AsType[CraneError](err)
		require.True(t, ok, "%T", err)
		require.True(t, craneErr.IsCraneError())
	}
}
