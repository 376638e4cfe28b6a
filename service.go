package crane

import (
	"context"

	"github.com/wagiedev/crane-service-go/internal/service"
)

// Service supervises one chat-service worker and routes calls to it.
//
// A Service is restartable: after Stop, or after the worker crashes, Start
// spawns a fresh worker. The model binding does not survive a restart, so
// Initialize must be called again.
//
// Example usage:
//
//	svc := crane.NewService(crane.WithLogger(slog.Default()))
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Stop(ctx)
//
//	if err := svc.Initialize(ctx, modelPath); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := svc.Chat(ctx, &crane.ChatRequest{
//	    Messages: []crane.ChatMessage{{Role: crane.RoleUser, Content: "Hi"}},
//	})
type Service interface {
	// Start spawns the worker and waits for its warm-up delay.
	// It is a no-op when a worker is already attached.
	// Returns WorkerNotFoundError if the binary is not found and SpawnError
	// if it fails to launch or exits during warm-up.
	Start(ctx context.Context) error

	// Stop closes the worker's stdin, sends SIGTERM and escalates to
	// SIGKILL after the stop timeout. Cancelling ctx kills immediately.
	// It is a no-op when no worker is attached.
	Stop(ctx context.Context) error

	// IsRunning reports whether a worker is attached.
	IsRunning() bool

	// Initialize loads the model at modelPath. Repeated calls with the bound
	// path return immediately. When calls for different paths overlap, the
	// one sent to the worker last wins.
	Initialize(ctx context.Context, modelPath string) error

	// Chat asks the worker for one assistant reply.
	// Returns ErrNotRunning without a worker and ErrNotInitialized without
	// a loaded model. An empty Model is filled from the loaded model.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ListModels returns the model names the worker reports.
	ListModels(ctx context.Context) ([]string, error)

	// ModelPath returns the loaded model's path, or "" when none is loaded.
	ModelPath() string

	// Status returns a point-in-time view of the lifecycle and pending calls.
	Status() Status
}

// Compile-time check that *service.Service implements the Service interface.
var _ Service = (*service.Service)(nil)

// NewService creates a stopped service. Call Start to spawn the worker.
func NewService(opts ...Option) Service {
	return service.New(applyOptions(opts))
}
