//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	crane "github.com/wagiedev/crane-service-go"
)

// modelPathEnv names the checkpoint directory used by these tests.
const modelPathEnv = "CRANE_MODEL_PATH"

// skipIfWorkerNotInstalled skips the test if the error indicates the worker
// binary is not found.
func skipIfWorkerNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*crane.WorkerNotFoundError](err); ok {
		t.Skip("chat-service worker not installed")
	}
}

// requireModelPath returns the model directory or skips the test.
func requireModelPath(t *testing.T) string {
	t.Helper()

	path := os.Getenv(modelPathEnv)
	if path == "" {
		t.Skipf("%s not set", modelPathEnv)
	}

	return path
}

// startService starts a real worker and stops it when the test ends.
func startService(t *testing.T, opts ...crane.Option) crane.Service {
	t.Helper()

	svc := crane.NewService(opts...)

	err := svc.Start(context.Background())
	if err != nil {
		skipIfWorkerNotInstalled(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		require.NoError(t, svc.Stop(ctx))
	})

	return svc
}

// TestChat_RealWorker loads a model and checks a reply comes back.
func TestChat_RealWorker(t *testing.T) {
	path := requireModelPath(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := startService(t)

	require.NoError(t, svc.Initialize(ctx, path))
	require.Equal(t, path, svc.ModelPath())

	maxTokens := 16

	resp, err := svc.Chat(ctx, &crane.ChatRequest{
		Messages:  []crane.ChatMessage{{Role: crane.RoleUser, Content: "Say hello."}},
		MaxTokens: &maxTokens,
	})
	require.NoError(t, err)
	require.Equal(t, crane.RoleAssistant, resp.Message.Role)
	require.NotEmpty(t, resp.Message.Content)
}

// TestListModels_RealWorker checks the worker reports its model list.
func TestListModels_RealWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := startService(t)

	names, err := svc.ListModels(ctx)
	require.NoError(t, err)
	require.NotNil(t, names)
}

// TestChat_BeforeInitialize checks the precondition is enforced locally.
func TestChat_BeforeInitialize(t *testing.T) {
	svc := startService(t)

	_, err := svc.Chat(context.Background(), &crane.ChatRequest{
		Messages: []crane.ChatMessage{{Role: crane.RoleUser, Content: "hi"}},
	})
	require.ErrorIs(t, err, crane.ErrNotInitialized)
}

// TestInitialize_MissingModel checks a bad path surfaces the worker's error.
func TestInitialize_MissingModel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := startService(t)

	err := svc.Initialize(ctx, "/nonexistent/model")

	workerErr, ok := errors.AsType[*crane.WorkerError](err)
	require.True(t, ok, "expected WorkerError, got %T: %v", err, err)
	require.NotEmpty(t, workerErr.Message)
	require.Empty(t, svc.ModelPath())
}
