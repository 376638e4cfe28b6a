package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
	"github.com/wagiedev/crane-service-go/internal/protocol"
	"github.com/wagiedev/crane-service-go/internal/subprocess"
)

// Status is a point-in-time view of the service.
type Status struct {
	State      string                 `json:"state"`
	Running    bool                   `json:"running"`
	ModelPath  string                 `json:"model_path,omitempty"` //nolint:tagliatelle // snake_case status
	PID        int                    `json:"pid,omitempty"`
	InstanceID string                 `json:"instance_id,omitempty"` //nolint:tagliatelle // snake_case status
	Pending    []protocol.PendingCall `json:"pending,omitempty"`
}

// Service supervises one worker and routes calls to it.
type Service struct {
	log        *slog.Logger
	options    *config.Options
	supervisor *subprocess.Supervisor
	registry   *protocol.Registry

	mu        sync.Mutex
	modelPath string // model binding, cleared on every worker exit
	boundSeq  uint64 // registry id of the initialize call that set modelPath

	initGroup singleflight.Group
}

// Compile-time verification that Service implements subprocess.Handler.
var _ subprocess.Handler = (*Service)(nil)

// New creates a stopped service.
func New(options *config.Options) *Service {
	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Service{
		log:     log.With("component", "service"),
		options: options,
	}

	s.supervisor = subprocess.NewSupervisor(log, options, s)
	s.registry = protocol.NewRegistry(log, s.supervisor, protocol.RegistryConfig{
		Policy:   options.MatchPolicy,
		Timeouts: options.Timeouts,
		Metrics:  options.EffectiveMetrics(),
	})

	return s
}

// Start spawns the worker. It is a no-op when a worker is attached.
func (s *Service) Start(ctx context.Context) error {
	return s.supervisor.Start(ctx)
}

// Stop terminates the worker. It is a no-op when none is attached.
func (s *Service) Stop(ctx context.Context) error {
	return s.supervisor.Stop(ctx)
}

// IsRunning reports whether a worker is attached.
func (s *Service) IsRunning() bool {
	return s.supervisor.IsRunning()
}

// ModelPath returns the loaded model's path, or "" when none is bound.
func (s *Service) ModelPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.modelPath
}

// Initialize loads the model at modelPath.
//
// When modelPath is already bound no call is issued. Concurrent calls for
// the same path share one worker call, which is not cancelled when one of
// the callers gives up. When calls for different paths overlap, the binding
// follows the one written to the worker last. On failure the binding is
// left as it was.
func (s *Service) Initialize(ctx context.Context, modelPath string) error {
	if s.ModelPath() == modelPath && modelPath != "" {
		s.log.Debug("Model already initialized", "model_path", modelPath)

		return nil
	}

	params := codec.InitializeParams{ModelPath: modelPath}
	if err := codec.Validate(params); err != nil {
		return err
	}

	flightCtx := context.WithoutCancel(ctx)

	ch := s.initGroup.DoChan(modelPath, func() (any, error) {
		return nil, s.initialize(flightCtx, params)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.log.Warn("Initialize failed", "model_path", modelPath, "error", res.Err)

			return res.Err
		}

		s.log.Info("Model initialized", "model_path", modelPath, "shared", res.Shared)

		return nil
	case <-ctx.Done():
		s.log.Debug("Caller stopped waiting for initialize", "model_path", modelPath, "error", ctx.Err())

		return ctx.Err()
	}
}

// initialize issues one initialize call and records the binding.
func (s *Service) initialize(ctx context.Context, params codec.InitializeParams) error {
	instanceID := s.supervisor.InstanceID()

	_, seq, err := s.registry.IssueSeq(ctx, params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A worker that exited meanwhile took its binding with it.
	if s.supervisor.InstanceID() != instanceID {
		return nil
	}

	// The worker loads models in request order, so an older call finishing
	// late must not replace a newer binding.
	if seq < s.boundSeq {
		s.log.Debug("Ignoring superseded initialize", "model_path", params.ModelPath, "bound", s.modelPath)

		return nil
	}

	s.modelPath = params.ModelPath
	s.boundSeq = seq

	return nil
}

// Chat asks the worker for one assistant reply.
//
// It fails with errors.ErrNotRunning when no worker is attached and with
// errors.ErrNotInitialized when no model is bound. An empty req.Model is
// filled with the bound model's directory name.
func (s *Service) Chat(ctx context.Context, req *codec.ChatRequest) (*codec.ChatResponse, error) {
	if !s.IsRunning() {
		return nil, errors.ErrNotRunning
	}

	bound := s.ModelPath()
	if bound == "" {
		return nil, errors.ErrNotInitialized
	}

	params := *req
	if params.Model == "" {
		params.Model = filepath.Base(bound)
	}

	if err := codec.Validate(params); err != nil {
		return nil, err
	}

	raw, err := s.registry.Issue(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp codec.ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &errors.ResultDecodeError{Method: codec.MethodChat, Err: err}
	}

	return &resp, nil
}

// ListModels returns the model names the worker reports.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	raw, err := s.registry.Issue(ctx, codec.ListModelsParams{})
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, &errors.ResultDecodeError{Method: codec.MethodListModels, Err: err}
	}

	return names, nil
}

// Status returns the current lifecycle state, binding and pending calls.
func (s *Service) Status() Status {
	return Status{
		State:      s.supervisor.State().String(),
		Running:    s.supervisor.IsRunning(),
		ModelPath:  s.ModelPath(),
		PID:        s.supervisor.PID(),
		InstanceID: s.supervisor.InstanceID(),
		Pending:    s.registry.Pending(),
	}
}

// HandleResponse implements subprocess.Handler.
func (s *Service) HandleResponse(resp *codec.Response) {
	s.registry.HandleResponse(resp)
}

// HandleExit implements subprocess.Handler. It clears the model binding and
// fails every pending call with the exit report.
func (s *Service) HandleExit(err *errors.ProcessTerminatedError) {
	s.mu.Lock()
	previous := s.modelPath
	s.modelPath = ""
	s.mu.Unlock()

	s.log.Info("Worker exited, failing pending calls",
		"exit_code", err.ExitCode,
		"signal", err.Signal,
		"model_path", previous,
		"pending", s.registry.Len(),
	)

	s.registry.FailAll(err)
}
