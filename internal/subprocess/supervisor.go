package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
	"github.com/wagiedev/crane-service-go/internal/locator"
	"github.com/wagiedev/crane-service-go/internal/metrics"
)

// outputDrainDelay bounds how long output is drained after the worker
// exits. Pipes still open after that, for example held by a process the
// worker forked, are closed.
const outputDrainDelay = time.Second

// State is the supervisor's lifecycle state.
type State int

const (
	// StateStopped means no worker process is attached.
	StateStopped State = iota
	// StateRunning means a worker process is attached.
	StateRunning
	// StateStopping means SIGTERM was sent and the exit is pending.
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler receives worker output and exit notifications.
type Handler interface {
	// HandleResponse is called for each decoded reply, in output order.
	HandleResponse(resp *codec.Response)

	// HandleExit is called exactly once per process, after its output
	// has been drained.
	HandleExit(err *errors.ProcessTerminatedError)
}

// Supervisor owns at most one worker process at a time.
type Supervisor struct {
	log     *slog.Logger
	options *config.Options
	locator locator.Locator
	metrics metrics.Recorder
	handler Handler

	mu    sync.Mutex
	state State
	proc  *process
}

// process is one spawned worker.
type process struct {
	cmd        *exec.Cmd
	instanceID string
	stderr     *stderrTail

	writeMu     sync.Mutex // serialises stdin writes
	stdin       io.WriteCloser
	stdinClosed atomic.Bool

	killTimer *time.Timer // guarded by Supervisor.mu

	exitErr *errors.ProcessTerminatedError
	exited  chan struct{} // closed after the Handler saw the exit
}

// Compile-time verification that Supervisor implements config.Transport.
var _ config.Transport = (*Supervisor)(nil)

// NewSupervisor creates a supervisor that reports to handler.
func NewSupervisor(log *slog.Logger, options *config.Options, handler Handler) *Supervisor {
	return &Supervisor{
		log:     log.With("component", "supervisor"),
		options: options,
		locator: locator.New(log, options),
		metrics: options.EffectiveMetrics(),
		handler: handler,
	}
}

// Start spawns the worker unless one is already attached.
//
// After spawning, Start waits for the warm-up delay. A worker that exits
// during warm-up yields a *errors.SpawnError wrapping its
// *errors.ProcessTerminatedError. Cancelling ctx during warm-up kills the
// worker and returns ctx.Err().
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.proc != nil {
		s.mu.Unlock()
		s.log.Debug("Worker already running")

		return nil
	}

	proc, err := s.spawn()
	if err != nil {
		s.mu.Unlock()

		return err
	}

	s.proc = proc
	s.state = StateRunning
	s.mu.Unlock()

	delay := s.options.EffectiveWarmupDelay()
	if delay == 0 {
		return nil
	}

	warmup := time.NewTimer(delay)
	defer warmup.Stop()

	select {
	case <-warmup.C:
		return nil

	case <-proc.exited:
		s.log.Warn("Worker exited during warm-up", "instance_id", proc.instanceID, "exit_code", proc.exitErr.ExitCode)

		return &errors.SpawnError{Err: proc.exitErr}

	case <-ctx.Done():
		s.log.Debug("Start cancelled during warm-up, killing worker")
		proc.kill()
		<-proc.exited

		return ctx.Err()
	}
}

// spawn starts the worker process. s.mu must be held.
func (s *Supervisor) spawn() (*process, error) {
	resolved, err := s.locator.Locate()
	if err != nil {
		return nil, &errors.SpawnError{Err: err}
	}

	//nolint:gosec // G204: the worker path comes from the locator
	cmd := exec.Command(resolved.Path, resolved.Args...)
	cmd.Env = locator.BuildEnvironment(s.options)

	cmd.Dir = resolved.Dir
	if cmd.Dir == "" {
		cmd.Dir = s.options.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.log.Error("Failed to create stdin pipe", "error", err)

		return nil, &errors.SpawnError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	// Output goes through exec's copy goroutines so that Wait returns once
	// the worker exits, even when a process it forked still holds the pipes.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = outputDrainDelay

	if err := cmd.Start(); err != nil {
		s.log.Error("Failed to start worker process", "error", err)

		return nil, &errors.SpawnError{Err: fmt.Errorf("start process: %w", err)}
	}

	proc := &process{
		cmd:        cmd,
		instanceID: ulid.Make().String(),
		stderr:     newStderrTail(stderrTailLines),
		stdin:      stdin,
		exited:     make(chan struct{}),
	}

	s.metrics.WorkerStarted()
	s.log.Info("Worker process started",
		"pid", cmd.Process.Pid,
		"instance_id", proc.instanceID,
		"path", resolved.Path,
		"source", resolved.Source,
	)

	go s.wait(proc, outputPipe{stdoutR, stdoutW}, outputPipe{stderrR, stderrW})

	return proc, nil
}

// outputPipe connects one exec copy goroutine to its pump.
type outputPipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// wait reaps the worker, drains its output and runs the exit cleanup.
//
// Wait returns when the worker exits and its output reached EOF, or
// outputDrainDelay after the exit if something else keeps the pipes open.
// The pumps then see EOF once they consumed everything copied so far, so
// replies written before the exit are delivered before the exit report.
func (s *Supervisor) wait(proc *process, stdout, stderr outputPipe) {
	log := s.log.With("instance_id", proc.instanceID)

	var eg errgroup.Group

	eg.Go(func() error { return s.pumpStdout(stdout.r) })
	eg.Go(func() error { return s.pumpStderr(stderr.r, proc.stderr) })

	waitErr := proc.cmd.Wait()
	if stderrors.Is(waitErr, exec.ErrWaitDelay) {
		log.Warn("Worker exited but its output stayed open, closed it", "drain_delay", outputDrainDelay)

		waitErr = nil
	}

	_ = stdout.w.Close()
	_ = stderr.w.Close()

	if err := eg.Wait(); err != nil {
		log.Debug("Output pump stopped with error", "error", err)
	}

	exitErr := terminationError(proc, waitErr)

	s.mu.Lock()

	if proc.killTimer != nil {
		proc.killTimer.Stop()
	}

	if s.proc == proc {
		s.proc = nil
		s.state = StateStopped
	}

	s.mu.Unlock()

	proc.closeStdin()

	log.Info("Worker process exited", "exit_code", exitErr.ExitCode, "signal", exitErr.Signal)
	s.metrics.WorkerExited(exitErr.ExitCode)

	s.handler.HandleExit(exitErr)

	proc.exitErr = exitErr
	close(proc.exited)
}

func terminationError(proc *process, waitErr error) *errors.ProcessTerminatedError {
	exitErr := &errors.ProcessTerminatedError{
		InstanceID: proc.instanceID,
		ExitCode:   -1,
		Stderr:     proc.stderr.String(),
		Err:        waitErr,
	}

	state := proc.cmd.ProcessState
	if state == nil {
		return exitErr
	}

	exitErr.ExitCode = state.ExitCode()

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		exitErr.Signal = ws.Signal().String()
	}

	return exitErr
}

// Stop terminates the worker.
//
// Stop closes stdin, sends SIGTERM and arms one timer that sends SIGKILL
// when the stop timeout elapses. Cancelling ctx escalates to SIGKILL at
// once. Stop returns after the exit cleanup has run. It is a no-op when no
// worker is attached.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()

	proc := s.proc
	if proc == nil {
		s.mu.Unlock()

		return nil
	}

	if s.state != StateStopping {
		s.state = StateStopping

		timeout := s.options.EffectiveStopTimeout()
		s.log.Info("Stopping worker", "pid", proc.cmd.Process.Pid, "timeout", timeout)

		proc.closeStdin()

		if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			s.log.Warn("Failed to send SIGTERM", "error", err)
		}

		proc.killTimer = time.AfterFunc(timeout, func() {
			s.log.Warn("Worker did not exit after SIGTERM, sending SIGKILL", "timeout", timeout)
			proc.kill()
		})
	}

	s.mu.Unlock()

	select {
	case <-proc.exited:
		return nil
	case <-ctx.Done():
		s.log.Warn("Stop cancelled, sending SIGKILL", "error", ctx.Err())
		proc.kill()
		<-proc.exited

		return nil
	}
}

// SendMessage writes one line to the worker's stdin.
//
// A trailing newline is added when data lacks one. Writes are serialised.
func (s *Supervisor) SendMessage(ctx context.Context, data []byte) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return errors.ErrNotRunning
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	proc.writeMu.Lock()
	defer proc.writeMu.Unlock()

	if proc.stdinClosed.Load() {
		return errors.ErrStdinClosed
	}

	if _, err := proc.stdin.Write(data); err != nil {
		s.log.Error("Failed to write to worker stdin", "error", err)

		return fmt.Errorf("write to stdin: %w", err)
	}

	s.log.Debug("Message sent to worker", "data_len", len(data))

	return nil
}

// IsRunning reports whether a worker process is attached.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.proc != nil
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// PID returns the worker's process id, or 0 when none is attached.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return 0
	}

	return s.proc.cmd.Process.Pid
}

// InstanceID returns the id assigned to the current worker at spawn, or ""
// when none is attached.
func (s *Supervisor) InstanceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return ""
	}

	return s.proc.instanceID
}

// closeStdin closes the worker's stdin once. It does not take writeMu, so a
// write blocked on a full pipe fails instead of delaying shutdown.
func (p *process) closeStdin() {
	if p.stdinClosed.CompareAndSwap(false, true) {
		_ = p.stdin.Close()
	}
}

// kill sends SIGKILL. Killing an exited process returns os.ErrProcessDone,
// which is ignored.
func (p *process) kill() {
	_ = p.cmd.Process.Kill()
}
