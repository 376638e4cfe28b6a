package crane

import (
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithWorkerPath sets the explicit path to the chat-service binary.
// If not set, the binary is searched for using the layout and then $PATH.
func WithWorkerPath(path string) Option {
	return func(o *Options) {
		o.WorkerPath = path
	}
}

// WithWorkerArgs passes extra arguments to the worker binary.
func WithWorkerArgs(args ...string) Option {
	return func(o *Options) {
		o.WorkerArgs = args
	}
}

// WithCwd sets the working directory for the worker process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv provides additional environment variables for the worker process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// ===== Worker Location =====

// WithLayout sets the directories searched for the worker binary.
func WithLayout(layout Layout) Option {
	return func(o *Options) {
		o.Layout = layout
	}
}

// WithDevMode enables development-mode lookup rooted at projectDir:
// the dist directory first, then cargo run.
func WithDevMode(projectDir string) Option {
	return func(o *Options) {
		o.Layout.DevMode = true
		o.Layout.ProjectDir = projectDir
	}
}

// ===== Lifecycle =====

// WithWarmupDelay sets how long Start waits after spawning the worker.
// A negative value disables the wait.
func WithWarmupDelay(d time.Duration) Option {
	return func(o *Options) {
		o.WarmupDelay = d
	}
}

// WithStopTimeout sets how long Stop waits after SIGTERM before SIGKILL.
func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.StopTimeout = d
	}
}

// ===== Calls =====

// WithTimeouts sets per-method call deadlines. Zero fields keep defaults.
func WithTimeouts(timeouts Timeouts) Option {
	return func(o *Options) {
		o.Timeouts = timeouts
	}
}

// WithMatchPolicy selects how replies are paired with calls.
func WithMatchPolicy(policy MatchPolicy) Option {
	return func(o *Options) {
		o.MatchPolicy = policy
	}
}

// WithMaxLineSize caps a single worker output line in bytes.
func WithMaxLineSize(size int) Option {
	return func(o *Options) {
		o.MaxLineSize = size
	}
}

// ===== Observability =====

// WithStderr sets a callback that receives each worker stderr line.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithMetrics sets the recorder that receives call and process events.
// Use NewPrometheusMetrics for a Prometheus-backed recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Options) {
		o.Metrics = recorder
	}
}
