package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/wagiedev/crane-service-go/internal/metrics"
)

// Default lifecycle settings.
const (
	// DefaultWarmupDelay is how long Start waits after spawning before it
	// reports the worker as started.
	DefaultWarmupDelay = time.Second

	// DefaultStopTimeout is how long Stop waits after SIGTERM before it
	// escalates to SIGKILL.
	DefaultStopTimeout = 5 * time.Second
)

// StopTimeoutEnvVar overrides the SIGTERM grace period when set to a Go
// duration string such as "10s".
const StopTimeoutEnvVar = "CRANE_STOP_TIMEOUT"

// Options configures the behavior of the worker supervisor.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// WorkerPath is the explicit path to the chat-service binary.
	// If empty, the binary is located using Layout and then $PATH.
	WorkerPath string

	// WorkerArgs are extra arguments passed to the worker binary.
	WorkerArgs []string

	// Layout controls the worker search order.
	Layout Layout

	// Cwd sets the working directory for the worker process.
	Cwd string

	// Env provides additional environment variables for the worker process.
	Env map[string]string

	// WarmupDelay overrides DefaultWarmupDelay. A negative value disables
	// the warm-up wait.
	WarmupDelay time.Duration

	// StopTimeout overrides DefaultStopTimeout.
	StopTimeout time.Duration

	// Timeouts holds the per-method call deadlines.
	Timeouts Timeouts

	// MatchPolicy selects how replies are paired with calls.
	// The zero value is MatchFIFO.
	MatchPolicy MatchPolicy

	// Stderr is a callback function for handling worker stderr lines.
	Stderr func(string)

	// Metrics receives call and process events.
	// If nil, events are discarded.
	Metrics metrics.Recorder

	// MaxLineSize caps a single worker output line in bytes.
	// If zero, codec.DefaultMaxLineSize applies.
	MaxLineSize int
}

// EffectiveWarmupDelay resolves the warm-up wait.
func (o *Options) EffectiveWarmupDelay() time.Duration {
	switch {
	case o.WarmupDelay < 0:
		return 0
	case o.WarmupDelay == 0:
		return DefaultWarmupDelay
	default:
		return o.WarmupDelay
	}
}

// EffectiveStopTimeout resolves the SIGTERM grace period. An explicit
// StopTimeout wins over StopTimeoutEnvVar.
func (o *Options) EffectiveStopTimeout() time.Duration {
	if o.StopTimeout > 0 {
		return o.StopTimeout
	}

	if v := os.Getenv(StopTimeoutEnvVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}

	return DefaultStopTimeout
}

// EffectiveMetrics returns the configured recorder or a no-op one.
func (o *Options) EffectiveMetrics() metrics.Recorder {
	if o.Metrics == nil {
		return metrics.NopRecorder{}
	}

	return o.Metrics
}
