package locator

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
)

// BinaryName is the worker executable's file name.
const BinaryName = "chat-service"

// ServiceEnvVar is set to "1" in every worker's environment.
const ServiceEnvVar = "CRANE_SERVICE"

// Command is a resolved worker invocation.
type Command struct {
	// Path is the executable to run.
	Path string

	// Args are the arguments after Path.
	Args []string

	// Dir is the working directory the command requires, or empty.
	Dir string

	// Source names the search step that produced the command.
	Source string
}

// Locator resolves how to launch the worker.
type Locator interface {
	// Locate returns the worker command or a *errors.WorkerNotFoundError
	// listing every place that was searched.
	Locate() (*Command, error)
}

// locator implements the Locator interface.
type locator struct {
	workerPath string
	workerArgs []string
	layout     config.Layout
	log        *slog.Logger
}

// Compile-time verification that locator implements Locator.
var _ Locator = (*locator)(nil)

// New creates a locator from supervisor options.
func New(log *slog.Logger, options *config.Options) Locator {
	return &locator{
		workerPath: options.WorkerPath,
		workerArgs: options.WorkerArgs,
		layout:     options.Layout,
		log:        log.With("component", "locator"),
	}
}

// Locate searches, in order: the explicit worker path; in development mode
// the locally built binary and then a cargo build of the project; the
// packaged resources directory; and finally $PATH.
func (l *locator) Locate() (*Command, error) {
	if l.workerPath != "" {
		l.log.Debug("Using explicit worker path", "worker_path", l.workerPath)

		if _, err := os.Stat(l.workerPath); err != nil {
			return nil, &errors.WorkerNotFoundError{SearchedPaths: []string{l.workerPath}}
		}

		return l.binary(l.workerPath, "explicit"), nil
	}

	searched := make([]string, 0, 4)

	if l.layout.DevMode {
		if l.layout.DistDir != "" {
			candidate := filepath.Join(l.layout.DistDir, "bin", BinaryName)
			searched = append(searched, candidate)

			if isFile(candidate) {
				l.log.Debug("Using pre-built development binary", "path", candidate)

				return l.binary(candidate, "dist"), nil
			}
		}

		if cmd, ok := l.cargo(&searched); ok {
			return cmd, nil
		}
	}

	if l.layout.ResourcesDir != "" {
		candidate := filepath.Join(l.layout.ResourcesDir, "bin", BinaryName)
		searched = append(searched, candidate)

		if isFile(candidate) {
			if err := os.Chmod(candidate, 0o755); err != nil { //nolint:gosec // worker must be executable
				l.log.Warn("Could not set executable permission", "path", candidate, "error", err)
			}

			l.log.Debug("Using packaged worker binary", "path", candidate)

			return l.binary(candidate, "resources"), nil
		}
	}

	searched = append(searched, "$PATH")

	if path, err := exec.LookPath(BinaryName); err == nil {
		l.log.Debug("Found worker in PATH", "path", path)

		return l.binary(path, "path"), nil
	}

	l.log.Warn("Worker binary not found in any searched paths", "searched_paths", searched)

	return nil, &errors.WorkerNotFoundError{SearchedPaths: searched}
}

// cargo returns a "cargo run" command when both cargo and the project
// directory are available.
func (l *locator) cargo(searched *[]string) (*Command, bool) {
	if l.layout.ProjectDir == "" {
		return nil, false
	}

	*searched = append(*searched, "cargo run in "+l.layout.ProjectDir)

	if info, err := os.Stat(l.layout.ProjectDir); err != nil || !info.IsDir() {
		l.log.Debug("Project directory not found", "project_dir", l.layout.ProjectDir)

		return nil, false
	}

	cargoPath, err := exec.LookPath("cargo")
	if err != nil {
		l.log.Debug("cargo not found in PATH")

		return nil, false
	}

	l.log.Debug("Pre-built binary not found, using cargo run", "project_dir", l.layout.ProjectDir)

	args := []string{"run", "--bin", BinaryName, "--release"}
	if len(l.workerArgs) > 0 {
		args = append(args, "--")
		args = append(args, l.workerArgs...)
	}

	return &Command{
		Path:   cargoPath,
		Args:   args,
		Dir:    l.layout.ProjectDir,
		Source: "cargo",
	}, true
}

func (l *locator) binary(path, source string) *Command {
	return &Command{
		Path:   path,
		Args:   slices.Clone(l.workerArgs),
		Source: source,
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// BuildEnvironment constructs the environment variables for the worker
// process: the current environment, the service marker, then user-provided
// variables in key order.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()
	env = append(env, ServiceEnvVar+"=1")

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
