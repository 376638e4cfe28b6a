package locator

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
)

func writeExecutable(t *testing.T, path string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode))
}

// isolatePath points $PATH at an empty directory so host binaries never leak
// into a test.
func isolatePath(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("PATH", dir)

	return dir
}

func TestLocate_ExplicitPath(t *testing.T) {
	isolatePath(t)

	worker := filepath.Join(t.TempDir(), "my-worker")
	writeExecutable(t, worker, 0o755)

	cmd, err := New(slog.Default(), &config.Options{
		WorkerPath: worker,
		WorkerArgs: []string{"--verbose"},
	}).Locate()
	require.NoError(t, err)
	require.Equal(t, worker, cmd.Path)
	require.Equal(t, []string{"--verbose"}, cmd.Args)
	require.Equal(t, "explicit", cmd.Source)
}

func TestLocate_ExplicitPathMissing(t *testing.T) {
	// A missing explicit path never falls through to other locations.
	pathDir := isolatePath(t)
	writeExecutable(t, filepath.Join(pathDir, BinaryName), 0o755)

	_, err := New(slog.Default(), &config.Options{WorkerPath: "/nonexistent/chat-service"}).Locate()

	notFound, ok := stderrors.AsType[*errors.WorkerNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"/nonexistent/chat-service"}, notFound.SearchedPaths)
}

func TestLocate_DevDistBinary(t *testing.T) {
	isolatePath(t)

	dist := t.TempDir()
	worker := filepath.Join(dist, "bin", BinaryName)
	writeExecutable(t, worker, 0o755)

	cmd, err := New(slog.Default(), &config.Options{
		Layout: config.Layout{DevMode: true, DistDir: dist, ProjectDir: t.TempDir()},
	}).Locate()
	require.NoError(t, err)
	require.Equal(t, worker, cmd.Path)
	require.Equal(t, "dist", cmd.Source)
}

func TestLocate_DevCargoFallback(t *testing.T) {
	pathDir := isolatePath(t)
	writeExecutable(t, filepath.Join(pathDir, "cargo"), 0o755)

	project := t.TempDir()

	cmd, err := New(slog.Default(), &config.Options{
		WorkerArgs: []string{"--threads", "4"},
		Layout: config.Layout{
			DevMode:    true,
			DistDir:    t.TempDir(),
			ProjectDir: project,
		},
	}).Locate()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(pathDir, "cargo"), cmd.Path)
	require.Equal(t, []string{"run", "--bin", BinaryName, "--release", "--", "--threads", "4"}, cmd.Args)
	require.Equal(t, project, cmd.Dir)
	require.Equal(t, "cargo", cmd.Source)
}

func TestLocate_DevWithoutCargoFallsThrough(t *testing.T) {
	pathDir := isolatePath(t)
	writeExecutable(t, filepath.Join(pathDir, BinaryName), 0o755)

	cmd, err := New(slog.Default(), &config.Options{
		Layout: config.Layout{DevMode: true, ProjectDir: t.TempDir()},
	}).Locate()
	require.NoError(t, err)
	require.Equal(t, "path", cmd.Source)
}

func TestLocate_ResourcesMadeExecutable(t *testing.T) {
	isolatePath(t)

	resources := t.TempDir()
	worker := filepath.Join(resources, "bin", BinaryName)
	writeExecutable(t, worker, 0o644)

	cmd, err := New(slog.Default(), &config.Options{
		Layout: config.Layout{ResourcesDir: resources},
	}).Locate()
	require.NoError(t, err)
	require.Equal(t, worker, cmd.Path)
	require.Equal(t, "resources", cmd.Source)

	info, err := os.Stat(worker)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestLocate_PathLookup(t *testing.T) {
	pathDir := isolatePath(t)
	writeExecutable(t, filepath.Join(pathDir, BinaryName), 0o755)

	cmd, err := New(slog.Default(), &config.Options{}).Locate()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(pathDir, BinaryName), cmd.Path)
}

func TestLocate_NotFoundListsSearchedPaths(t *testing.T) {
	isolatePath(t)

	dist := t.TempDir()
	project := t.TempDir()
	resources := t.TempDir()

	_, err := New(slog.Default(), &config.Options{
		Layout: config.Layout{
			DevMode:      true,
			DistDir:      dist,
			ProjectDir:   project,
			ResourcesDir: resources,
		},
	}).Locate()

	notFound, ok := stderrors.AsType[*errors.WorkerNotFoundError](err)
	require.True(t, ok, "expected WorkerNotFoundError, got %T", err)
	require.Equal(t, []string{
		filepath.Join(dist, "bin", BinaryName),
		"cargo run in " + project,
		filepath.Join(resources, "bin", BinaryName),
		"$PATH",
	}, notFound.SearchedPaths)
}

func TestBuildEnvironment(t *testing.T) {
	t.Setenv("CRANE_TEST_INHERITED", "yes")

	env := BuildEnvironment(&config.Options{
		Env: map[string]string{"RUST_LOG": "debug", "HF_HOME": "/cache"},
	})

	require.Contains(t, env, "CRANE_TEST_INHERITED=yes")
	require.Contains(t, env, "CRANE_SERVICE=1")

	// User variables follow the inherited ones in key order.
	require.Equal(t, []string{"HF_HOME=/cache", "RUST_LOG=debug"}, env[len(env)-2:])
}
