// Package models discovers model checkpoints on disk.
//
// A model is a directory directly under the checkpoints root that holds a
// config.json and at least one weights file (*.safetensors or *.bin). The
// Scanner lists such directories, and Resolve turns a user-supplied name,
// id or path into the absolute path the worker's initialize call expects.
package models

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wagiedev/crane-service-go/internal/errors"
)

// IDPrefix is prepended to a model's directory name to form its ID.
const IDPrefix = "crane:"

// configFile must be present in every model directory.
const configFile = "config.json"

// Model holds metadata for one checkpoint directory.
type Model struct {
	// ID is IDPrefix plus the directory name (e.g. "crane:Qwen2.5-0.5B-Instruct").
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Path is the absolute directory path passed to initialize.
	Path string `json:"path"`
	// SizeBytes is the total size of every file under Path.
	SizeBytes int64 `json:"size_bytes"` //nolint:tagliatelle // matches worker snake_case
	// Size is SizeBytes formatted for display.
	Size string `json:"size"`
}

// DirName returns the model's directory name.
func (m Model) DirName() string {
	return strings.TrimPrefix(m.ID, IDPrefix)
}

// Scanner lists model directories under a checkpoints root.
type Scanner struct {
	root string
	log  *slog.Logger
}

// NewScanner creates a scanner for root.
func NewScanner(log *slog.Logger, root string) *Scanner {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return &Scanner{
		root: root,
		log:  log.With("component", "model_scanner"),
	}
}

// Root returns the absolute checkpoints root.
func (s *Scanner) Root() string {
	return s.root
}

// List returns every valid model directory sorted by display name.
// A missing root yields an empty list.
func (s *Scanner) List() ([]Model, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("Checkpoints directory not found", "root", s.root)

			return []Model{}, nil
		}

		return nil, fmt.Errorf("read checkpoints directory: %w", err)
	}

	models := make([]Model, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		if !isModelDir(dir) {
			continue
		}

		size := dirSize(dir)

		models = append(models, Model{
			ID:        IDPrefix + entry.Name(),
			Name:      DisplayName(entry.Name()),
			Path:      dir,
			SizeBytes: size,
			Size:      humanize.IBytes(uint64(size)), //nolint:gosec // sizes are non-negative
		})
	}

	slices.SortFunc(models, func(a, b Model) int {
		return strings.Compare(a.Name, b.Name)
	})

	s.log.Debug("Scanned checkpoints", "root", s.root, "count", len(models))

	return models, nil
}

// Find looks up a model by its ID or by its directory name.
func (s *Scanner) Find(idOrName string) (Model, error) {
	models, err := s.List()
	if err != nil {
		return Model{}, err
	}

	for _, m := range models {
		if m.ID == idOrName || m.DirName() == idOrName {
			return m, nil
		}
	}

	return Model{}, fmt.Errorf("%w: %s", errors.ErrModelNotFound, idOrName)
}

// Exists reports whether name is a valid model directory under the root.
func (s *Scanner) Exists(name string) bool {
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return false
	}

	return isModelDir(filepath.Join(s.root, name))
}

// Resolve maps a model ID, directory name or filesystem path to the
// absolute path of a valid model directory.
func (s *Scanner) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", errors.ErrModelNotFound)
	}

	name := strings.TrimPrefix(ref, IDPrefix)
	if s.Exists(name) {
		return filepath.Join(s.root, name), nil
	}

	if isModelDir(ref) {
		return filepath.Abs(ref)
	}

	return "", fmt.Errorf("%w: %s", errors.ErrModelNotFound, ref)
}

// isModelDir reports whether dir holds a config file and a weights file.
func isModelDir(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, configFile)); err != nil || info.IsDir() {
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	return slices.ContainsFunc(entries, func(e fs.DirEntry) bool {
		return !e.IsDir() && isWeightsFile(e.Name())
	})
}

func isWeightsFile(name string) bool {
	return strings.HasSuffix(name, ".safetensors") || strings.HasSuffix(name, ".bin")
}

// dirSize sums file sizes under dir. Unreadable entries are skipped.
func dirSize(dir string) int64 {
	var total int64

	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}

		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}

		return nil
	})

	return total
}

var paramCount = regexp.MustCompile(`\b\d+(?:\.\d+)?[BbMm]\b`)

// DisplayName turns a checkpoint directory name into a display name:
// dashes become spaces and parameter counts are parenthesised.
//
//	DisplayName("Qwen2.5-0.5B-Instruct") == "Qwen2.5 (0.5B) Instruct"
func DisplayName(dir string) string {
	name := strings.ReplaceAll(dir, "-", " ")
	name = paramCount.ReplaceAllString(name, "($0)")

	return strings.TrimSpace(name)
}
