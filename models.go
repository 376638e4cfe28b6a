package crane

import (
	"github.com/wagiedev/crane-service-go/internal/models"
)

// Re-export model types from internal/models.

// Model holds metadata for one checkpoint directory.
type Model = models.Model

// ModelScanner lists checkpoint directories under a root.
type ModelScanner = models.Scanner

// NewModelScanner creates a scanner for the checkpoints directory root.
// Only WithLogger is consulted among opts.
func NewModelScanner(root string, opts ...Option) *ModelScanner {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	return models.NewScanner(log, root)
}

// ModelDisplayName turns a checkpoint directory name into a display name,
// e.g. "Qwen2.5-0.5B-Instruct" becomes "Qwen2.5 (0.5B) Instruct".
func ModelDisplayName(dir string) string {
	return models.DisplayName(dir)
}
