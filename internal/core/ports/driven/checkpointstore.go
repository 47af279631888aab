package driven

import (
	"context"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// CheckpointStore persists run progress. Save is called after every
// processed unit, so implementations must not tear the file on a hard
// kill mid-write.
type CheckpointStore interface {
	// Load returns the stored checkpoint, or a fresh one if none
	// exists or the stored file cannot be parsed.
	Load(ctx context.Context) (*domain.Checkpoint, error)

	// Save persists the checkpoint durably.
	Save(ctx context.Context, checkpoint *domain.Checkpoint) error

	// Reset removes the stored checkpoint.
	Reset(ctx context.Context) error

	// Path returns the checkpoint file path.
	Path() string
}
