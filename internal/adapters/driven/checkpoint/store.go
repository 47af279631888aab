// Package checkpoint persists run progress as a human-readable JSON
// file next to the other output artifacts.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.CheckpointStore = (*Store)(nil)

// Store is a file-based checkpoint store.
type Store struct {
	path string
}

// NewStore creates a checkpoint store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored checkpoint. A missing or unparseable file
// yields a fresh checkpoint rather than an error; an unreadable
// checkpoint only costs a rebuild of already-done units.
func (s *Store) Load(_ context.Context) (*domain.Checkpoint, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewCheckpoint(), nil
		}
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		logger.Warn("Could not parse checkpoint %s: %v; starting fresh", s.path, err)
		return domain.NewCheckpoint(), nil
	}
	if cp.ProcessedUnits == nil {
		cp.ProcessedUnits = []string{}
	}
	return &cp, nil
}

// Save persists the checkpoint. The write goes through a temp file and
// rename so a hard kill never leaves a torn checkpoint behind.
func (s *Store) Save(_ context.Context, checkpoint *domain.Checkpoint) error {
	if checkpoint == nil {
		return domain.ErrInvalidInput
	}

	raw, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing checkpoint: %w", err)
	}
	return nil
}

// Reset removes the stored checkpoint.
func (s *Store) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}
