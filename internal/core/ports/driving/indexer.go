package driving

import (
	"context"
	"time"
)

// BuildSummary reports the outcome of an index build run.
type BuildSummary struct {
	// RunID identifies this run in logs.
	RunID string

	// UnitsProcessed counts units that contributed to the index in
	// this run (skipped and previously processed units excluded).
	UnitsProcessed int

	// UnitsTotal is the corpus size after maxFiles limiting.
	UnitsTotal int

	// UnitsSkipped counts units resumed over from the checkpoint.
	UnitsSkipped int

	// UnitsFailed counts units whose extraction failed; they are
	// marked processed with an empty contribution.
	UnitsFailed int

	// ChunkCount is the number of chunk documents appended.
	ChunkCount int

	// Flushes is the number of postings store transactions performed.
	Flushes int

	// Elapsed is the wall-clock run duration.
	Elapsed time.Duration

	// Interrupted is set when the run stopped on an operator signal
	// after flushing and saving progress.
	Interrupted bool

	// StorePath, ChunkLogPath and CheckpointPath locate the artifacts.
	StorePath      string
	ChunkLogPath   string
	CheckpointPath string
}

// Indexer runs the checkpointed batch pipeline.
type Indexer interface {
	// Run processes every unprocessed corpus unit, flushing postings
	// periodically and checkpointing after each unit. Returns
	// domain.ErrAlreadyComplete when nothing remains to do.
	Run(ctx context.Context) (*BuildSummary, error)
}

// Progress receives human-readable progress lines during a run.
type Progress func(format string, args ...any)
