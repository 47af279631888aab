package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driving"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// DefaultFlushEvery is the default number of processed units between
// postings store flushes.
const DefaultFlushEvery = 2

// minContentLength is the minimum full-text length, in runes, for a
// unit to contribute chunks. Shorter units are marked processed with
// an empty contribution so a resumed run does not revisit them.
const minContentLength = 10

// SessionOptions configures a pipeline run.
type SessionOptions struct {
	// ChunkSize is the window size in runes. Zero means
	// DefaultChunkSize.
	ChunkSize int

	// FlushEvery is the number of contributing units between postings
	// flushes. Zero means DefaultFlushEvery.
	FlushEvery int

	// MaxUnits truncates the corpus to its first N units. Zero means
	// no limit.
	MaxUnits int

	// LockPath, when set, is a lock file guarding the output
	// directory against concurrent runs.
	LockPath string
}

// PipelineSession drives one index build: it walks the corpus in
// order, skips units the checkpoint already covers, extracts and
// chunks the rest, and flushes accumulated postings periodically. The
// checkpoint is saved after every unit, so a killed run loses at most
// the postings accumulated since the last flush.
type PipelineSession struct {
	source      driven.CorpusSource
	sink        driven.ChunkSink
	store       driven.PostingsStore
	checkpoints driven.CheckpointStore
	opts        SessionOptions
	progress    driving.Progress
}

var _ driving.Indexer = (*PipelineSession)(nil)

// NewPipelineSession creates a session over the given ports. The
// progress callback may be nil.
func NewPipelineSession(
	source driven.CorpusSource,
	sink driven.ChunkSink,
	store driven.PostingsStore,
	checkpoints driven.CheckpointStore,
	opts SessionOptions,
	progress driving.Progress,
) *PipelineSession {
	return &PipelineSession{
		source:      source,
		sink:        sink,
		store:       store,
		checkpoints: checkpoints,
		opts:        opts,
		progress:    progress,
	}
}

// Run executes the pipeline. It returns domain.ErrAlreadyComplete when
// the checkpoint covers the whole corpus, and domain.ErrInterrupted,
// alongside a summary of the partial run, when the context is
// cancelled mid-corpus. Progress flushed and checkpointed before an
// interrupted return is durable.
func (s *PipelineSession) Run(ctx context.Context) (*driving.BuildSummary, error) {
	start := time.Now()
	runID := uuid.NewString()

	flushEvery := s.opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}

	if s.opts.LockPath != "" {
		fileLock := flock.New(s.opts.LockPath)
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring run lock %s: %w", s.opts.LockPath, err)
		}
		if !locked {
			return nil, fmt.Errorf("run lock %s held by another process: %w", s.opts.LockPath, domain.ErrLocked)
		}
		defer fileLock.Unlock() //nolint:errcheck
	}

	if err := s.source.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating %s source: %w", s.source.Type(), err)
	}

	units, err := s.source.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing corpus units: %w", err)
	}
	if s.opts.MaxUnits > 0 && len(units) > s.opts.MaxUnits {
		logger.Info("limiting run to first %d of %d units", s.opts.MaxUnits, len(units))
		units = units[:s.opts.MaxUnits]
	}

	checkpoint, err := s.checkpoints.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	if checkpoint.Completed {
		if checkpoint.Remaining(units) == 0 {
			return nil, domain.ErrAlreadyComplete
		}
		// New units appeared since the completed run; index just them.
		logger.Info("corpus grew since last completed run, resuming")
		checkpoint.Completed = false
	}

	summary := &driving.BuildSummary{
		RunID:          runID,
		UnitsTotal:     len(units),
		StorePath:      s.store.Path(),
		ChunkLogPath:   s.sink.Path(),
		CheckpointPath: s.checkpoints.Path(),
	}

	accumulated := make(domain.Postings)
	pending := 0
	interrupted := false

	// Persistence runs on a detached context: once a unit's work is
	// done, its chunks, checkpoint entry and postings must land even
	// when the interrupt has already cancelled ctx. Otherwise the
	// checkpoint would claim units whose postings were never flushed.
	persistCtx := context.WithoutCancel(ctx)

	s.report("run %s: %d units, %d already processed", runID, len(units), len(units)-checkpoint.Remaining(units))

	for i, unit := range units {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if checkpoint.Contains(unit.Name) {
			summary.UnitsSkipped++
			continue
		}

		s.step(i+1, len(units), unit.Name)

		extraction, err := s.source.Extract(ctx, unit)
		if err != nil {
			// An extract aborted by cancellation is not a bad unit;
			// leave it unmarked so the resumed run redoes it.
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				interrupted = true
				break
			}
			logger.Error("extracting %s: %v", unit.Name, err)
			summary.UnitsProcessed++
			summary.UnitsFailed++
			checkpoint.MarkProcessed(i, unit.Name)
			if err := s.checkpoints.Save(persistCtx, checkpoint); err != nil {
				return nil, fmt.Errorf("saving checkpoint: %w", err)
			}
			continue
		}

		if len([]rune(extraction.FullText)) < minContentLength {
			logger.Debug("skipping %s: content too short", unit.Name)
			summary.UnitsProcessed++
			checkpoint.MarkProcessed(i, unit.Name)
			if err := s.checkpoints.Save(persistCtx, checkpoint); err != nil {
				return nil, fmt.Errorf("saving checkpoint: %w", err)
			}
			continue
		}

		result := BuildChunks(unit, extraction.FullText, extraction.Pages, s.opts.ChunkSize)
		if err := s.sink.Append(persistCtx, result.Chunks); err != nil {
			return nil, fmt.Errorf("appending chunks for %s: %w", unit.Name, err)
		}
		accumulated.Merge(unit.DocumentID, result.TokenOffsets)

		summary.UnitsProcessed++
		summary.ChunkCount += len(result.Chunks)
		checkpoint.MarkProcessed(i, unit.Name)
		if err := s.checkpoints.Save(persistCtx, checkpoint); err != nil {
			return nil, fmt.Errorf("saving checkpoint: %w", err)
		}

		pending++
		if pending >= flushEvery {
			if err := s.flush(persistCtx, accumulated, summary); err != nil {
				return nil, err
			}
			accumulated = make(domain.Postings)
			pending = 0
		}
	}

	if len(accumulated) > 0 {
		if err := s.flush(persistCtx, accumulated, summary); err != nil {
			return nil, err
		}
	}

	if !interrupted && checkpoint.Remaining(units) == 0 {
		checkpoint.Completed = true
		if err := s.checkpoints.Save(persistCtx, checkpoint); err != nil {
			return nil, fmt.Errorf("saving checkpoint: %w", err)
		}
	}

	summary.Elapsed = time.Since(start)
	summary.Interrupted = interrupted

	if interrupted {
		s.report("run %s interrupted: %d/%d units processed", runID, summary.UnitsProcessed, summary.UnitsTotal)
		return summary, domain.ErrInterrupted
	}
	s.report("run %s done: %d units, %d chunks, %d flushes", runID, summary.UnitsProcessed, summary.ChunkCount, summary.Flushes)
	return summary, nil
}

func (s *PipelineSession) flush(ctx context.Context, postings domain.Postings, summary *driving.BuildSummary) error {
	s.report("flushing %d tokens", len(postings))
	if err := s.store.Flush(ctx, postings); err != nil {
		return fmt.Errorf("flushing postings: %w", err)
	}
	summary.Flushes++
	return nil
}

func (s *PipelineSession) report(format string, args ...any) {
	if s.progress != nil {
		s.progress(format, args...)
		return
	}
	logger.Info(format, args...)
}

func (s *PipelineSession) step(i, n int, name string) {
	if s.progress != nil {
		s.progress("[%d/%d] %s", i, n, name)
		return
	}
	logger.Step(i, n, name)
}
