package driven

import (
	"context"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// ChunkSink receives chunk documents as units are processed. Two
// strategies exist: an append-as-you-go JSONL log that keeps memory
// flat, and a buffered variant that writes one JSON array on Close.
type ChunkSink interface {
	// Append records a unit's chunks, in window order. For the
	// streaming sink the chunks are durable once Append returns.
	Append(ctx context.Context, chunks []domain.Chunk) error

	// Path returns the output file path.
	Path() string

	// Close finalises the output file.
	Close() error
}

// ChunkReader loads previously written chunk documents for publishing.
type ChunkReader interface {
	// ReadAll loads every chunk from the given log file. Both the
	// JSONL and the JSON-array formats are accepted.
	ReadAll(ctx context.Context, path string) ([]domain.Chunk, error)
}
