package driven

import (
	"context"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// CorpusSource enumerates and extracts corpus units. Implementations
// exist for a filesystem walk (.txt/.pdf files) and for an Otzaria
// library database (book rows).
type CorpusSource interface {
	// Type returns the source type identifier.
	Type() string

	// Validate checks the source is readable before a run starts.
	Validate(ctx context.Context) error

	// Units lists the corpus in a stable, deterministic order. The
	// order is the iteration order of the batch driver and must not
	// change between runs over an unchanged corpus.
	Units(ctx context.Context) ([]domain.Unit, error)

	// Extract produces the unit's full text and optional page map.
	// Extraction failures are reported as errors; the batch driver
	// treats them as an empty contribution, never as a fatal failure.
	Extract(ctx context.Context, unit domain.Unit) (*domain.Extraction, error)

	// Close releases resources.
	Close() error
}

// Extractor converts the raw bytes of a file unit into text. The
// filesystem source holds an ordered list of extractors and tries each
// in turn; domain.ErrNotApplicable means "try the next one", any other
// error means the extractor handled the unit and failed.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extract produces text from the unit at the given path.
	Extract(ctx context.Context, unit domain.Unit) (*domain.Extraction, error)
}
