package driven

import (
	"context"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// IndexSettings is the configuration applied to the search engine's
// index before documents are uploaded. The zero value is not useful;
// use the publisher's defaults.
type IndexSettings struct {
	SearchableAttributes []string
	DisplayedAttributes  []string
	FilterableAttributes []string
	SortableAttributes   []string

	// SeparatorTokens are treated as word boundaries by the engine's
	// tokenizer; the defaults include the Hebrew geresh and gershayim.
	SeparatorTokens []string

	// RankingRules in evaluation order.
	RankingRules []string

	// OneTypoMinLength and TwoTyposMinLength gate typo tolerance by
	// word length.
	OneTypoMinLength  int
	TwoTyposMinLength int

	// MaxTotalHits raises the engine's per-query result ceiling.
	MaxTotalHits int
}

// SearchEngine is the external full-text engine that serves the chunk
// documents. The pipeline only configures the index and uploads
// documents; ranking and query-time behaviour are the engine's concern.
type SearchEngine interface {
	// EnsureIndex creates the target index with the chunk primary key
	// if it does not already exist.
	EnsureIndex(ctx context.Context) error

	// ApplySettings applies the index configuration. Idempotent.
	ApplySettings(ctx context.Context, settings IndexSettings) error

	// AddDocuments uploads one batch of chunk documents and waits for
	// the engine to acknowledge it.
	AddDocuments(ctx context.Context, chunks []domain.Chunk) error
}
