package driven

import (
	"context"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// PostingsStore is the durable compressed inverted index. Keys are
// normalised tokens; values are the per-document offset lists.
type PostingsStore interface {
	// Flush merges the accumulated postings into the store as one
	// atomic transaction. For each token the stored entry is read,
	// decoded, merged with the incoming offsets (concatenated, sorted
	// ascending, not deduplicated) and written back. A failed flush
	// leaves previously committed entries intact.
	Flush(ctx context.Context, postings domain.Postings) error

	// Lookup returns the decoded, delta-decoded offset lists for one
	// token, or domain.ErrNotFound if the token is absent.
	Lookup(ctx context.Context, token string) (map[string][]int, error)

	// WordCount returns the number of distinct stored tokens.
	WordCount(ctx context.Context) (int, error)

	// Path returns the backing file path.
	Path() string

	// Close closes the store.
	Close() error
}
