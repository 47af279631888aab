package driving

import "context"

// PublishSummary reports the outcome of a publish.
type PublishSummary struct {
	// Documents is the number of chunk documents uploaded.
	Documents int

	// Batches is the number of upload batches sent.
	Batches int
}

// Publisher uploads an existing chunk log to the search engine.
type Publisher interface {
	// Publish configures the target index and uploads every chunk in
	// batches. A single failed batch rejects the whole publish; the
	// operation is idempotent because chunk IDs are stable.
	Publish(ctx context.Context, chunkLogPath string) (*PublishSummary, error)
}
