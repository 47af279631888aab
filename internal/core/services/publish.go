package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driving"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// publishBatchSize is the number of chunk documents per upload batch.
const publishBatchSize = 500

// publishConcurrency is the number of batches in flight at once.
const publishConcurrency = 3

// DefaultIndexSettings returns the index configuration tuned for
// Hebrew chunk documents. Geresh, gershayim and the curly quote
// variants are separators so abbreviated forms like מהרש"א split the
// way readers type them.
func DefaultIndexSettings() driven.IndexSettings {
	return driven.IndexSettings{
		SearchableAttributes: []string{"text", "fileId"},
		DisplayedAttributes:  []string{"id", "fileId", "safeFileId", "chunkId", "chunkStart", "pageNum", "text"},
		FilterableAttributes: []string{"fileId", "safeFileId"},
		SortableAttributes:   []string{"chunkStart", "pageNum"},
		SeparatorTokens:      []string{`"`, `'`, "״", "׳", "‘", "’", "“", "”"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		OneTypoMinLength:     4,
		TwoTyposMinLength:    8,
		MaxTotalHits:         10000,
	}
}

// PublishService uploads a chunk log to the search engine: it ensures
// the index exists, applies the default settings and streams the
// documents in concurrent batches.
type PublishService struct {
	engine   driven.SearchEngine
	reader   driven.ChunkReader
	settings driven.IndexSettings
}

var _ driving.Publisher = (*PublishService)(nil)

// NewPublishService creates a publisher with the default index
// settings.
func NewPublishService(engine driven.SearchEngine, reader driven.ChunkReader) *PublishService {
	return &PublishService{
		engine:   engine,
		reader:   reader,
		settings: DefaultIndexSettings(),
	}
}

// Publish implements driving.Publisher. Any failed batch aborts the
// remaining uploads and reports domain.ErrPublishRejected; already
// uploaded batches are harmless to re-send because chunk IDs are
// stable.
func (p *PublishService) Publish(ctx context.Context, chunkLogPath string) (*driving.PublishSummary, error) {
	chunks, err := p.reader.ReadAll(ctx, chunkLogPath)
	if err != nil {
		return nil, fmt.Errorf("reading chunk log %s: %w", chunkLogPath, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunk log %s holds no documents: %w", chunkLogPath, domain.ErrInvalidInput)
	}

	if err := p.engine.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensuring index: %w", err)
	}
	if err := p.engine.ApplySettings(ctx, p.settings); err != nil {
		return nil, fmt.Errorf("applying index settings: %w", err)
	}

	var sent atomic.Int64
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(publishConcurrency)

	batches := 0
	for start := 0; start < len(chunks); start += publishBatchSize {
		end := start + publishBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		batches++

		group.Go(func() error {
			if err := p.engine.AddDocuments(ctx, batch); err != nil {
				return fmt.Errorf("uploading batch of %d documents: %w", len(batch), err)
			}
			logger.Debug("uploaded %d/%d documents", sent.Add(int64(len(batch))), len(chunks))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublishRejected, err)
	}

	return &driving.PublishSummary{Documents: len(chunks), Batches: batches}, nil
}
