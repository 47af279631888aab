package services

import (
	"strconv"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/hebrew"
)

// DefaultChunkSize is the default window size in runes.
const DefaultChunkSize = 2000

// excerptLength is the number of runes of each window kept as the
// searchable chunk text.
const excerptLength = 200

// BuildResult holds one unit's chunks and token postings.
type BuildResult struct {
	// Chunks tile the unit's full text, in window order.
	Chunks []domain.Chunk

	// TokenOffsets maps each normalised token to its ascending rune
	// offsets within the unit's full text.
	TokenOffsets map[string][]int
}

// BuildChunks slices the unit's full text into fixed-size
// non-overlapping rune windows and tokenizes each window. Offsets in
// the returned postings are relative to the full text, not the window.
// A nil or empty page map resolves every window to page 1.
func BuildChunks(unit domain.Unit, fullText string, pages []domain.PageSpan, chunkSize int) *BuildResult {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	safeID := unit.SafeID()
	runes := []rune(fullText)

	result := &BuildResult{
		Chunks:       make([]domain.Chunk, 0, len(runes)/chunkSize+1),
		TokenOffsets: make(map[string][]int),
	}

	for start, index := 0, 0; start < len(runes); start, index = start+chunkSize, index+1 {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])

		excerptEnd := start + excerptLength
		if excerptEnd > end {
			excerptEnd = end
		}

		pageNum, ref := resolvePage(pages, start)

		result.Chunks = append(result.Chunks, domain.Chunk{
			ID:             safeID + "_" + strconv.Itoa(index),
			DocumentID:     unit.DocumentID,
			SafeDocumentID: safeID,
			Index:          index,
			StartOffset:    start,
			PageNum:        pageNum,
			Reference:      ref,
			Excerpt:        string(runes[start:excerptEnd]),
		})

		for _, tok := range hebrew.Tokenize(window) {
			result.TokenOffsets[tok.Text] = append(result.TokenOffsets[tok.Text], start+tok.Index)
		}
	}

	return result
}

// resolvePage finds the page or line span containing the given offset.
// Falls back to page 1 when no span matches or no page map exists.
func resolvePage(pages []domain.PageSpan, offset int) (int, string) {
	for _, p := range pages {
		if offset >= p.StartOffset && offset < p.EndOffset {
			return p.Ordinal, p.Label
		}
	}
	return 1, ""
}
