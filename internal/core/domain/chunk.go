package domain

// Chunk is a fixed-size slice of a unit's full text, the unit of
// granularity exposed to full-text search. The JSON field names match
// the documents the search index serves; they are stable and must not
// change without reindexing.
type Chunk struct {
	// ID is "<safeFileId>_<chunkId>", unique and stable across runs.
	ID string `json:"id"`

	// DocumentID is the owning unit's document identity.
	DocumentID string `json:"fileId"`

	// SafeDocumentID is the storage-safe identity prefix.
	SafeDocumentID string `json:"safeFileId"`

	// Index is the 0-based window ordinal within the document.
	Index int `json:"chunkId"`

	// StartOffset is the window's rune offset into the full text.
	StartOffset int `json:"chunkStart"`

	// PageNum is the page (PDF) or line (book) ordinal containing
	// StartOffset. Defaults to 1 when no page map is available.
	PageNum int `json:"pageNum"`

	// Reference is the source's reference label for the containing
	// line, when one exists.
	Reference string `json:"heRef,omitempty"`

	// Excerpt is the first 200 runes of the window.
	Excerpt string `json:"text"`
}

// Postings accumulates token occurrences: normalized token → document
// identity → ascending rune offsets into that document's full text.
// Offsets are plain (not delta-encoded) while in memory; encoding
// happens at the storage boundary.
type Postings map[string]map[string][]int

// Merge folds the postings of a single document into the accumulator.
// Offset lists for the same (token, document) pair are concatenated as
// is; sorting happens when the store flushes.
func (p Postings) Merge(docID string, tokens map[string][]int) {
	for token, offsets := range tokens {
		byDoc, ok := p[token]
		if !ok {
			byDoc = make(map[string][]int)
			p[token] = byDoc
		}
		byDoc[docID] = append(byDoc[docID], offsets...)
	}
}

// DeltaEncode converts a sorted offset list to its delta form: first
// value absolute, subsequent values the difference from the previous.
func DeltaEncode(offsets []int) []int {
	if len(offsets) == 0 {
		return []int{}
	}
	out := make([]int, len(offsets))
	out[0] = offsets[0]
	for i := 1; i < len(offsets); i++ {
		out[i] = offsets[i] - offsets[i-1]
	}
	return out
}

// DeltaDecode reverses DeltaEncode.
func DeltaDecode(deltas []int) []int {
	if len(deltas) == 0 {
		return []int{}
	}
	out := make([]int, len(deltas))
	out[0] = deltas[0]
	for i := 1; i < len(deltas); i++ {
		out[i] = out[i-1] + deltas[i]
	}
	return out
}
