package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

func fileUnit(name string) domain.Unit {
	return domain.Unit{
		Kind:       domain.UnitFile,
		Name:       name + ".txt",
		DocumentID: name,
		Ext:        ".txt",
	}
}

func TestBuildChunks_SingleChunkHebrew(t *testing.T) {
	// One short text file: a single chunk, three postings for the
	// repeated word at rune offsets 0, 4, 8.
	unit := fileUnit("shabbat")
	result := BuildChunks(unit, "שבת שבת שבת", nil, 2000)

	require.Len(t, result.Chunks, 1)
	chunk := result.Chunks[0]
	assert.Equal(t, unit.SafeID()+"_0", chunk.ID)
	assert.Equal(t, "shabbat", chunk.DocumentID)
	assert.Equal(t, 0, chunk.Index)
	assert.Equal(t, 0, chunk.StartOffset)
	assert.Equal(t, 1, chunk.PageNum)
	assert.Equal(t, "שבת שבת שבת", chunk.Excerpt)

	require.Contains(t, result.TokenOffsets, "שבת")
	assert.Equal(t, []int{0, 4, 8}, result.TokenOffsets["שבת"])
	assert.Equal(t, []int{0, 4, 4}, domain.DeltaEncode(result.TokenOffsets["שבת"]))
}

func TestBuildChunks_TilingCompleteness(t *testing.T) {
	// Chunk start offsets are exactly 0, C, 2C, ... with no overlap
	// and no gap, and the last chunk may be shorter.
	const chunkSize = 10
	text := strings.Repeat("א", 37)

	result := BuildChunks(fileUnit("t"), text, nil, chunkSize)

	require.Len(t, result.Chunks, 4)
	for i, chunk := range result.Chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, i*chunkSize, chunk.StartOffset)
	}
	assert.Len(t, []rune(result.Chunks[3].Excerpt), 7)
}

func TestBuildChunks_ExcerptCapped(t *testing.T) {
	text := strings.Repeat("ב", 500)

	result := BuildChunks(fileUnit("t"), text, nil, 400)

	require.Len(t, result.Chunks, 2)
	assert.Len(t, []rune(result.Chunks[0].Excerpt), 200)
	assert.Len(t, []rune(result.Chunks[1].Excerpt), 100)
}

func TestBuildChunks_PageResolution(t *testing.T) {
	// 30 runes over three pages of 10 runes each.
	text := strings.Repeat("שלום הארץ ", 3)
	pages := []domain.PageSpan{
		{Ordinal: 1, StartOffset: 0, EndOffset: 10},
		{Ordinal: 2, StartOffset: 10, EndOffset: 20},
		{Ordinal: 3, StartOffset: 20, EndOffset: 30},
	}

	result := BuildChunks(fileUnit("t"), text, pages, 10)

	require.Len(t, result.Chunks, 3)
	assert.Equal(t, 1, result.Chunks[0].PageNum)
	assert.Equal(t, 2, result.Chunks[1].PageNum)
	assert.Equal(t, 3, result.Chunks[2].PageNum)
}

func TestBuildChunks_ReferenceLabel(t *testing.T) {
	pages := []domain.PageSpan{
		{Ordinal: 1, StartOffset: 0, EndOffset: 50, Label: "בראשית א"},
	}

	result := BuildChunks(fileUnit("t"), "בראשית ברא אלהים", pages, 2000)

	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "בראשית א", result.Chunks[0].Reference)
}

func TestBuildChunks_NoPageMapDefaultsToOne(t *testing.T) {
	result := BuildChunks(fileUnit("t"), strings.Repeat("דג ", 2000), nil, 1000)

	require.NotEmpty(t, result.Chunks)
	for _, chunk := range result.Chunks {
		assert.Equal(t, 1, chunk.PageNum)
	}
}

func TestBuildChunks_OffsetsAreGlobal(t *testing.T) {
	// A token in the second window carries its offset into the full
	// text, not into the window.
	text := strings.Repeat("x", 10) + "שבת"

	result := BuildChunks(fileUnit("t"), text, nil, 10)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, []int{10}, result.TokenOffsets["שבת"])
}

func TestBuildChunks_EmptyText(t *testing.T) {
	result := BuildChunks(fileUnit("t"), "", nil, 2000)

	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.TokenOffsets)
}

func TestBuildChunks_StableAcrossRuns(t *testing.T) {
	unit := fileUnit("stable")
	text := strings.Repeat("תורה נביאים כתובים ", 300)

	first := BuildChunks(unit, text, nil, 512)
	second := BuildChunks(unit, text, nil, 512)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, first.TokenOffsets, second.TokenOffsets)
}
