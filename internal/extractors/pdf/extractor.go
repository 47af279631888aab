// Package pdf extracts text from PDF corpus files.
//
// Two paths are tried in order. The bulk path pulls the whole
// document's text in one call; it is cheap but yields no page
// boundaries, so chunks built from it report page 1. The page path
// iterates pages individually and records each page's offset span in
// the concatenated text. The distinction is deliberate and observable
// in the output; do not unify the paths.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads PDF files via a bulk pass with a per-page fallback.
type Extractor struct{}

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "pdf"
}

// Extract tries the bulk path first and falls back to per-page
// iteration. Corpora include malformed scans; the underlying parser
// can panic on them, so both paths run under recover and a broken file
// surfaces as an ordinary extraction error.
func (e *Extractor) Extract(_ context.Context, unit domain.Unit) (*domain.Extraction, error) {
	if unit.Ext != ".pdf" {
		return nil, domain.ErrNotApplicable
	}

	text, err := extractBulk(unit.Path)
	if err == nil && strings.TrimSpace(text) != "" {
		return &domain.Extraction{FullText: text}, nil
	}

	return extractByPage(unit.Path)
}

// extractBulk pulls the whole document's text in one call.
func extractBulk(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bulk extraction panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}
	return string(raw), nil
}

// extractByPage iterates pages 1..N, concatenating page texts with a
// newline between pages and recording each page's rune-offset span.
func extractByPage(path string) (extraction *domain.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			extraction = nil
			err = fmt.Errorf("page extraction panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	var pages []domain.PageSpan
	fonts := make(map[string]*pdf.Font)
	offset := 0

	for num := 1; num <= reader.NumPage(); num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page loses that page, not the book.
			continue
		}
		pageText += "\n"

		runes := len([]rune(pageText))
		pages = append(pages, domain.PageSpan{
			Ordinal:     num,
			StartOffset: offset,
			EndOffset:   offset + runes,
		})
		offset += runes
		b.WriteString(pageText)
	}

	return &domain.Extraction{FullText: b.String(), Pages: pages}, nil
}
