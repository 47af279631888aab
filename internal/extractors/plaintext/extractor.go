// Package plaintext extracts text from .txt corpus files.
package plaintext

import (
	"context"
	"fmt"
	"os"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads plain text files verbatim.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "plaintext"
}

// Extract returns the file's bytes decoded as UTF-8. Plain text units
// carry no page boundaries.
func (e *Extractor) Extract(_ context.Context, unit domain.Unit) (*domain.Extraction, error) {
	if unit.Ext != ".txt" {
		return nil, domain.ErrNotApplicable
	}

	raw, err := os.ReadFile(unit.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", unit.Name, err)
	}
	return &domain.Extraction{FullText: string(raw)}, nil
}
