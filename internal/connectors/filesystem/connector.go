// Package filesystem provides the corpus source that walks a books
// directory for .txt and .pdf files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.CorpusSource = (*Connector)(nil)

// Connector walks a directory tree for corpus files. Extraction is
// delegated to an ordered extractor chain; the first extractor that
// does not report domain.ErrNotApplicable decides the outcome.
type Connector struct {
	root       string
	extensions map[string]struct{}
	extractors []driven.Extractor
}

// Option configures the connector.
type Option func(*Connector)

// WithSkipPDF restricts the walk to plain text files.
func WithSkipPDF() Option {
	return func(c *Connector) {
		delete(c.extensions, ".pdf")
	}
}

// New creates a filesystem corpus source rooted at the given
// directory. Extractors are tried in the order given.
func New(root string, extractors []driven.Extractor, opts ...Option) *Connector {
	c := &Connector{
		root:       root,
		extensions: map[string]struct{}{".txt": {}, ".pdf": {}},
		extractors: extractors,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// Validate checks the books directory exists and is readable.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("checking books path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("books path %s: %w", c.root, domain.ErrInvalidInput)
	}
	return nil
}

// Units walks the tree and returns one unit per eligible file.
// filepath.WalkDir visits entries in lexical order, so the corpus
// order is deterministic across runs over an unchanged tree.
func (c *Connector) Units(ctx context.Context) ([]domain.Unit, error) {
	var units []domain.Unit

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			logger.Warn("Cannot access %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := c.extensions[ext]; !ok {
			return nil
		}

		name := d.Name()
		units = append(units, domain.Unit{
			Kind:       domain.UnitFile,
			Name:       name,
			DocumentID: strings.TrimSuffix(name, filepath.Ext(name)),
			Path:       path,
			Ext:        ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", c.root, err)
	}
	return units, nil
}

// Extract runs the extractor chain for the unit.
func (c *Connector) Extract(ctx context.Context, unit domain.Unit) (*domain.Extraction, error) {
	for _, e := range c.extractors {
		extraction, err := e.Extract(ctx, unit)
		if err == nil {
			return extraction, nil
		}
		if errors.Is(err, domain.ErrNotApplicable) {
			continue
		}
		return nil, fmt.Errorf("%s extractor: %w", e.Name(), err)
	}
	return nil, fmt.Errorf("no extractor for %s: %w", unit.Name, domain.ErrNotApplicable)
}

// Close releases resources. The filesystem source holds none.
func (c *Connector) Close() error {
	return nil
}
