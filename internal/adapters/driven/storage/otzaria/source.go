// Package otzaria provides the corpus source backed by an Otzaria
// library database (seforim.db). The database is opened read-only and
// only ever queried; the pipeline never mutates the library.
package otzaria

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.CorpusSource = (*Source)(nil)

// externalCategoryPatterns match library categories that mirror
// external scanned collections. Those books are served by the PDF
// corpus instead and indexing them twice would duplicate results.
var externalCategoryPatterns = []string{
	"%hebrewbooks%",
	"%hebrew books%",
	"%היברו-בוקס%",
	"%היברו בוקס%",
	"%היברובוקס%",
	"%אוצר החכמה%",
	"%אוצר חכמה%",
}

// Source reads book rows from an Otzaria library database.
type Source struct {
	db   *sql.DB
	path string
}

// New opens the library database at the given path read-only.
func New(path string) (*Source, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}
	return &Source{db: db, path: path}, nil
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "otzaria"
}

// Validate checks the library schema is queryable.
func (s *Source) Validate(ctx context.Context) error {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM book")
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("checking library database: %w", err)
	}
	return nil
}

// Units lists every book outside the external categories, ordered by
// title for a deterministic corpus order.
func (s *Source) Units(ctx context.Context) ([]domain.Unit, error) {
	conds := make([]string, len(externalCategoryPatterns))
	args := make([]any, len(externalCategoryPatterns))
	for i, p := range externalCategoryPatterns {
		conds[i] = "c.title LIKE ?"
		args[i] = p
	}

	query := fmt.Sprintf(`
		SELECT b.id, b.title, b.volume
		FROM book b
		WHERE b.categoryId NOT IN (SELECT c.id FROM category c WHERE %s)
		ORDER BY b.title
	`, strings.Join(conds, " OR "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		var (
			id     int64
			title  string
			volume sql.NullString
		)
		if err := rows.Scan(&id, &title, &volume); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}

		display := title
		if volume.Valid && volume.String != "" {
			display = title + " - " + volume.String
		}

		docID := domain.BookDocumentID(id)
		units = append(units, domain.Unit{
			Kind:       domain.UnitBook,
			Name:       docID,
			DocumentID: docID,
			BookID:     id,
			Title:      display,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}
	return units, nil
}

// Extract concatenates the book's lines in lineIndex order, one
// "content\n" segment per line, and records each line's rune-offset
// span with its reference label.
func (s *Source) Extract(ctx context.Context, unit domain.Unit) (*domain.Extraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lineIndex, content, heRef
		FROM line WHERE bookId = ? ORDER BY lineIndex
	`, unit.BookID)
	if err != nil {
		return nil, fmt.Errorf("querying lines for %s: %w", unit.DocumentID, err)
	}
	defer rows.Close()

	var b strings.Builder
	var pages []domain.PageSpan
	offset := 0

	for rows.Next() {
		var (
			lineIndex int
			content   string
			ref       sql.NullString
		)
		if err := rows.Scan(&lineIndex, &content, &ref); err != nil {
			return nil, fmt.Errorf("scanning line for %s: %w", unit.DocumentID, err)
		}

		lineText := content + "\n"
		runes := len([]rune(lineText))
		pages = append(pages, domain.PageSpan{
			Ordinal:     lineIndex + 1,
			StartOffset: offset,
			EndOffset:   offset + runes,
			Label:       ref.String,
		})
		offset += runes
		b.WriteString(lineText)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lines for %s: %w", unit.DocumentID, err)
	}

	return &domain.Extraction{FullText: b.String(), Pages: pages}, nil
}

// Close closes the library database.
func (s *Source) Close() error {
	return s.db.Close()
}
