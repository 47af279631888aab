package domain

import (
	"encoding/base64"
	"fmt"
)

// UnitKind distinguishes the two corpus unit variants.
type UnitKind string

const (
	// UnitFile is a file on disk (.txt or .pdf).
	UnitFile UnitKind = "file"
	// UnitBook is a row of an Otzaria library database.
	UnitBook UnitKind = "book"
)

// Unit is one indexable source item with a stable identity.
// Exactly one of the variant fields is meaningful depending on Kind.
type Unit struct {
	// Kind selects the variant.
	Kind UnitKind

	// Name is the checkpoint identity: the file's base name for file
	// units, the document ID for book units. Append-only checkpoint
	// entries are keyed by Name.
	Name string

	// DocumentID is the stable document identity: file base name with
	// the extension stripped, or "otzaria-<bookId>".
	DocumentID string

	// Path is the absolute file path (file units only).
	Path string

	// Ext is the lowercased file extension including the dot (file units only).
	Ext string

	// BookID is the library row key (book units only).
	BookID int64

	// Title is the display title (book units only; includes the volume
	// suffix when the book has one).
	Title string
}

// SafeID returns the storage-safe form of the document identity:
// base64 with every non-alphanumeric byte replaced by an underscore,
// capped at 50 characters. Used as the chunk ID prefix.
func (u Unit) SafeID() string {
	return SafeDocumentID(u.DocumentID)
}

// SafeDocumentID transliterates an identity to the restricted
// alphanumeric alphabet used as a chunk ID prefix.
func SafeDocumentID(id string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(id))
	b := []byte(enc)
	for i, c := range b {
		if !isAlphanumeric(c) {
			b[i] = '_'
		}
	}
	if len(b) > 50 {
		b = b[:50]
	}
	return string(b)
}

func isAlphanumeric(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// BookDocumentID derives the document identity for a library row.
func BookDocumentID(bookID int64) string {
	return fmt.Sprintf("otzaria-%d", bookID)
}

// PageSpan delimits one page (PDF) or one source line (library row)
// of a unit's full extracted text. Offsets are rune offsets.
type PageSpan struct {
	// Ordinal is the 1-based page number, or line index + 1 for books.
	Ordinal int

	// StartOffset is the inclusive start of the span.
	StartOffset int

	// EndOffset is the exclusive end of the span.
	EndOffset int

	// Label is the human-readable reference for the span, when the
	// source provides one (the heRef column of a library line).
	Label string
}

// Extraction is the result of pulling plain text out of a unit.
type Extraction struct {
	// FullText is the unit's complete extracted text.
	FullText string

	// Pages maps rune-offset spans of FullText to page or line
	// ordinals. Nil when the extraction path provides no boundaries
	// (plain text files, bulk PDF extraction).
	Pages []PageSpan
}
