package otzaria

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

// setupLibrary creates a seforim.db fixture with the library schema.
func setupLibrary(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seforim.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE category (id INTEGER PRIMARY KEY, title TEXT, parentId INTEGER);
		CREATE TABLE book (id INTEGER PRIMARY KEY, title TEXT, volume TEXT, categoryId INTEGER, totalLines INTEGER);
		CREATE TABLE line (bookId INTEGER, lineIndex INTEGER, content TEXT, heRef TEXT);
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO category (id, title, parentId) VALUES
			(1, 'תנ"ך', NULL),
			(2, 'hebrewbooks סריקות', NULL);
		INSERT INTO book (id, title, volume, categoryId, totalLines) VALUES
			(10, 'בראשית', NULL, 1, 2),
			(11, 'אבן עזרא', 'חלק ב', 1, 1),
			(12, 'ספר חיצוני', NULL, 2, 1);
		INSERT INTO line (bookId, lineIndex, content, heRef) VALUES
			(10, 0, 'בראשית ברא אלהים', 'בראשית א, א'),
			(10, 1, 'והארץ היתה תהו', 'בראשית א, ב'),
			(11, 0, 'פירוש', NULL),
			(12, 0, 'לא יאונדקס', NULL);
	`)
	require.NoError(t, err)
	return path
}

func openSource(t *testing.T) *Source {
	t.Helper()

	s, err := New(setupLibrary(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestValidate(t *testing.T) {
	s := openSource(t)
	assert.NoError(t, s.Validate(context.Background()))
}

func TestUnits_ExcludesExternalCategories(t *testing.T) {
	s := openSource(t)

	units, err := s.Units(context.Background())
	require.NoError(t, err)

	require.Len(t, units, 2)
	for _, u := range units {
		assert.NotEqual(t, int64(12), u.BookID)
	}
}

func TestUnits_OrderedByTitle(t *testing.T) {
	s := openSource(t)

	units, err := s.Units(context.Background())
	require.NoError(t, err)

	require.Len(t, units, 2)
	// "אבן עזרא" sorts before "בראשית".
	assert.Equal(t, int64(11), units[0].BookID)
	assert.Equal(t, int64(10), units[1].BookID)
}

func TestUnits_IdentityAndTitle(t *testing.T) {
	s := openSource(t)

	units, err := s.Units(context.Background())
	require.NoError(t, err)

	byID := map[int64]domain.Unit{}
	for _, u := range units {
		byID[u.BookID] = u
	}

	assert.Equal(t, "otzaria-10", byID[10].DocumentID)
	assert.Equal(t, "otzaria-10", byID[10].Name)
	assert.Equal(t, "בראשית", byID[10].Title)
	assert.Equal(t, "אבן עזרא - חלק ב", byID[11].Title)
}

func TestExtract_ConcatenatesLines(t *testing.T) {
	s := openSource(t)

	extraction, err := s.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitBook, BookID: 10, DocumentID: "otzaria-10",
	})
	require.NoError(t, err)

	assert.Equal(t, "בראשית ברא אלהים\nוהארץ היתה תהו\n", extraction.FullText)

	require.Len(t, extraction.Pages, 2)
	first := extraction.Pages[0]
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, 0, first.StartOffset)
	assert.Equal(t, len([]rune("בראשית ברא אלהים\n")), first.EndOffset)
	assert.Equal(t, "בראשית א, א", first.Label)

	second := extraction.Pages[1]
	assert.Equal(t, 2, second.Ordinal)
	assert.Equal(t, first.EndOffset, second.StartOffset)
	assert.Equal(t, len([]rune(extraction.FullText)), second.EndOffset)
}

func TestExtract_SpansPartitionFullText(t *testing.T) {
	s := openSource(t)

	extraction, err := s.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitBook, BookID: 10, DocumentID: "otzaria-10",
	})
	require.NoError(t, err)

	offset := 0
	for _, span := range extraction.Pages {
		assert.Equal(t, offset, span.StartOffset)
		assert.Greater(t, span.EndOffset, span.StartOffset)
		offset = span.EndOffset
	}
	assert.Equal(t, len([]rune(extraction.FullText)), offset)
}

func TestExtract_BookWithoutLines(t *testing.T) {
	s := openSource(t)

	extraction, err := s.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitBook, BookID: 999, DocumentID: "otzaria-999",
	})
	require.NoError(t, err)
	assert.Empty(t, extraction.FullText)
	assert.Empty(t, extraction.Pages)
}

func TestType(t *testing.T) {
	s := openSource(t)
	assert.Equal(t, "otzaria", s.Type())
}
