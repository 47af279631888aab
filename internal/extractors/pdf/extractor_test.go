package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
)

func TestExtract_NotApplicableForText(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitFile,
		Name: "a.txt",
		Ext:  ".txt",
	})
	assert.ErrorIs(t, err, domain.ErrNotApplicable)
}

func TestExtract_CorruptFileIsAnError(t *testing.T) {
	// A file with a .pdf extension but garbage content must fail with
	// an ordinary error, never panic or hang.
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0644))

	e := New()
	_, err := e.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitFile,
		Name: "broken.pdf",
		Path: path,
		Ext:  ".pdf",
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotApplicable)
}

func TestExtract_MissingFileIsAnError(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), domain.Unit{
		Kind: domain.UnitFile,
		Name: "missing.pdf",
		Path: filepath.Join(t.TempDir(), "missing.pdf"),
		Ext:  ".pdf",
	})
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "pdf", New().Name())
}
