package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.Set("test_key", "test_value")

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_GetString(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.Set("meili.host", "http://localhost:7700")
	assert.Equal(t, "http://localhost:7700", store.GetString("meili.host"))

	// Non-existent key
	assert.Equal(t, "", store.GetString("nonexistent"))

	// Wrong type
	store.Set("int_key", 42)
	assert.Equal(t, "", store.GetString("int_key"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.Set("index.chunkSize", 2000)
	assert.Equal(t, 2000, store.GetInt("index.chunkSize"))

	assert.Equal(t, 0, store.GetInt("nonexistent"))

	store.Set("string_key", "not an int")
	assert.Equal(t, 0, store.GetInt("string_key"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.Set("index.skipPdf", true)
	assert.True(t, store.GetBool("index.skipPdf"))

	assert.False(t, store.GetBool("nonexistent"))
}

func TestConfigStore_SaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.Set("meili.host", "http://search.local:7700")
	store.Set("index.chunkSize", 1500)
	require.NoError(t, store.Save())

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "http://search.local:7700", reloaded.GetString("meili.host"))
	assert.Equal(t, 1500, reloaded.GetInt("index.chunkSize"))
}

func TestConfigStore_NestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := "[meili]\nhost = \"http://localhost:7700\"\nindex = \"chunks\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:7700", store.GetString("meili.host"))
	assert.Equal(t, "chunks", store.GetString("meili.index"))
}
