package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeMeili serves the task-based write API: every write enqueues a
// task and every task poll reports success.
func newFakeMeili(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var documents atomic.Int64

	mux := http.NewServeMux()
	accepted := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"taskUid": 1})
	}
	// Plain path patterns with method guards: the method-scoped patterns
	// this fake was written with need the Go 1.22 ServeMux.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/indexes", requireMethod(http.MethodPost, accepted))
	mux.HandleFunc("/indexes/seforim/settings", requireMethod(http.MethodPatch, accepted))
	mux.HandleFunc("/indexes/seforim/documents", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var docs []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&docs))
		documents.Add(int64(len(docs)))
		accepted(w, r)
	}))
	mux.HandleFunc("/tasks/", requireMethod(http.MethodGet, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "succeeded"})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &documents
}

func TestPublishCmd(t *testing.T) {
	srv, documents := newFakeMeili(t)

	logPath := filepath.Join(t.TempDir(), "meili-docs.jsonl")
	log := `{"id":"sefer_0","fileId":"sefer","safeFileId":"sefer","chunkId":0,"chunkStart":0,"pageNum":1,"text":"בראשית ברא"}` + "\n"
	require.NoError(t, os.WriteFile(logPath, []byte(log), 0644))

	out, err := execute(t, "publish",
		"--chunkLog", logPath,
		"--meiliHost", srv.URL,
		"--meiliIndex", "seforim")
	require.NoError(t, err)

	assert.Contains(t, out, "Published 1 documents in 1 batches.")
	assert.Equal(t, int64(1), documents.Load())
}

func TestPublishCmd_MissingLog(t *testing.T) {
	srv, _ := newFakeMeili(t)

	_, err := execute(t, "publish",
		"--chunkLog", filepath.Join(t.TempDir(), "missing.jsonl"),
		"--meiliHost", srv.URL,
		"--meiliIndex", "seforim")
	require.Error(t, err)
}

func TestIndexBuildCmd_PublishAfterBuild(t *testing.T) {
	srv, documents := newFakeMeili(t)
	booksDir := writeBooks(t, map[string]string{"shabbat.txt": "שבת שבת שבת"})
	outDir := t.TempDir()

	out, err := execute(t, "index", "build",
		"--booksPath", booksDir,
		"--outDir", outDir,
		"--meili",
		"--meiliHost", srv.URL,
		"--meiliIndex", "seforim")
	require.NoError(t, err)

	assert.Contains(t, out, "Published 1 documents")
	assert.Equal(t, int64(1), documents.Load())
}
