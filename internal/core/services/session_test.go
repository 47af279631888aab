package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/checkpoint"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/sink"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/storage/sqlite"
	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// fakeSource serves an in-memory corpus for session tests.
type fakeSource struct {
	units     []domain.Unit
	texts     map[string]string
	fails     map[string]error
	onExtract func(name string)
}

var _ driven.CorpusSource = (*fakeSource)(nil)

func (f *fakeSource) Type() string                        { return "fake" }
func (f *fakeSource) Validate(_ context.Context) error    { return nil }
func (f *fakeSource) Close() error                        { return nil }
func (f *fakeSource) Units(_ context.Context) ([]domain.Unit, error) {
	return f.units, nil
}

func (f *fakeSource) Extract(_ context.Context, unit domain.Unit) (*domain.Extraction, error) {
	if f.onExtract != nil {
		f.onExtract(unit.Name)
	}
	if err, ok := f.fails[unit.Name]; ok {
		return nil, err
	}
	return &domain.Extraction{FullText: f.texts[unit.Name]}, nil
}

// recordingStore captures flush batches without persisting them.
type recordingStore struct {
	flushes []domain.Postings
}

var _ driven.PostingsStore = (*recordingStore)(nil)

func (r *recordingStore) Flush(_ context.Context, postings domain.Postings) error {
	copied := make(domain.Postings, len(postings))
	for token, byDoc := range postings {
		copied[token] = byDoc
	}
	r.flushes = append(r.flushes, copied)
	return nil
}

func (r *recordingStore) Lookup(_ context.Context, _ string) (map[string][]int, error) {
	return nil, domain.ErrNotFound
}
func (r *recordingStore) WordCount(_ context.Context) (int, error) { return 0, nil }
func (r *recordingStore) Path() string                             { return "memory" }
func (r *recordingStore) Close() error                             { return nil }

// fileUnit is declared in builder_test.go.

type sessionEnv struct {
	dir         string
	store       *sqlite.Store
	sink        *sink.JSONLSink
	checkpoints *checkpoint.Store
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.NewStore(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chunkSink, err := sink.NewJSONLSink(filepath.Join(dir, "chunks.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { chunkSink.Close() })

	return &sessionEnv{
		dir:         dir,
		store:       store,
		sink:        chunkSink,
		checkpoints: checkpoint.NewStore(filepath.Join(dir, "checkpoint.json")),
	}
}

func (e *sessionEnv) readChunks(t *testing.T) []domain.Chunk {
	t.Helper()
	chunks, err := sink.NewFileReader().ReadAll(context.Background(), e.sink.Path())
	require.NoError(t, err)
	return chunks
}

func TestPipelineSessionRun(t *testing.T) {
	env := newSessionEnv(t)
	source := &fakeSource{
		units: []domain.Unit{fileUnit("bereshit"), fileUnit("shemot")},
		texts: map[string]string{
			"bereshit.txt": "בראשית ברא אלהים את השמים ואת הארץ",
			"shemot.txt":   "ואלה שמות בני ישראל הבאים מצרימה",
		},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UnitsTotal)
	assert.Equal(t, 2, summary.UnitsProcessed)
	assert.Equal(t, 0, summary.UnitsSkipped)
	assert.Equal(t, 0, summary.UnitsFailed)
	assert.Equal(t, 2, summary.ChunkCount)
	assert.Equal(t, 1, summary.Flushes)
	assert.NotEmpty(t, summary.RunID)

	chunks := env.readChunks(t)
	require.Len(t, chunks, 2)
	assert.Equal(t, "bereshit", chunks[0].DocumentID)
	assert.Equal(t, "shemot", chunks[1].DocumentID)

	offsets, err := env.store.Lookup(context.Background(), "בראשית")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"bereshit": {0}}, offsets)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Completed)
	assert.Equal(t, []string{"bereshit.txt", "shemot.txt"}, cp.ProcessedUnits)
}

func TestPipelineSessionExtractionFailure(t *testing.T) {
	env := newSessionEnv(t)
	source := &fakeSource{
		units: []domain.Unit{fileUnit("broken"), fileUnit("shemot")},
		texts: map[string]string{
			"shemot.txt": "ואלה שמות בני ישראל הבאים מצרימה",
		},
		fails: map[string]error{
			"broken.txt": fmt.Errorf("unreadable stream"),
		},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UnitsProcessed)
	assert.Equal(t, 1, summary.UnitsFailed)
	assert.Equal(t, 1, summary.ChunkCount)

	// The failing unit contributes nothing but is not revisited.
	chunks := env.readChunks(t)
	require.Len(t, chunks, 1)
	assert.Equal(t, "shemot", chunks[0].DocumentID)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Contains("broken.txt"))
	assert.True(t, cp.Completed)
}

func TestPipelineSessionShortContent(t *testing.T) {
	env := newSessionEnv(t)
	source := &fakeSource{
		units: []domain.Unit{fileUnit("stub")},
		texts: map[string]string{"stub.txt": "קצר"},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UnitsProcessed)
	assert.Equal(t, 0, summary.ChunkCount)
	assert.Equal(t, 0, summary.Flushes)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Contains("stub.txt"))
}

func TestPipelineSessionMaxUnits(t *testing.T) {
	env := newSessionEnv(t)
	source := &fakeSource{
		units: []domain.Unit{fileUnit("alef"), fileUnit("bet"), fileUnit("gimel")},
		texts: map[string]string{
			"alef.txt":  "ספר ראשון בסדרת הבדיקות",
			"bet.txt":   "ספר שני בסדרת הבדיקות",
			"gimel.txt": "ספר שלישי בסדרת הבדיקות",
		},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{MaxUnits: 1}, nil)
	summary, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UnitsTotal)
	assert.Equal(t, 1, summary.UnitsProcessed)
	require.Len(t, env.readChunks(t), 1)

	// A follow-up run without the limit picks up the rest, without
	// duplicating the first unit's chunks.
	session = NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err = session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UnitsProcessed)
	assert.Equal(t, 1, summary.UnitsSkipped)

	chunks := env.readChunks(t)
	require.Len(t, chunks, 3)
	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestPipelineSessionFlushCadence(t *testing.T) {
	env := newSessionEnv(t)
	store := &recordingStore{}

	units := make([]domain.Unit, 0, 5)
	texts := make(map[string]string)
	for i, name := range []string{"alef", "bet", "gimel", "dalet", "he"} {
		units = append(units, fileUnit(name))
		texts[name+".txt"] = fmt.Sprintf("תוכן מספיק ארוך לספר מספר %d", i+1)
	}
	source := &fakeSource{units: units, texts: texts}

	session := NewPipelineSession(source, env.sink, store, env.checkpoints, SessionOptions{FlushEvery: 2}, nil)
	summary, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Flushes)
	require.Len(t, store.flushes, 3)

	// Flushes carry two, two, then the remaining one unit.
	for i, want := range []int{2, 2, 1} {
		docs := make(map[string]bool)
		for _, byDoc := range store.flushes[i] {
			for docID := range byDoc {
				docs[docID] = true
			}
		}
		assert.Len(t, docs, want, "flush %d", i)
	}
}

func TestPipelineSessionResume(t *testing.T) {
	env := newSessionEnv(t)
	source := &fakeSource{
		units: []domain.Unit{fileUnit("alef"), fileUnit("bet")},
		texts: map[string]string{
			"alef.txt": "ספר ראשון בסדרת הבדיקות",
			"bet.txt":  "ספר שני בסדרת הבדיקות",
		},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	_, err := session.Run(context.Background())
	require.NoError(t, err)

	// Unchanged corpus: nothing to do.
	_, err = session.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrAlreadyComplete)

	// A new unit flips the completed run back to incomplete and is
	// the only unit processed.
	source.units = append(source.units, fileUnit("gimel"))
	source.texts["gimel.txt"] = "ספר שלישי בסדרת הבדיקות"

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnitsProcessed)
	assert.Equal(t, 2, summary.UnitsSkipped)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Completed)
	assert.Len(t, cp.ProcessedUnits, 3)
}

func TestPipelineSessionInterrupted(t *testing.T) {
	env := newSessionEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		units: []domain.Unit{fileUnit("alef"), fileUnit("bet")},
		texts: map[string]string{
			"alef.txt": "ספר ראשון בסדרת הבדיקות",
			"bet.txt":  "ספר שני בסדרת הבדיקות",
		},
		onExtract: func(string) { cancel() },
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err := session.Run(ctx)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	require.NotNil(t, summary)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.UnitsProcessed)
	// The accumulated postings were flushed before returning, even
	// though the run context was already cancelled: the store must
	// hold every unit the checkpoint claims.
	assert.Equal(t, 1, summary.Flushes)
	offsets, err := env.store.Lookup(context.Background(), "ראשון")
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"alef": {4}}, offsets)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Contains("alef.txt"))
	assert.False(t, cp.Completed)

	// Resuming finishes the corpus.
	summary, err = session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnitsProcessed)
	assert.Equal(t, 1, summary.UnitsSkipped)
}

func TestPipelineSessionCancelledMidExtract(t *testing.T) {
	// A cancellation that aborts the in-flight extraction is an
	// interrupt, not a unit failure: the unit stays unmarked and the
	// resumed run redoes it.
	env := newSessionEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		units: []domain.Unit{fileUnit("alef"), fileUnit("bet")},
		texts: map[string]string{
			"alef.txt": "ספר ראשון בסדרת הבדיקות",
			"bet.txt":  "ספר שני בסדרת הבדיקות",
		},
		fails: map[string]error{"bet.txt": context.Canceled},
		onExtract: func(name string) {
			if name == "bet.txt" {
				cancel()
			}
		},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{}, nil)
	summary, err := session.Run(ctx)
	require.ErrorIs(t, err, domain.ErrInterrupted)

	assert.Equal(t, 1, summary.UnitsProcessed)
	assert.Equal(t, 0, summary.UnitsFailed)

	cp, err := env.checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Contains("alef.txt"))
	assert.False(t, cp.Contains("bet.txt"))

	// The aborted unit is picked up on resume.
	source.fails = nil
	source.onExtract = nil
	summary, err = session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnitsProcessed)
	assert.Equal(t, 1, summary.UnitsSkipped)
}

func TestPipelineSessionLocked(t *testing.T) {
	env := newSessionEnv(t)
	lockPath := filepath.Join(env.dir, "run.lock")

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock() //nolint:errcheck

	source := &fakeSource{
		units: []domain.Unit{fileUnit("alef")},
		texts: map[string]string{"alef.txt": "ספר ראשון בסדרת הבדיקות"},
	}

	session := NewPipelineSession(source, env.sink, env.store, env.checkpoints, SessionOptions{LockPath: lockPath}, nil)
	_, err = session.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrLocked)
}
