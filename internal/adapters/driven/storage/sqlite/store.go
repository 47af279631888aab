package sqlite

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.PostingsStore = (*Store)(nil)

// Store is the SQLite-backed compressed inverted index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the postings database at the given path.
func NewStore(path string) (*Store, error) {
	// WAL keeps readers (the search UI) unblocked during flushes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening postings database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			word TEXT PRIMARY KEY,
			postings BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_posts_word ON posts(word);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating posts table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush merges the accumulated postings into the store in one
// transaction. For each token the existing blob is decoded, the
// incoming offsets are concatenated per document, re-sorted ascending,
// delta-encoded and the whole entry written back. Duplicate offsets
// are kept; merging is commutative over flush order.
func (s *Store) Flush(ctx context.Context, postings domain.Postings) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning flush transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	selectStmt, err := tx.PrepareContext(ctx, "SELECT postings FROM posts WHERE word = ?")
	if err != nil {
		return fmt.Errorf("preparing select: %w", err)
	}
	defer selectStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO posts (word, postings) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer insertStmt.Close()

	for token, incoming := range postings {
		merged, err := readEntry(ctx, selectStmt, token)
		if err != nil {
			return err
		}

		for docID, offsets := range incoming {
			existing := domain.DeltaDecode(merged[docID])
			combined := append(existing, offsets...)
			sort.Ints(combined)
			merged[docID] = domain.DeltaEncode(combined)
		}

		blob, err := encodeEntry(merged)
		if err != nil {
			return fmt.Errorf("encoding postings for %q: %w", token, err)
		}
		if _, err := insertStmt.ExecContext(ctx, token, blob); err != nil {
			return fmt.Errorf("upserting postings for %q: %w", token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing flush: %w", err)
	}
	return nil
}

// Lookup returns the decoded offset lists for one token.
func (s *Store) Lookup(ctx context.Context, token string) (map[string][]int, error) {
	var blob []byte
	row := s.db.QueryRowContext(ctx, "SELECT postings FROM posts WHERE word = ?", token)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading postings for %q: %w", token, err)
	}

	encoded, err := decodeEntry(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding postings for %q: %w", token, err)
	}

	decoded := make(map[string][]int, len(encoded))
	for docID, deltas := range encoded {
		decoded[docID] = domain.DeltaDecode(deltas)
	}
	return decoded, nil
}

// WordCount returns the number of distinct stored tokens.
func (s *Store) WordCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting words: %w", err)
	}
	return count, nil
}

// readEntry loads and decodes one token's stored entry, or an empty
// map when the token is new.
func readEntry(ctx context.Context, stmt *sql.Stmt, token string) (map[string][]int, error) {
	var blob []byte
	row := stmt.QueryRowContext(ctx, token)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make(map[string][]int), nil
		}
		return nil, fmt.Errorf("reading postings for %q: %w", token, err)
	}

	entry, err := decodeEntry(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding postings for %q: %w", token, err)
	}
	return entry, nil
}

// encodeEntry serialises a per-token map to gzip-compressed JSON.
func encodeEntry(entry map[string][]int) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeEntry reverses encodeEntry. Offset lists stay delta-encoded.
func decodeEntry(blob []byte) (map[string][]int, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	entry := make(map[string][]int)
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return entry, nil
}
