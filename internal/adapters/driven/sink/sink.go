// Package sink provides the chunk document outputs: a streaming JSONL
// log that appends as units are processed, and a buffered variant that
// holds every chunk in memory and writes a single JSON array on Close.
// The streaming sink is the default; the buffered one mirrors the
// smaller-corpus output format the library-row pipeline historically
// produced.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
)

// Ensure implementations satisfy the interfaces.
var (
	_ driven.ChunkSink   = (*JSONLSink)(nil)
	_ driven.ChunkSink   = (*BufferedSink)(nil)
	_ driven.ChunkReader = (*FileReader)(nil)
)

// JSONLSink appends one JSON document per line. Chunks are durable as
// soon as Append returns, which keeps peak memory independent of
// corpus size.
type JSONLSink struct {
	path   string
	file   *os.File
	closed bool
}

// NewJSONLSink opens the log file for appending, creating it if needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening chunk log: %w", err)
	}
	return &JSONLSink{path: path, file: f}, nil
}

// Path returns the log file path.
func (s *JSONLSink) Path() string {
	return s.path
}

// Append writes the chunks, one JSON document per line, and syncs.
func (s *JSONLSink) Append(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	w := bufio.NewWriter(s.file)
	enc := json.NewEncoder(w)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return fmt.Errorf("appending chunk %s: %w", chunks[i].ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing chunk log: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing chunk log: %w", err)
	}
	return nil
}

// Close closes the log file. Safe to call more than once.
func (s *JSONLSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// BufferedSink collects chunks in memory and writes a single JSON
// array on Close.
type BufferedSink struct {
	path   string
	chunks []domain.Chunk
	closed bool
}

// NewBufferedSink creates a buffered sink writing to the given path.
// An existing file's documents are loaded first, so a resumed run
// rewrites the complete array instead of only the new units' chunks.
func NewBufferedSink(path string) (*BufferedSink, error) {
	chunks := []domain.Chunk{}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading existing chunk documents: %w", err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &chunks); err != nil {
			return nil, fmt.Errorf("parsing existing chunk documents: %w", err)
		}
		if chunks == nil {
			chunks = []domain.Chunk{}
		}
	}
	return &BufferedSink{path: path, chunks: chunks}, nil
}

// Path returns the output file path.
func (s *BufferedSink) Path() string {
	return s.path
}

// Append collects the chunks in memory.
func (s *BufferedSink) Append(_ context.Context, chunks []domain.Chunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Close writes the collected chunks as one JSON array. Safe to call
// more than once; only the first call writes.
func (s *BufferedSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	raw, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("encoding chunk documents: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("writing chunk documents: %w", err)
	}
	return nil
}

// FileReader loads chunk documents back for publishing. Both formats
// are accepted: a JSON array, or one JSON document per line.
type FileReader struct{}

// NewFileReader creates a chunk log reader.
func NewFileReader() *FileReader {
	return &FileReader{}
}

// ReadAll loads every chunk from the given file.
func (r *FileReader) ReadAll(_ context.Context, path string) ([]domain.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chunk log: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var chunks []domain.Chunk
		if err := json.Unmarshal([]byte(trimmed), &chunks); err != nil {
			return nil, fmt.Errorf("parsing chunk array: %w", err)
		}
		return chunks, nil
	}

	var chunks []domain.Chunk
	for i, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var chunk domain.Chunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return nil, fmt.Errorf("parsing chunk log line %d: %w", i+1, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
