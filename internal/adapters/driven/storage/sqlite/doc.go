// Package sqlite provides the durable postings store backing
// posmap.sqlite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. The schema is
// a single table:
//
//	posts(word TEXT PRIMARY KEY, postings BLOB)
//
// Each blob is the gzip of a JSON object mapping document IDs to
// delta-encoded, ascending offset lists. Per-token blobs keep random
// access to one token's postings cheap without loading the whole index.
//
// # Durability
//
// Flush runs as one transaction; a crash between flushes loses at most
// the in-memory accumulator since the last flush and never corrupts a
// committed blob. A single writer is assumed (the batch driver holds a
// lock on the output directory).
package sqlite
