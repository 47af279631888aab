// Package domain contains the core types of the indexing pipeline:
// corpus units, extractions, chunks, postings and checkpoints.
// It has no dependencies on adapters or external services.
package domain
