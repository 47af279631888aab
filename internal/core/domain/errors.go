package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotApplicable indicates an extractor cannot handle a unit.
	// It is distinct from an extractor that handled the unit but failed.
	ErrNotApplicable = errors.New("extractor not applicable")

	// ErrInterrupted indicates the operator requested a graceful stop.
	// A run ending with ErrInterrupted has flushed and persisted its
	// progress; re-running resumes from the checkpoint.
	ErrInterrupted = errors.New("interrupted")

	// ErrAlreadyComplete indicates the checkpoint marks every corpus
	// unit as processed. Not an error condition for the operator.
	ErrAlreadyComplete = errors.New("index already complete")

	// ErrLocked indicates another process holds the output directory lock.
	// Concurrent writers against the same output directory are not supported.
	ErrLocked = errors.New("output directory locked by another process")

	// ErrPublishRejected indicates at least one document batch was not
	// accepted by the search engine. The whole publish is retryable.
	ErrPublishRejected = errors.New("publish rejected")
)
