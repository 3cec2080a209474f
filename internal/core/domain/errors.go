package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a contradictory configuration. Raised at
	// configuration-load time, never mid-pipeline.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Extraction degrades to heuristic-only salience.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
