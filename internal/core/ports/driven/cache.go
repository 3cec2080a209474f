package driven

import "context"

// EmbeddingCache persists embeddings keyed by segment content hash, so
// re-extraction of unchanged text never re-embeds.
//
// Reads may be concurrent. Writes for a single document must come from a
// single pipeline invocation: no two extraction passes for the same
// document run concurrently against the cache, and implementations only
// need to guarantee internal consistency, not cross-pass coordination.
type EmbeddingCache interface {
	// Get returns the cached embedding for a content hash, if present.
	Get(ctx context.Context, contentHash string) ([]float32, bool, error)

	// Put stores an embedding under a content hash, overwriting any
	// previous value.
	Put(ctx context.Context, contentHash string, embedding []float32) error

	// Close releases resources.
	Close() error
}
