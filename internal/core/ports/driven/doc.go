// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - SpanSource: Parses a source document into typed text spans
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, salience
//     falls back to heuristic-only scoring and dense retrieval is disabled.
//   - EmbeddingCache: Caches embeddings keyed by content hash. Without it,
//     every pass re-embeds.
//   - ContentClassifier: Supplies the document content type. Without it,
//     the default position curve applies.
//   - ResultStore: Caches extraction results for long-running hosts.
//     Without it, every request re-extracts.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
