// Package domain defines the core business entities for skim.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Segment: An immutable, citable unit of document text
//   - ScoreSet: Per-pass computed scores, addressed by segment index
//   - ExtractionResult: The output of one extraction pass
//   - ExtractionConfig / RetrievalConfig: immutable tuning records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
