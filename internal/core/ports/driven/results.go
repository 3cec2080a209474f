package driven

import (
	"context"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// ResultStore caches completed extraction results for long-running hosts
// such as the MCP server, so repeated queries against the same document do
// not pay for re-embedding. Keys are caller-computed fingerprints covering
// the document identity, content and classification; a changed document
// produces a different key, so stale entries are never served.
type ResultStore interface {
	// Get returns the cached result for the key, if present.
	Get(ctx context.Context, key string) (*domain.ExtractionResult, bool)

	// Put stores a result under the key. The document ID is recorded
	// alongside so InvalidateDocument can find it.
	Put(ctx context.Context, documentID, key string, result *domain.ExtractionResult)

	// InvalidateDocument drops every cached result for the document.
	InvalidateDocument(ctx context.Context, documentID string)
}
