package driving

import (
	"context"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// ExtractionService runs the extraction phase: pre-filter, embed, score,
// diversity-select. The result is self-contained and immutable.
type ExtractionService interface {
	// Extract runs one extraction pass over the given spans.
	// Zero spans produce an empty result with ExtractionEmpty status,
	// not an error.
	Extract(ctx context.Context, documentID string, spans []domain.Span, contentType domain.ContentType) (*domain.ExtractionResult, error)
}

// RetrievalService ranks an extraction result against a query and applies
// the adaptive output budget.
type RetrievalService interface {
	// Retrieve produces the final ranked segment list for synthesis.
	// An empty query degenerates to pure salience ranking plus the
	// fallback bucket.
	Retrieve(ctx context.Context, result *domain.ExtractionResult, query string) ([]domain.RankedSegment, error)
}
