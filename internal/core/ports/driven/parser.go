package driven

import (
	"context"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// SpanSource hands the extraction core a list of typed text spans in
// document order. Parsing from source formats (PDF, DOCX, HTML, plain
// text) happens entirely behind this boundary; the core never sees raw
// bytes.
type SpanSource interface {
	// Spans parses the named source into typed spans, in document order.
	Spans(ctx context.Context, uri string) ([]domain.Span, error)
}

// ContentClassifier supplies the document content type, once per document.
// The classification is consumed read-only by position weighting and the
// adaptive budget controller.
type ContentClassifier interface {
	// Classify determines the content type from the parsed spans.
	Classify(ctx context.Context, spans []domain.Span) domain.ContentType
}
