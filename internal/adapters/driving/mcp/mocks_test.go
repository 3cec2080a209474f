package mcp

import (
	"context"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// mockExtractionService is a mock implementation of driving.ExtractionService.
type mockExtractionService struct {
	result *domain.ExtractionResult
	err    error
	calls  int
}

func (m *mockExtractionService) Extract(
	_ context.Context,
	documentID string,
	_ []domain.Span,
	contentType domain.ContentType,
) (*domain.ExtractionResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		m.result.DocumentID = documentID
		m.result.ContentType = contentType
	}
	return m.result, nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	ranked    []domain.RankedSegment
	err       error
	lastQuery string
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ *domain.ExtractionResult,
	query string,
) ([]domain.RankedSegment, error) {
	m.lastQuery = query
	return m.ranked, m.err
}

// mockSpanSource is a mock implementation of driven.SpanSource.
type mockSpanSource struct {
	spans    []domain.Span
	err      error
	lastPath string
}

func (m *mockSpanSource) Spans(_ context.Context, uri string) ([]domain.Span, error) {
	m.lastPath = uri
	return m.spans, m.err
}

// mockClassifier is a mock implementation of driven.ContentClassifier.
type mockClassifier struct {
	contentType domain.ContentType
	calls       int
}

func (m *mockClassifier) Classify(_ context.Context, _ []domain.Span) domain.ContentType {
	m.calls++
	return m.contentType
}

// fixtureResult builds a small extraction result with three scored
// sentence segments, the first two selected and the first in fallback.
func fixtureResult() *domain.ExtractionResult {
	texts := []string{
		"The gateway retries failed requests with exponential backoff.",
		"Configuration lives in a single TOML file.",
		"Logs are written to stderr.",
	}

	segments := make([]domain.Segment, len(texts))
	scores := domain.NewScoreSet(len(texts))
	for i, text := range texts {
		segments[i] = domain.NewSegment("doc-1", i, domain.Span{
			Type: domain.SegmentSentence,
			Text: text,
		})
		scores.SetSalience(i, 1.0-float64(i)*0.2)
	}

	return &domain.ExtractionResult{
		PassID:        "pass-1",
		DocumentID:    "doc-1",
		Status:        domain.ExtractionOK,
		Segments:      segments,
		Scores:        scores,
		TopBySalience: []int{0, 1},
		Fallback:      []int{0},
		ContentType:   domain.ContentExpository,
	}
}

func fixtureSpans() []domain.Span {
	return []domain.Span{
		{Type: domain.SegmentHeading, Text: "Overview", Heading: "Overview", HeadingLevel: 1},
		{Type: domain.SegmentSentence, Text: "The gateway retries failed requests.", Heading: "Overview"},
	}
}
