package mcp

import (
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driving"
)

// Ports aggregates the port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Extraction runs extraction passes over parsed documents.
	Extraction driving.ExtractionService

	// Retrieval ranks extraction results against queries.
	Retrieval driving.RetrievalService

	// Spans parses source files into typed spans.
	Spans driven.SpanSource

	// Classifier detects the document content type. Optional; when nil
	// every document is treated as unknown.
	Classifier driven.ContentClassifier

	// Results caches extraction results between tool calls. Optional;
	// when nil every call re-extracts.
	Results driven.ResultStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Extraction == nil {
		return ErrMissingExtractionService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Spans == nil {
		return ErrMissingSpanSource
	}
	// Classifier and Results are optional.
	return nil
}
