package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ExtractInput is the input schema for the extract tool.
type ExtractInput struct {
	Path        string `json:"path" jsonschema:"path to the document to extract"`
	ContentType string `json:"content_type,omitempty" jsonschema:"content type override: narrative or expository (default auto-detect)"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of segments to return (default all selected)"`
}

// ExtractOutput is the output schema for the extract tool.
type ExtractOutput struct {
	DocumentID  string          `json:"document_id"`
	Status      string          `json:"status"`
	ContentType string          `json:"content_type"`
	Segments    int             `json:"segments"`
	Selected    []SegmentOutput `json:"selected"`
	Fallback    []string        `json:"fallback_citations,omitempty"`
}

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Path        string `json:"path" jsonschema:"path to the document to query"`
	Query       string `json:"query,omitempty" jsonschema:"the question to rank segments against (empty returns the most salient segments)"`
	ContentType string `json:"content_type,omitempty" jsonschema:"content type override: narrative or expository (default auto-detect)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	DocumentID string         `json:"document_id"`
	Results    []RankedOutput `json:"results"`
	Count      int            `json:"count"`
}

// SegmentOutput represents one extracted segment.
type SegmentOutput struct {
	Citation    string  `json:"citation"`
	ContentHash string  `json:"content_hash"`
	Type        string  `json:"type"`
	Salience    float64 `json:"salience"`
	Heading     string  `json:"heading,omitempty"`
	Line        *int    `json:"line,omitempty"`
	Text        string  `json:"text"`
}

// RankedOutput represents one query result.
type RankedOutput struct {
	Citation     string  `json:"citation"`
	ContentHash  string  `json:"content_hash"`
	Score        float64 `json:"score"`
	FromFallback bool    `json:"from_fallback,omitempty"`
	Heading      string  `json:"heading,omitempty"`
	Text         string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract",
		Description: "Extract the most salient, diverse segments from a document",
	}, s.handleExtract)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Rank a document's segments against a question and return the best matches with citations",
	}, s.handleQuery)
}

// handleExtract handles the extract tool invocation.
func (s *Server) handleExtract(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractInput,
) (*mcp.CallToolResult, ExtractOutput, error) {
	result, err := s.extract(ctx, input.Path, input.ContentType)
	if err != nil {
		return nil, ExtractOutput{}, err
	}

	output := ExtractOutput{
		DocumentID:  result.DocumentID,
		Status:      string(result.Status),
		ContentType: result.ContentType.String(),
		Segments:    len(result.Segments),
	}

	selected := result.TopBySalience
	if input.Limit > 0 && len(selected) > input.Limit {
		selected = selected[:input.Limit]
	}

	for _, idx := range selected {
		seg, ok := result.SegmentByIndex(idx)
		if !ok {
			continue
		}
		output.Selected = append(output.Selected, SegmentOutput{
			Citation:    seg.Citation(),
			ContentHash: seg.ContentHash,
			Type:        seg.Type.String(),
			Salience:    result.Scores.At(idx).Salience,
			Heading:     seg.Heading,
			Line:        seg.LineNumber,
			Text:        seg.Text,
		})
	}

	for _, idx := range result.Fallback {
		if seg, ok := result.SegmentByIndex(idx); ok {
			output.Fallback = append(output.Fallback, seg.Citation())
		}
	}

	return nil, output, nil
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.extract(ctx, input.Path, input.ContentType)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	ranked, err := s.ports.Retrieval.Retrieve(ctx, result, input.Query)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		DocumentID: result.DocumentID,
		Results:    make([]RankedOutput, len(ranked)),
		Count:      len(ranked),
	}

	for i := range ranked {
		output.Results[i] = RankedOutput{
			Citation:     ranked[i].Citation,
			ContentHash:  ranked[i].Segment.ContentHash,
			Score:        ranked[i].Score,
			FromFallback: ranked[i].FromFallback,
			Heading:      ranked[i].Segment.Heading,
			Text:         ranked[i].Segment.Text,
		}
	}

	return nil, output, nil
}
