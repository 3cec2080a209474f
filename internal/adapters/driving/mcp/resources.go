package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Skim resources.
	uriScheme = "skim://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Template for extraction results. The path component is URL-encoded.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "extract/{path}",
		Name:        "extraction",
		Description: "Salience-ranked segments extracted from a document",
		MIMEType:    "application/json",
	}, s.handleExtractResource)

	// Template for the raw span breakdown of a document.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "spans/{path}",
		Name:        "spans",
		Description: "Structural span breakdown of a document",
		MIMEType:    "application/json",
	}, s.handleSpansResource)
}

// handleExtractResource returns the extraction result for a document.
func (s *Server) handleExtractResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	path := extractPath(req.Params.URI, "extract/")
	if path == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	result, err := s.extract(ctx, path, "")
	if err != nil {
		return nil, err
	}

	type segmentInfo struct {
		Citation string  `json:"citation"`
		Type     string  `json:"type"`
		Salience float64 `json:"salience"`
		Text     string  `json:"text"`
	}

	infos := make([]segmentInfo, 0, len(result.TopBySalience))
	for _, idx := range result.TopBySalience {
		seg, ok := result.SegmentByIndex(idx)
		if !ok {
			continue
		}
		infos = append(infos, segmentInfo{
			Citation: seg.Citation(),
			Type:     seg.Type.String(),
			Salience: result.Scores.At(idx).Salience,
			Text:     seg.Text,
		})
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling segments: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSpansResource returns the structural spans of a document.
func (s *Server) handleSpansResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	path := extractPath(req.Params.URI, "spans/")
	if path == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	spans, err := s.ports.Spans.Spans(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	type spanInfo struct {
		Type    string `json:"type"`
		Heading string `json:"heading,omitempty"`
		Line    *int   `json:"line,omitempty"`
		Text    string `json:"text"`
	}

	infos := make([]spanInfo, len(spans))
	for i := range spans {
		infos[i] = spanInfo{
			Type:    spans[i].Type.String(),
			Heading: spans[i].Heading,
			Line:    spans[i].LineNumber,
			Text:    spans[i].Text,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling spans: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPath pulls the URL-decoded document path out of a resource URI
// like skim://extract/{path}.
func extractPath(uri, kind string) string {
	prefix := uriScheme + kind
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	encoded := strings.TrimPrefix(uri, prefix)
	path, err := url.PathUnescape(encoded)
	if err != nil {
		return ""
	}
	return path
}
