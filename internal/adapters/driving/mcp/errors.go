// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Skim. It lets AI assistants extract and query document segments without
// loading whole documents into their context.
package mcp

import "errors"

// ErrMissingExtractionService is returned when the extraction service is not provided.
var ErrMissingExtractionService = errors.New("mcp: extraction service is required")

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingSpanSource is returned when the span source is not provided.
var ErrMissingSpanSource = errors.New("mcp: span source is required")
