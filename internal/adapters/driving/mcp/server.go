package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for Skim.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "skim",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// extract parses and extracts a document, resolving the content type
// through the classifier when one is wired. Results are cached per
// document content, so repeated tool calls against an unchanged document
// skip re-embedding; any edit changes the fingerprint and misses.
func (s *Server) extract(ctx context.Context, path, contentType string) (*domain.ExtractionResult, error) {
	spans, err := s.ports.Spans.Spans(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	ct, err := s.resolveContentType(ctx, contentType, spans)
	if err != nil {
		return nil, err
	}

	key := resultKey(path, ct, spans)
	if s.ports.Results != nil {
		if cached, ok := s.ports.Results.Get(ctx, key); ok {
			return cached, nil
		}
	}

	result, err := s.ports.Extraction.Extract(ctx, path, spans, ct)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}

	if s.ports.Results != nil {
		s.ports.Results.Put(ctx, path, key, result)
	}
	return result, nil
}

// resultKey fingerprints a document's parsed content and classification.
func resultKey(path string, ct domain.ContentType, spans []domain.Span) string {
	var b strings.Builder
	for i := range spans {
		b.WriteString(spans[i].Text)
		b.WriteByte(0)
	}
	return fmt.Sprintf("%s:%s:%s", path, ct, domain.HashContent(b.String()))
}

func (s *Server) resolveContentType(ctx context.Context, flag string, spans []domain.Span) (domain.ContentType, error) {
	if flag == "" || flag == "auto" {
		if s.ports.Classifier == nil {
			return domain.ContentUnknown, nil
		}
		return s.ports.Classifier.Classify(ctx, spans), nil
	}
	return domain.ParseContentType(flag)
}
