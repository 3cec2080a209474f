// Package embedding provides factory functions for creating embedding
// service adapters from configuration.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// Settings selects and configures an embedding provider.
type Settings struct {
	// Provider is "ollama", "openai" or "" (embedding disabled).
	Provider string

	// Model is the embedding model name. Empty uses the provider default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the resolved API key for providers that need one.
	APIKey string

	// RateLimit throttles embedding calls.
	RateLimit ratelimit.Config
}

// New creates an embedding service for the configured provider.
// An empty provider returns (nil, nil): the pipeline runs heuristic-only.
func New(settings Settings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case "":
		return nil, nil
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			RateLimit: settings.RateLimit,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:    settings.APIKey,
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			RateLimit: settings.RateLimit,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrInvalidConfig, settings.Provider)
	}
}

// NewValidated creates an embedding service and verifies connectivity
// with a bounded ping. An unreachable backend is reported as
// domain.ErrEmbeddingUnavailable so callers can degrade gracefully.
func NewValidated(ctx context.Context, settings Settings) (driven.EmbeddingService, error) {
	svc, err := New(settings)
	if err != nil || svc == nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}
