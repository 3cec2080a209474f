// Package cli provides the skim command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cachesqlite "github.com/custodia-labs/skim-cli/internal/adapters/driven/cache/sqlite"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/classify"
	configfile "github.com/custodia-labs/skim-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/parser/text"
	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/skim-cli/internal/core/services"
	"github.com/custodia-labs/skim-cli/internal/logger"
)

// version is set by Execute.
var version = "dev"

// Shared flags.
var (
	verbose   bool
	configDir string
)

// Services wired once per invocation.
var (
	configStore       *configfile.Store
	embeddingService  driven.EmbeddingService
	embeddingCache    *cachesqlite.Cache
	spanSource        driven.SpanSource
	classifier        driven.ContentClassifier
	extractionService driving.ExtractionService
	retrievalService  driving.RetrievalService
)

var rootCmd = &cobra.Command{
	Use:   "skim",
	Short: "Deterministic segment extraction and retrieval for long documents",
	Long: `skim decomposes long documents into atomic, citable segments, then
scores, diversifies and ranks them so a bounded, high-coverage subset
can be handed to a synthesis stage. All ranking is deterministic and
reproducible; no generative model is involved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		store, err := configfile.NewStore(configDir)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		configStore = store
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.skim)")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// ensureServices builds the extraction pipeline on first use. Commands
// that run the pipeline call this in their RunE; commands like version
// never pay for a backend ping.
func ensureServices(ctx context.Context) error {
	if extractionService != nil {
		return nil
	}

	cfg := configStore.Config()

	settings := embedding.Settings{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Burst:             cfg.Embedding.Burst,
		},
	}
	if cfg.Embedding.APIKeyEnv != "" {
		settings.APIKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	}

	svc, err := embedding.NewValidated(ctx, settings)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return err
		}
		logger.Warn("Embedding backend unavailable, running heuristic-only: %v", err)
		svc = nil
	}
	embeddingService = svc

	var cache driven.EmbeddingCache
	if cfg.Cache.Enabled && embeddingService != nil {
		c, err := cachesqlite.New(configStore.CachePath(), embeddingService.ModelName())
		if err != nil {
			logger.Warn("Embedding cache unavailable, continuing without: %v", err)
		} else {
			embeddingCache = c
			cache = c
		}
	}

	extractor, err := services.NewExtractor(cfg.Extraction, embeddingService, cache)
	if err != nil {
		return err
	}
	retriever, err := services.NewRetriever(cfg.Retrieval, embeddingService)
	if err != nil {
		return err
	}

	extractionService = extractor
	retrievalService = retriever
	spanSource = text.New()
	classifier = classify.New()
	return nil
}

// closeServices releases backend resources at the end of a command.
func closeServices() {
	if embeddingCache != nil {
		embeddingCache.Close()
		embeddingCache = nil
	}
	if embeddingService != nil {
		embeddingService.Close()
		embeddingService = nil
	}
	extractionService = nil
	retrievalService = nil
}

// resolveContentType maps the --type flag to a content type, falling
// back to the heuristic classifier on "auto".
func resolveContentType(ctx context.Context, flag string, spans []domain.Span) (domain.ContentType, error) {
	if flag == "" || flag == "auto" {
		return classifier.Classify(ctx, spans), nil
	}
	return domain.ParseContentType(flag)
}
