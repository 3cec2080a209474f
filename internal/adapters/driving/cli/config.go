package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/skim-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/skim-cli/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change extraction, retrieval, embedding and cache settings.

Settings live in a single TOML file (default ~/.skim/config.toml) and
every change is validated before it is written.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a single configuration value by dotted key, for example:

  skim config set extraction.max_segments 50
  skim config set retrieval.fusion weighted_blend
  skim config set embedding.model nomic-embed-text
  skim config set cache.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long:  `Interactively configure the embedding provider used for semantic scoring.`,
	RunE:  runConfigEmbedding,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := configStore.Config()

	cmd.Printf("Configuration (%s)\n", configStore.Path())
	cmd.Println()

	cmd.Println("[Extraction]")
	cmd.Printf("  Extraction ratio: %.2f\n", cfg.Extraction.ExtractionRatio)
	cmd.Printf("  Segments: %d..%d\n", cfg.Extraction.MinSegments, cfg.Extraction.MaxSegments)
	cmd.Printf("  MMR lambda: %.2f\n", cfg.Extraction.MmrLambda)
	cmd.Printf("  Embed cap: %d segments (%d workers)\n",
		cfg.Extraction.MaxSegmentsToEmbed, cfg.Extraction.EmbedWorkers)
	cmd.Printf("  Fallback bucket: %d\n", cfg.Extraction.FallbackBucketSize)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Fusion: %s\n", cfg.Retrieval.Fusion)
	cmd.Printf("  Output budget: %d..%d segments\n", cfg.Retrieval.MinTopK, cfg.Retrieval.MaxTopK)
	cmd.Printf("  Coverage: %.1f%% (narrative boost %.2fx)\n",
		cfg.Retrieval.MinCoveragePercent, cfg.Retrieval.NarrativeBoost)
	cmd.Printf("  Guaranteed fallback: %d\n", cfg.Retrieval.FallbackCount)
	cmd.Println()

	cmd.Println("[Embedding]")
	if cfg.Embedding.Provider == "" {
		cmd.Println("  Provider: (none, heuristic-only)")
	} else {
		cmd.Printf("  Provider: %s\n", cfg.Embedding.Provider)
		cmd.Printf("  Model: %s\n", cfg.Embedding.Model)
		if cfg.Embedding.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", cfg.Embedding.BaseURL)
		}
		if cfg.Embedding.APIKeyEnv != "" {
			cmd.Printf("  API key env: %s\n", cfg.Embedding.APIKeyEnv)
		}
		cmd.Printf("  Rate limit: %.1f req/s, burst %d\n",
			cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst)
	}
	cmd.Println()

	cmd.Println("[Cache]")
	if cfg.Cache.Enabled {
		cmd.Printf("  Enabled: yes (%s)\n", configStore.CachePath())
	} else {
		cmd.Println("  Enabled: no")
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	var applyErr error
	err := configStore.Update(func(cfg *configfile.Config) {
		applyErr = applyConfigValue(cfg, key, value)
	})
	if applyErr != nil {
		return applyErr
	}
	if err != nil {
		return err
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

// applyConfigValue sets a single dotted-key value on the config. It parses
// the value according to the field type; range checking is left to the
// config validators.
func applyConfigValue(cfg *configfile.Config, key, value string) error {
	parseFloat := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected a number, got %q", key, value)
		}
		return v, nil
	}
	parseInt := func() (int, error) {
		v, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: expected an integer, got %q", key, value)
		}
		return v, nil
	}
	parseBool := func() (bool, error) {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		return v, nil
	}

	var err error
	switch key {
	case "extraction.extraction_ratio":
		cfg.Extraction.ExtractionRatio, err = parseFloat()
	case "extraction.min_segments":
		cfg.Extraction.MinSegments, err = parseInt()
	case "extraction.max_segments":
		cfg.Extraction.MaxSegments, err = parseInt()
	case "extraction.mmr_lambda":
		cfg.Extraction.MmrLambda, err = parseFloat()
	case "extraction.max_segments_to_embed":
		cfg.Extraction.MaxSegmentsToEmbed, err = parseInt()
	case "extraction.embed_workers":
		cfg.Extraction.EmbedWorkers, err = parseInt()
	case "extraction.fallback_bucket_size":
		cfg.Extraction.FallbackBucketSize, err = parseInt()
	case "retrieval.fusion":
		cfg.Retrieval.Fusion = domain.FusionMode(value)
	case "retrieval.alpha":
		cfg.Retrieval.Alpha, err = parseFloat()
	case "retrieval.min_similarity":
		cfg.Retrieval.MinSimilarity, err = parseFloat()
	case "retrieval.min_coverage_percent":
		cfg.Retrieval.MinCoveragePercent, err = parseFloat()
	case "retrieval.narrative_boost":
		cfg.Retrieval.NarrativeBoost, err = parseFloat()
	case "retrieval.min_top_k":
		cfg.Retrieval.MinTopK, err = parseInt()
	case "retrieval.max_top_k":
		cfg.Retrieval.MaxTopK, err = parseInt()
	case "retrieval.fallback_count":
		cfg.Retrieval.FallbackCount, err = parseInt()
	case "embedding.provider":
		cfg.Embedding.Provider = value
	case "embedding.model":
		cfg.Embedding.Model = value
	case "embedding.base_url":
		cfg.Embedding.BaseURL = value
	case "embedding.api_key_env":
		cfg.Embedding.APIKeyEnv = value
	case "embedding.requests_per_second":
		cfg.Embedding.RequestsPerSecond, err = parseFloat()
	case "embedding.burst":
		cfg.Embedding.Burst, err = parseInt()
	case "cache.enabled":
		cfg.Cache.Enabled, err = parseBool()
	case "cache.path":
		cfg.Cache.Path = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return err
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	providers := []struct {
		name        string
		description string
	}{
		{"ollama", "Ollama (local, no API key)"},
		{"openai", "OpenAI (remote, API key required)"},
		{"", "None (heuristic-only extraction)"},
	}

	cmd.Println("Select Embedding Provider")
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.description)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1].name

	var model, baseURL, apiKeyEnv string
	if provider != "" {
		defaults := map[string]string{
			"ollama": "nomic-embed-text",
			"openai": "text-embedding-3-small",
		}
		cmd.Printf("Enter model name [%s]: ", defaults[provider])
		model = readLine(reader)
		if model == "" {
			model = defaults[provider]
		}

		if provider == "ollama" {
			cmd.Print("Enter base URL [http://localhost:11434]: ")
			baseURL = readLine(reader)
			if baseURL == "" {
				baseURL = "http://localhost:11434"
			}
		}

		if provider == "openai" {
			cmd.Print("Environment variable holding the API key [OPENAI_API_KEY]: ")
			apiKeyEnv = readLine(reader)
			if apiKeyEnv == "" {
				apiKeyEnv = "OPENAI_API_KEY"
			}
			if os.Getenv(apiKeyEnv) == "" {
				return fmt.Errorf("environment variable %s is not set", apiKeyEnv)
			}
		}
	}

	err := configStore.Update(func(cfg *configfile.Config) {
		cfg.Embedding.Provider = provider
		cfg.Embedding.Model = model
		cfg.Embedding.BaseURL = baseURL
		cfg.Embedding.APIKeyEnv = apiKeyEnv
	})
	if err != nil {
		return fmt.Errorf("saving embedding configuration: %w", err)
	}

	if provider == "" {
		cmd.Println("Embedding disabled; extraction will run heuristic-only.")
		return nil
	}

	// Validate the configuration by pinging the backend.
	cmd.Print("Validating configuration... ")
	cfg := configStore.Config()
	settings := embedding.Settings{
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Burst:             cfg.Embedding.Burst,
		},
	}
	if apiKeyEnv != "" {
		settings.APIKey = os.Getenv(apiKeyEnv)
	}
	svc, err := embedding.NewValidated(cmd.Context(), settings)
	if err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	svc.Close()
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider, model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}
