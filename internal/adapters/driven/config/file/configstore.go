package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// configVersion is written into every config file so future layout
// changes can migrate old files.
const configVersion = 1

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai" or "" (embedding disabled).
	Provider string `toml:"provider"`

	// Model is the embedding model name, e.g. "nomic-embed-text" or
	// "text-embedding-3-small".
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint. Empty uses the provider
	// default.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key for
	// providers that need one. The key itself never lives in the file.
	APIKeyEnv string `toml:"api_key_env"`

	// RequestsPerSecond throttles embedding calls. Zero disables
	// client-side throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst is the throttle burst size.
	Burst int `toml:"burst"`
}

// CacheConfig tunes the on-disk embedding cache.
type CacheConfig struct {
	// Enabled turns the cache on. Disabled means every pass re-embeds.
	Enabled bool `toml:"enabled"`

	// Path is the SQLite database path. Empty defaults to
	// cache.db next to the config file.
	Path string `toml:"path"`
}

// Config is the full skim configuration: every tunable of the extraction
// and retrieval pipelines plus the embedding and cache backends.
type Config struct {
	Version    int                     `toml:"version"`
	Extraction domain.ExtractionConfig `toml:"extraction"`
	Retrieval  domain.RetrievalConfig  `toml:"retrieval"`
	Embedding  EmbeddingConfig         `toml:"embedding"`
	Cache      CacheConfig             `toml:"cache"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Version:    configVersion,
		Extraction: domain.DefaultExtractionConfig(),
		Retrieval:  domain.DefaultRetrievalConfig(),
		Embedding: EmbeddingConfig{
			Provider:          "ollama",
			Model:             "nomic-embed-text",
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Cache: CacheConfig{Enabled: true},
	}
}

// Validate checks the pipeline sections.
func (c Config) Validate() error {
	if err := c.Extraction.Validate(); err != nil {
		return err
	}
	return c.Retrieval.Validate()
}

// Store loads and persists the configuration as a TOML file in the skim
// config directory.
type Store struct {
	mu       sync.RWMutex
	filePath string
	cfg      Config
}

// NewStore creates a TOML-backed config store.
// If configDir is empty, defaults to ~/.skim/config.toml. A missing file
// yields the defaults; a present but invalid file is an error.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".skim")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
		cfg:      DefaultConfig(),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to the configuration, validates the result and
// persists it. The stored configuration is unchanged when validation or
// the write fails.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.cfg
	fn(&updated)
	updated.Version = configVersion

	if err := updated.Validate(); err != nil {
		return err
	}
	if err := s.write(updated); err != nil {
		return err
	}

	s.cfg = updated
	return nil
}

// Load reads the configuration from disk. A missing file resets to
// defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.cfg = DefaultConfig()
			return nil
		}
		return err
	}

	// Missing keys keep their default values.
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.filePath, err)
	}

	s.cfg = cfg
	return nil
}

// Save persists the current configuration to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.cfg)
}

// write marshals and writes a config (caller must hold lock).
func (s *Store) write(cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Restricted permissions: the file may name key-holding env vars.
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}

// CachePath resolves the embedding cache database path, defaulting to
// cache.db next to the config file.
func (s *Store) CachePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg.Cache.Path != "" {
		return s.cfg.Cache.Path
	}
	return filepath.Join(filepath.Dir(s.filePath), "cache.db")
}
