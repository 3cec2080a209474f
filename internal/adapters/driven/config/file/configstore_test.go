package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

func TestNewStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewStore_DefaultsWithoutFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, domain.DefaultExtractionConfig(), cfg.Extraction)
	assert.Equal(t, domain.DefaultRetrievalConfig(), cfg.Retrieval)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.True(t, cfg.Cache.Enabled)
}

func TestStore_UpdatePersists(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	err = store.Update(func(cfg *Config) {
		cfg.Extraction.MaxSegments = 40
		cfg.Retrieval.Fusion = domain.FusionWeightedBlend
		cfg.Embedding.Model = "all-minilm"
	})
	require.NoError(t, err)

	// Reopen from disk and verify the round trip.
	reopened, err := NewStore(tmpDir)
	require.NoError(t, err)

	cfg := reopened.Config()
	assert.Equal(t, 40, cfg.Extraction.MaxSegments)
	assert.Equal(t, domain.FusionWeightedBlend, cfg.Retrieval.Fusion)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Update(func(cfg *Config) {
		cfg.Extraction.MmrLambda = 2.0
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	// The stored config is untouched.
	assert.Equal(t, domain.DefaultExtractionConfig().MmrLambda, store.Config().Extraction.MmrLambda)
}

func TestStore_LoadRejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[extraction]\nmmr_lambda = -1.0\n"), 0600))

	_, err := NewStore(tmpDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestStore_LoadRejectsMalformedTOML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml ["), 0600))

	_, err := NewStore(tmpDir)
	require.Error(t, err)
}

func TestStore_PartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[retrieval]\nmin_top_k = 20\n"), 0600))

	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, 20, cfg.Retrieval.MinTopK)
	assert.Equal(t, domain.DefaultRetrievalConfig().MaxTopK, cfg.Retrieval.MaxTopK)
	assert.Equal(t, domain.DefaultExtractionConfig(), cfg.Extraction)
}

func TestStore_CachePath(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "cache.db"), store.CachePath())

	err = store.Update(func(cfg *Config) {
		cfg.Cache.Path = "/tmp/elsewhere.db"
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", store.CachePath())
}

func TestStore_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
