package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cachesqlite "github.com/custodia-labs/skim-cli/internal/adapters/driven/cache/sqlite"
)

var cacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Embedding cache commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old cache entries",
	RunE:  runCachePrune,
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 30*24*time.Hour,
		"delete entries older than this age")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache opens the cache directly, without pinging the embedding
// backend: cache maintenance works offline.
func openCache() (*cachesqlite.Cache, error) {
	cfg := configStore.Config()
	if !cfg.Cache.Enabled {
		return nil, fmt.Errorf("embedding cache is disabled in %s", configStore.Path())
	}

	model := cfg.Embedding.Model
	if model == "" {
		model = "default"
	}
	return cachesqlite.New(configStore.CachePath(), model)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	count, err := cache.Count(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Cache: %s\n", cache.Path())
	cmd.Printf("Model: %s\n", configStore.Config().Embedding.Model)
	cmd.Printf("Entries: %d\n", count)
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	deleted, err := cache.Prune(cmd.Context(), cacheOlderThan)
	if err != nil {
		return err
	}

	cmd.Printf("Pruned %d cache entries older than %s.\n", deleted, cacheOlderThan)
	return nil
}
