// Package sqlite provides the SQLite-backed embedding cache.
// Embeddings are keyed by segment content hash and model name, so
// re-extraction of unchanged text never re-embeds, and switching models
// never serves stale vectors.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/skim-cli/internal/adapters/driven/cache/sqlite/migrations"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is the SQLite-backed embedding cache. A cache instance is bound
// to one model name; lookups never cross models.
type Cache struct {
	db    *sql.DB
	path  string
	model string
}

// New opens (or creates) the cache database at the given path for the
// given embedding model.
func New(path, model string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if model == "" {
		return nil, fmt.Errorf("cache model name is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	// WAL mode allows concurrent readers during a write.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c := &Cache{
		db:    db,
		path:  path,
		model: model,
	}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Get returns the cached embedding for a content hash, if present.
func (c *Cache) Get(ctx context.Context, contentHash string) ([]float32, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT embedding FROM embeddings
		WHERE content_hash = ? AND model = ?
	`, contentHash, c.model)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cached embedding: %w", err)
	}

	return bytesToFloat32Slice(blob), true, nil
}

// Put stores an embedding under a content hash, overwriting any previous
// value for the same model.
func (c *Cache) Put(ctx context.Context, contentHash string, embedding []float32) error {
	if len(embedding) == 0 {
		return nil // an empty vector is never worth caching
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embeddings (content_hash, model, dimensions, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash, model) DO UPDATE SET
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			created_at = CURRENT_TIMESTAMP
	`, contentHash, c.model, len(embedding), float32SliceToBytes(embedding))

	if err != nil {
		return fmt.Errorf("caching embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached embeddings for this cache's model.
func (c *Cache) Count(ctx context.Context) (int, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM embeddings WHERE model = ?", c.model)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting cached embeddings: %w", err)
	}
	return count, nil
}

// Prune deletes cache entries older than the given age, across all
// models. Returns the number of deleted entries.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE created_at < datetime(?, 'unixepoch')", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// migrate runs all pending migrations.
func (c *Cache) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
