// Package memory provides in-memory storage adapters.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
)

// Ensure ResultStore implements the interface.
var _ driven.ResultStore = (*ResultStore)(nil)

// defaultMaxEntries bounds the store. Extraction results hold embeddings,
// so an unbounded store on a long-running server would grow without limit.
const defaultMaxEntries = 32

type entry struct {
	documentID string
	result     *domain.ExtractionResult
	seq        uint64
}

// ResultStore is an in-memory implementation of driven.ResultStore.
// When full, the oldest entry is evicted.
type ResultStore struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	nextSeq    uint64
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		entries:    make(map[string]entry),
		maxEntries: defaultMaxEntries,
	}
}

// Get returns the cached result for the key, if present.
func (s *ResultStore) Get(_ context.Context, key string) (*domain.ExtractionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.result, true
}

// Put stores a result under the key, evicting the oldest entry when full.
func (s *ResultStore) Put(_ context.Context, documentID, key string, result *domain.ExtractionResult) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.nextSeq++
	s.entries[key] = entry{
		documentID: documentID,
		result:     result,
		seq:        s.nextSeq,
	}
}

// InvalidateDocument drops every cached result for the document.
func (s *ResultStore) InvalidateDocument(_ context.Context, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.documentID == documentID {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of cached results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *ResultStore) evictOldest() {
	var oldestKey string
	var oldest uint64
	first := true
	for key, e := range s.entries {
		if first || e.seq < oldest {
			oldestKey = key
			oldest = e.seq
			first = false
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
