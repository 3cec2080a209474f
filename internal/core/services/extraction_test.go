package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// mockEmbedder implements driven.EmbeddingService with deterministic
// embeddings derived from the text, so cosine similarities are stable
// across runs. Texts containing failOn return an error.
type mockEmbedder struct {
	dims   int
	failOn string

	mu    sync.Mutex
	calls int
}

func textEmbedding(text string, dims int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	angle := float64(h.Sum32()%360) * math.Pi / 180

	v := make([]float32, dims)
	v[0] = float32(math.Cos(angle))
	v[1] = float32(math.Sin(angle))
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	return textEmbedding(text, m.dims), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = embedding
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) ModelName() string { return "mock-embed" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCache implements driven.EmbeddingCache in memory.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	hits    int
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]float32)}
}

func (m *mockCache) Get(_ context.Context, contentHash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	embedding, ok := m.entries[contentHash]
	if ok {
		m.hits++
	}
	return embedding, ok, nil
}

func (m *mockCache) Put(_ context.Context, contentHash string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[contentHash] = embedding
	m.puts++
	return nil
}

func (m *mockCache) Close() error { return nil }

func makeSpans(count int) []domain.Span {
	spans := make([]domain.Span, count)
	offset := 0
	for i := range spans {
		text := fmt.Sprintf("Paragraph %d discusses a distinct aspect of the system in some depth.", i)
		spans[i] = domain.Span{
			Type:      domain.SegmentSentence,
			Text:      text,
			CharStart: offset,
			CharEnd:   offset + len(text),
		}
		offset += len(text) + 1
	}
	return spans
}

// TestExtractor_EmptySpans tests that zero spans produce an empty result,
// not an error
func TestExtractor_EmptySpans(t *testing.T) {
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), &mockEmbedder{dims: 4}, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", nil, domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionEmpty, result.Status)
	assert.NotEmpty(t, result.PassID)
	assert.Empty(t, result.Segments)
	assert.Empty(t, result.TopBySalience)
	assert.True(t, result.IsEmpty())
}

// TestExtractor_InvalidConfig tests that construction rejects a broken
// configuration
func TestExtractor_InvalidConfig(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	cfg.MmrLambda = 1.5

	_, err := NewExtractor(cfg, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

// TestExtractor_FullPipeline tests the happy path: embeddings, salience,
// diversity selection and fallback bucket all populated
func TestExtractor_FullPipeline(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	extractor, err := NewExtractor(cfg, &mockEmbedder{dims: 4}, nil)
	require.NoError(t, err)

	spans := makeSpans(50)
	result, err := extractor.Extract(context.Background(), "doc-1", spans, domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionOK, result.Status)
	assert.Len(t, result.Segments, 50)
	assert.Equal(t, 50, result.Scores.EmbeddedCount())
	assert.NotEmpty(t, result.Centroid)

	// ratio 0.15 of 50 is 7.5, clamped up to the floor of 10
	assert.Len(t, result.TopBySalience, 10)
	assert.Len(t, result.Fallback, cfg.FallbackBucketSize)

	for _, idx := range result.TopBySalience {
		seg, ok := result.SegmentByIndex(idx)
		require.True(t, ok)
		assert.Equal(t, idx, seg.Index)
		assert.True(t, result.Scores.At(idx).HasEmbedding())
	}
}

// TestExtractor_Deterministic tests that two passes over the same spans
// select the same segments
func TestExtractor_Deterministic(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	spans := makeSpans(80)

	run := func() *domain.ExtractionResult {
		extractor, err := NewExtractor(cfg, &mockEmbedder{dims: 4}, nil)
		require.NoError(t, err)
		result, err := extractor.Extract(context.Background(), "doc-1", spans, domain.ContentNarrative)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	assert.NotEqual(t, first.PassID, second.PassID)
	assert.Equal(t, first.TopBySalience, second.TopBySalience)
	assert.Equal(t, first.Fallback, second.Fallback)
}

// TestExtractor_HeuristicOnlyWithoutEmbedder tests degradation to
// heuristic scoring when no embedding service is configured
func TestExtractor_HeuristicOnlyWithoutEmbedder(t *testing.T) {
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), nil, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", makeSpans(30), domain.ContentUnknown)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionHeuristicOnly, result.Status)
	assert.Nil(t, result.Centroid)
	assert.Zero(t, result.Scores.EmbeddedCount())
	assert.NotEmpty(t, result.TopBySalience)
	assert.NotEmpty(t, result.Fallback)
}

// TestExtractor_AbsorbsEmbeddingFailures tests that individual embedding
// failures leave the segment citable instead of failing the pass
func TestExtractor_AbsorbsEmbeddingFailures(t *testing.T) {
	embedder := &mockEmbedder{dims: 4, failOn: "Paragraph 3 "}
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), embedder, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", makeSpans(20), domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionOK, result.Status)
	assert.Len(t, result.Segments, 20)
	assert.Equal(t, 19, result.Scores.EmbeddedCount())

	// The failed segment still ranks via heuristics.
	assert.False(t, result.Scores.At(3).HasEmbedding())
	assert.Greater(t, result.Scores.At(3).Salience, 0.0)
}

// TestExtractor_AllEmbeddingsFail tests the degenerate centroid path
func TestExtractor_AllEmbeddingsFail(t *testing.T) {
	embedder := &mockEmbedder{dims: 4, failOn: "Paragraph"}
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), embedder, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", makeSpans(25), domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionHeuristicOnly, result.Status)
	assert.Nil(t, result.Centroid)
	assert.NotEmpty(t, result.TopBySalience)
}

// TestExtractor_CacheAvoidsReEmbedding tests that a second pass over
// unchanged text serves every embedding from the cache
func TestExtractor_CacheAvoidsReEmbedding(t *testing.T) {
	embedder := &mockEmbedder{dims: 4}
	cache := newMockCache()
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), embedder, cache)
	require.NoError(t, err)

	spans := makeSpans(40)
	ctx := context.Background()

	_, err = extractor.Extract(ctx, "doc-1", spans, domain.ContentExpository)
	require.NoError(t, err)
	firstCalls := embedder.callCount()
	assert.Equal(t, 40, firstCalls)
	assert.Equal(t, 40, cache.puts)

	result, err := extractor.Extract(ctx, "doc-1", spans, domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, firstCalls, embedder.callCount(), "second pass should not call the embedder")
	assert.Equal(t, 40, result.Scores.EmbeddedCount())
}

// TestExtractor_PreFilterCapsEmbeddedSegments tests that large documents
// are reduced to the embedding cap with original indices preserved
func TestExtractor_PreFilterCapsEmbeddedSegments(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	cfg.MaxSegmentsToEmbed = 50
	cfg.PreFilterSampleSize = 20

	extractor, err := NewExtractor(cfg, &mockEmbedder{dims: 4}, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", makeSpans(300), domain.ContentExpository)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Segments), cfg.MaxSegmentsToEmbed)
	assert.NotEmpty(t, result.Segments)

	// Survivors keep their parse-order index, so citations refer to the
	// same text regardless of the embedding cap.
	for i := 1; i < len(result.Segments); i++ {
		assert.Greater(t, result.Segments[i].Index, result.Segments[i-1].Index)
	}
	for _, seg := range result.Segments {
		assert.Equal(t, fmt.Sprintf("doc-1:S%04d", seg.Index), seg.ID)
	}
}

// TestExtractor_CitationStableAcrossEmbedCap tests that changing the
// embedding cap never changes a surviving segment's citation
func TestExtractor_CitationStableAcrossEmbedCap(t *testing.T) {
	spans := makeSpans(250)

	citations := func(embedCap int) map[int]string {
		cfg := domain.DefaultExtractionConfig()
		cfg.MaxSegmentsToEmbed = embedCap
		extractor, err := NewExtractor(cfg, &mockEmbedder{dims: 4}, nil)
		require.NoError(t, err)

		result, err := extractor.Extract(context.Background(), "doc-1", spans, domain.ContentExpository)
		require.NoError(t, err)

		out := make(map[int]string)
		for i := range result.Segments {
			out[result.Segments[i].Index] = result.Segments[i].Citation()
		}
		return out
	}

	small := citations(60)
	large := citations(200)

	for idx, citation := range small {
		if other, ok := large[idx]; ok {
			assert.Equal(t, citation, other)
		}
	}
}

// TestExtractor_Cancellation tests that a cancelled context aborts the
// pass with an error
func TestExtractor_Cancellation(t *testing.T) {
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), &mockEmbedder{dims: 4}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = extractor.Extract(ctx, "doc-1", makeSpans(50), domain.ContentExpository)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestExtractor_DropsDimensionMismatch tests that embeddings with the
// wrong dimensionality are discarded rather than polluting the centroid
func TestExtractor_DropsDimensionMismatch(t *testing.T) {
	embedder := &shortEmbedder{mockEmbedder{dims: 8}}
	extractor, err := NewExtractor(domain.DefaultExtractionConfig(), embedder, nil)
	require.NoError(t, err)

	result, err := extractor.Extract(context.Background(), "doc-1", makeSpans(15), domain.ContentExpository)
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionHeuristicOnly, result.Status)
	assert.Zero(t, result.Scores.EmbeddedCount())
}

// shortEmbedder reports 8 dimensions but returns 4-dimensional vectors.
type shortEmbedder struct {
	mockEmbedder
}

func (s *shortEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if _, err := s.mockEmbedder.Embed(ctx, text); err != nil {
		return nil, err
	}
	return textEmbedding(text, 4), nil
}
