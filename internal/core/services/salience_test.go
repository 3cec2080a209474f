package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// makeSegments builds sentence segments from texts, in document order.
func makeSegments(t *testing.T, texts ...string) []domain.Segment {
	t.Helper()

	segments := make([]domain.Segment, len(texts))
	offset := 0
	for i, text := range texts {
		span := domain.Span{
			Type:      domain.SegmentSentence,
			Text:      text,
			CharStart: offset,
			CharEnd:   offset + len(text),
		}
		segments[i] = domain.NewSegment("doc-1", i, span)
		offset += len(text) + 1
	}
	return segments
}

// TestSalienceScorer_CentroidSimilarityOrders tests that segments closer to
// the centroid score higher, all else equal
func TestSalienceScorer_CentroidSimilarityOrders(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	// Segments 1 and 2 both fall in the body band with equal length, so
	// only centroid similarity separates them.
	segments := makeSegments(t, body, body, body)
	scores := domain.NewScoreSet(len(segments))
	scores.SetEmbedding(0, []float32{1, 0})
	scores.SetEmbedding(1, []float32{1, 0.2})
	scores.SetEmbedding(2, []float32{0, 1})

	centroid := []float32{1, 0}
	scorer.Score(segments, scores, centroid, len(segments), domain.ContentUnknown)

	// Segment 1 is nearly aligned with the centroid, segment 2 orthogonal.
	assert.Greater(t, scores.At(1).Salience, scores.At(2).Salience)
}

// TestSalienceScorer_PositionUsesDocumentTotal tests that pre-filtered
// survivors keep their position band from the original document, not
// from the shrunken survivor list
func TestSalienceScorer_PositionUsesDocumentTotal(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	// Three survivors of a 200-segment document.
	indices := []int{10, 100, 180}
	segments := make([]domain.Segment, len(indices))
	for i, idx := range indices {
		segments[i] = domain.NewSegment("doc-1", idx, domain.Span{
			Type: domain.SegmentSentence,
			Text: body,
		})
	}
	scores := domain.NewScoreSet(200)

	scorer.Score(segments, scores, nil, 200, domain.ContentExpository)

	// 10/200 is introduction, 100/200 body, 180/200 conclusion.
	assert.Equal(t, cfg.Expository.IntroWeight, scores.At(10).PositionWeight)
	assert.Equal(t, 1.0, scores.At(100).PositionWeight)
	assert.Equal(t, cfg.Expository.ConclusionWeight, scores.At(180).PositionWeight)
}

// TestSalienceScorer_FailedEmbeddingCapped tests that a segment whose
// embedding failed cannot beat the best embedded segment on the semantic
// factor alone
func TestSalienceScorer_FailedEmbeddingCapped(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	// Segments 1 to 3 all fall in the body band with equal length.
	segments := makeSegments(t, body, body, body, body, body)
	scores := domain.NewScoreSet(len(segments))
	centroid := []float32{1, 0}
	scores.SetEmbedding(1, []float32{1, 0.1}) // near-aligned
	scores.SetEmbedding(3, []float32{0, 1})   // orthogonal
	// Segment 2 failed to embed.

	scorer.Score(segments, scores, centroid, len(segments), domain.ContentUnknown)

	assert.LessOrEqual(t, scores.At(2).Salience, scores.At(1).Salience)
	assert.Greater(t, scores.At(2).Salience, scores.At(3).Salience)
}

// TestSalienceScorer_LengthQualityRamp tests the clamped linear ramp
func TestSalienceScorer_LengthQualityRamp(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	cfg.IdealMinLength = 100
	cfg.IdealMaxLength = 400
	cfg.MinLengthQualityScore = 0.3
	scorer := NewSalienceScorer(cfg)

	assert.Equal(t, 0.3, scorer.LengthQuality(0))
	assert.InDelta(t, 0.65, scorer.LengthQuality(50), 1e-9)
	assert.Equal(t, 1.0, scorer.LengthQuality(100))
	assert.Equal(t, 1.0, scorer.LengthQuality(250))
	// No extra bonus past the ideal range.
	assert.Equal(t, 1.0, scorer.LengthQuality(10000))
}

// TestSalienceScorer_LengthMonotonicity tests that a segment closer to the
// ideal range never scores lower than a shorter one
func TestSalienceScorer_LengthMonotonicity(t *testing.T) {
	scorer := NewSalienceScorer(domain.DefaultExtractionConfig())

	prev := 0.0
	for length := 0; length <= 500; length += 10 {
		q := scorer.LengthQuality(length)
		assert.GreaterOrEqual(t, q, prev, "length %d", length)
		prev = q
	}
}

// TestSalienceScorer_HeadingBoosts tests heading and title boosts
func TestSalienceScorer_HeadingBoosts(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	long := strings.Repeat("word ", 30)
	spans := []domain.Span{
		{Type: domain.SegmentHeading, Text: "Report Title", HeadingLevel: 1},
		{Type: domain.SegmentHeading, Text: "Some Section", HeadingLevel: 2},
		{Type: domain.SegmentSentence, Text: long},
	}
	segments := make([]domain.Segment, len(spans))
	for i, span := range spans {
		segments[i] = domain.NewSegment("doc-1", i, span)
	}
	scores := domain.NewScoreSet(len(segments))

	// Heuristic-only pass: no centroid keeps similarity out of the product.
	scorer.Score(segments, scores, nil, len(segments), domain.ContentUnknown)

	// The document title gets the larger boost.
	assert.Greater(t, scores.At(0).Salience, scores.At(1).Salience)
}

// TestSalienceScorer_HeuristicFallback tests scoring without any embeddings
func TestSalienceScorer_HeuristicFallback(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	segments := makeSegments(t, body, "tiny", body)
	scores := domain.NewScoreSet(len(segments))

	scorer.Score(segments, scores, nil, len(segments), domain.ContentUnknown)

	for i := range segments {
		salience := scores.At(i).Salience
		assert.GreaterOrEqual(t, salience, 0.0)
		assert.LessOrEqual(t, salience, 1.0)
	}
	// The fragment-length segment is penalised.
	assert.Less(t, scores.At(1).Salience, scores.At(2).Salience)
}

// TestSalienceScorer_Normalisation tests that scores span [0,1]
func TestSalienceScorer_Normalisation(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	segments := makeSegments(t, body, body, body, body, "y")
	scores := domain.NewScoreSet(len(segments))
	for i := range segments {
		scores.SetEmbedding(i, []float32{float32(i), 1})
	}

	scorer.Score(segments, scores, []float32{1, 0}, len(segments), domain.ContentExpository)

	lo, hi := 1.0, 0.0
	for i := range segments {
		s := scores.At(i).Salience
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

// TestSalienceScorer_Deterministic tests byte-identical repeat scoring
func TestSalienceScorer_Deterministic(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	scorer := NewSalienceScorer(cfg)

	body := strings.Repeat("x", cfg.IdealMinLength)
	segments := makeSegments(t, body, "short", body, body)

	run := func() []float64 {
		scores := domain.NewScoreSet(len(segments))
		for i := range segments {
			scores.SetEmbedding(i, []float32{float32(i%2) + 1, 1})
		}
		scorer.Score(segments, scores, []float32{1, 1}, len(segments), domain.ContentExpository)
		out := make([]float64, len(segments))
		for i := range segments {
			out[i] = scores.At(i).Salience
		}
		return out
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
}

// TestRankBySalience_TieBreak tests that ties break by document order
func TestRankBySalience_TieBreak(t *testing.T) {
	segments := makeSegments(t, "a", "b", "c")
	scores := domain.NewScoreSet(3)
	scores.SetSalience(0, 0.5)
	scores.SetSalience(1, 0.9)
	scores.SetSalience(2, 0.5)

	ranked := rankBySalience(segments, scores)
	assert.Equal(t, []int{1, 0, 2}, ranked)
}
