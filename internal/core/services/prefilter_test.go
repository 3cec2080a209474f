package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

func largeCorpus(t *testing.T, n int) []domain.Segment {
	t.Helper()

	segments := make([]domain.Segment, n)
	for i := 0; i < n; i++ {
		segments[i] = domain.NewSegment("doc-large", i, domain.Span{
			Type: domain.SegmentSentence,
			Text: fmt.Sprintf("sentence %d %s", i, strings.Repeat("filler ", 8)),
		})
	}
	return segments
}

// TestPreFilter_Applies tests the trigger threshold
func TestPreFilter_Applies(t *testing.T) {
	cfg := domain.DefaultExtractionConfig() // MaxSegmentsToEmbed 200
	p := NewPreFilter(cfg)

	assert.False(t, p.Applies(200))
	assert.True(t, p.Applies(201))
	assert.False(t, p.Applies(0))
}

// TestPreFilter_SampleDeterministic tests fixed seeding from the document ID
func TestPreFilter_SampleDeterministic(t *testing.T) {
	p := NewPreFilter(domain.DefaultExtractionConfig())

	first := p.SampleIndices("doc-a", 1000)
	second := p.SampleIndices("doc-a", 1000)
	other := p.SampleIndices("doc-b", 1000)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other, "different documents should sample differently")
}

// TestPreFilter_SampleStratified tests even spread across document order
func TestPreFilter_SampleStratified(t *testing.T) {
	cfg := domain.DefaultExtractionConfig() // sample size 60
	p := NewPreFilter(cfg)

	indices := p.SampleIndices("doc-a", 1200)
	require.LessOrEqual(t, len(indices), cfg.PreFilterSampleSize)
	require.NotEmpty(t, indices)

	// Monotonic and within one stratum (1200/60 = 20) of the ideal spread.
	assert.True(t, sort.IntsAreSorted(indices))
	for i, idx := range indices {
		lo := i * 20
		assert.GreaterOrEqual(t, idx, lo)
		assert.Less(t, idx, lo+20)
	}
}

// TestPreFilter_SampleUniqueIndices tests that colliding stratum draws
// are dropped instead of duplicated when strata clamp to single positions
func TestPreFilter_SampleUniqueIndices(t *testing.T) {
	cfg := domain.DefaultExtractionConfig() // sample size 60
	p := NewPreFilter(cfg)

	// 61 segments over 60 strata forces single-position strata that can
	// collide with their neighbours.
	indices := p.SampleIndices("doc-a", 61)
	require.NotEmpty(t, indices)
	assert.LessOrEqual(t, len(indices), cfg.PreFilterSampleSize)

	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		assert.False(t, seen[idx], "index %d sampled twice", idx)
		seen[idx] = true
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 61)
	}
}

// TestPreFilter_SampleSmallDocument tests that small inputs are returned whole
func TestPreFilter_SampleSmallDocument(t *testing.T) {
	p := NewPreFilter(domain.DefaultExtractionConfig())

	indices := p.SampleIndices("doc-a", 10)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, indices)
}

// TestPreFilter_ReduceBounds tests that exactly MaxSegmentsToEmbed survive
func TestPreFilter_ReduceBounds(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	p := NewPreFilter(cfg)
	segments := largeCorpus(t, 500)

	sample := map[int][]float32{
		10:  {1, 0},
		250: {0.9, 0.1},
		490: {0.8, 0.2},
	}

	kept, err := p.Reduce(context.Background(), "doc-large", segments, sample, domain.ContentUnknown)
	require.NoError(t, err)

	assert.Len(t, kept, cfg.MaxSegmentsToEmbed)
	assert.True(t, sort.IntsAreSorted(kept), "survivors must stay in document order")
}

// TestPreFilter_ReduceSmallPassthrough tests that small documents skip filtering
func TestPreFilter_ReduceSmallPassthrough(t *testing.T) {
	p := NewPreFilter(domain.DefaultExtractionConfig())
	segments := largeCorpus(t, 50)

	kept, err := p.Reduce(context.Background(), "doc-large", segments, nil, domain.ContentUnknown)
	require.NoError(t, err)
	assert.Len(t, kept, 50)
}

// TestPreFilter_HeuristicsOnly tests reduction with no sample embeddings
func TestPreFilter_HeuristicsOnly(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	p := NewPreFilter(cfg)
	segments := largeCorpus(t, 300)

	kept, err := p.Reduce(context.Background(), "doc-large", segments, nil, domain.ContentExpository)
	require.NoError(t, err)
	assert.Len(t, kept, cfg.MaxSegmentsToEmbed)
}

// TestPreFilter_KeepsSubstantialSegments tests recall for clearly salient
// segments: long, heading-flagged, front-of-document content beats noise
func TestPreFilter_KeepsSubstantialSegments(t *testing.T) {
	cfg := domain.DefaultExtractionConfig()
	p := NewPreFilter(cfg)

	n := 500
	segments := make([]domain.Segment, n)
	for i := 0; i < n; i++ {
		text := "x" // fragment noise
		segType := domain.SegmentSentence
		if i%10 == 0 {
			text = strings.Repeat("substantial content ", 5)
		}
		if i == 0 {
			segType = domain.SegmentHeading
			text = "Document Title"
		}
		segments[i] = domain.NewSegment("doc-large", i, domain.Span{
			Type:         segType,
			Text:         text,
			HeadingLevel: 1,
		})
	}

	kept, err := p.Reduce(context.Background(), "doc-large", segments, nil, domain.ContentExpository)
	require.NoError(t, err)

	keptSet := make(map[int]bool, len(kept))
	for _, idx := range kept {
		keptSet[idx] = true
	}

	assert.True(t, keptSet[0], "title should survive")
	for i := 10; i < n; i += 10 {
		assert.True(t, keptSet[i], "substantial segment %d should survive", i)
	}
}

// TestPreFilter_Deterministic tests repeatable reduction
func TestPreFilter_Deterministic(t *testing.T) {
	p := NewPreFilter(domain.DefaultExtractionConfig())
	segments := largeCorpus(t, 400)
	sample := map[int][]float32{5: {1, 0}, 200: {0, 1}, 399: {0.5, 0.5}}

	first, err := p.Reduce(context.Background(), "doc-large", segments, sample, domain.ContentUnknown)
	require.NoError(t, err)
	second, err := p.Reduce(context.Background(), "doc-large", segments, sample, domain.ContentUnknown)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestPreFilter_Cancellation tests abort between segments
func TestPreFilter_Cancellation(t *testing.T) {
	p := NewPreFilter(domain.DefaultExtractionConfig())
	segments := largeCorpus(t, 300)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Reduce(ctx, "doc-large", segments, nil, domain.ContentUnknown)
	assert.ErrorIs(t, err, context.Canceled)
}
