package services

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// PreFilter reduces the segment count of large documents before the
// expensive embedding step. A stratified sample is embedded to build a
// provisional centroid; every segment is then scored with a blend of
// cheap heuristics and a lexical proxy for semantic closeness, and only
// the provisional top segments go on to full embedding.
//
// The contract is high recall for eventually-salient segments, not exact
// top-K.
type PreFilter struct {
	cfg      domain.ExtractionConfig
	scorer   *SalienceScorer
	weighter *PositionWeighter
}

// NewPreFilter creates a pre-filter from the extraction configuration.
func NewPreFilter(cfg domain.ExtractionConfig) *PreFilter {
	return &PreFilter{
		cfg:      cfg,
		scorer:   NewSalienceScorer(cfg),
		weighter: NewPositionWeighter(cfg),
	}
}

// Applies reports whether the document is large enough to pre-filter.
func (p *PreFilter) Applies(segmentCount int) bool {
	return segmentCount > p.cfg.MaxSegmentsToEmbed
}

// SampleIndices draws the stratified sample: up to PreFilterSampleSize
// unique indices spread evenly across document order, with the in-stratum
// position drawn from a generator seeded by the document ID. Rankings stay
// reproducible across runs because the seed never involves the wall clock.
//
// A stratum clamped to a single position can collide with its neighbour's
// draw; colliding draws are dropped rather than re-drawn, so the sample
// may come up slightly short of PreFilterSampleSize.
func (p *PreFilter) SampleIndices(documentID string, segmentCount int) []int {
	size := p.cfg.PreFilterSampleSize
	if size >= segmentCount {
		indices := make([]int, segmentCount)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	rng := rand.New(rand.NewSource(seedFor(documentID)))
	stride := float64(segmentCount) / float64(size)

	indices := make([]int, 0, size)
	seen := make(map[int]bool, size)
	for i := 0; i < size; i++ {
		lo := int(float64(i) * stride)
		hi := int(float64(i+1) * stride)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > segmentCount {
			hi = segmentCount
		}

		idx := lo + rng.Intn(hi-lo)
		if !seen[idx] {
			seen[idx] = true
			indices = append(indices, idx)
		}
	}

	return indices
}

// Reduce scores every segment with the provisional blend and returns the
// indices kept for full embedding, in document order.
//
// sampleEmbeddings maps sampled segment indices to their embeddings; nil
// entries (failed embeddings) are tolerated. With no usable sample the
// provisional score degrades to heuristics only.
func (p *PreFilter) Reduce(
	ctx context.Context,
	documentID string,
	segments []domain.Segment,
	sampleEmbeddings map[int][]float32,
	contentType domain.ContentType,
) ([]int, error) {
	n := len(segments)
	if !p.Applies(n) {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	centroid := provisionalCentroid(sampleEmbeddings)
	anchor := p.centralSampleText(segments, sampleEmbeddings, centroid)

	type provisional struct {
		index int
		score float64
	}

	heuristics := make([]float64, n)
	semantics := make([]float64, n)
	for i := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seg := segments[i]
		heuristic := p.scorer.LengthQuality(seg.Length()) *
			p.weighter.Weight(seg.Index, n, contentType)
		if seg.IsHeading() {
			heuristic *= p.cfg.HeadingBoost
		}
		heuristics[i] = heuristic

		switch {
		case centroid != nil && sampleEmbeddings[seg.Index] != nil:
			sim := domain.CosineSimilarity(sampleEmbeddings[seg.Index], centroid)
			if sim < 0 {
				sim = 0
			}
			semantics[i] = sim
		case anchor != "":
			semantics[i] = float64(edlib.CosineSimilarity(seg.Text, anchor, 2))
		}
	}

	normalise(heuristics)

	weight := p.cfg.PreFilterSemanticWeight
	if centroid == nil && anchor == "" {
		weight = 0
	}

	scored := make([]provisional, n)
	for i := range segments {
		scored[i] = provisional{
			index: segments[i].Index,
			score: weight*semantics[i] + (1-weight)*heuristics[i],
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].score != scored[b].score {
			return scored[a].score > scored[b].score
		}
		return scored[a].index < scored[b].index
	})

	keep := scored[:p.cfg.MaxSegmentsToEmbed]
	kept := make([]int, len(keep))
	for i := range keep {
		kept[i] = keep[i].index
	}
	sort.Ints(kept)

	return kept, nil
}

// centralSampleText concatenates the sampled segments closest to the
// provisional centroid into a lexical anchor for the n-gram proxy score.
func (p *PreFilter) centralSampleText(
	segments []domain.Segment,
	sampleEmbeddings map[int][]float32,
	centroid []float32,
) string {
	type central struct {
		index int
		sim   float64
	}

	var candidates []central
	for idx, embedding := range sampleEmbeddings {
		if idx < 0 || idx >= len(segments) {
			continue
		}
		sim := 1.0
		if centroid != nil && embedding != nil {
			sim = domain.CosineSimilarity(embedding, centroid)
		}
		candidates = append(candidates, central{index: idx, sim: sim})
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].sim != candidates[b].sim {
			return candidates[a].sim > candidates[b].sim
		}
		return candidates[a].index < candidates[b].index
	})

	// The top half of the sample carries the document's central meaning.
	keep := (len(candidates) + 1) / 2
	texts := make([]string, 0, keep)
	for _, c := range candidates[:keep] {
		texts = append(texts, segments[c.index].Text)
	}
	return strings.Join(texts, " ")
}

// provisionalCentroid builds the centroid over the sample embeddings.
func provisionalCentroid(sampleEmbeddings map[int][]float32) []float32 {
	if len(sampleEmbeddings) == 0 {
		return nil
	}

	// Deterministic iteration: collect in index order.
	indices := make([]int, 0, len(sampleEmbeddings))
	for idx := range sampleEmbeddings {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	vectors := make([][]float32, 0, len(indices))
	for _, idx := range indices {
		vectors = append(vectors, sampleEmbeddings[idx])
	}
	return domain.Centroid(vectors)
}

// seedFor derives the fixed sampling seed from a document ID.
func seedFor(documentID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(documentID))
	return int64(h.Sum64())
}
