package services

import (
	"sort"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// SalienceScorer assigns each segment a query-independent importance score
// in [0,1]: semantic closeness to the document centroid, a length-quality
// ramp, structural boosts for headings, and the position weight, multiplied
// together and normalised across the document.
type SalienceScorer struct {
	cfg      domain.ExtractionConfig
	weighter *PositionWeighter
}

// NewSalienceScorer creates a salience scorer from the extraction
// configuration.
func NewSalienceScorer(cfg domain.ExtractionConfig) *SalienceScorer {
	return &SalienceScorer{
		cfg:      cfg,
		weighter: NewPositionWeighter(cfg),
	}
}

// Score populates salience, position weight and length quality in the
// score set for every segment. When centroid is nil (no segment embedded),
// scoring falls back to heuristics only: length, position and structure.
//
// totalSegments is the document's original segment count. Segment indices
// span the original document order even after pre-filtering, so position
// fractions are computed against that total, not the survivor count.
func (s *SalienceScorer) Score(
	segments []domain.Segment,
	scores *domain.ScoreSet,
	centroid []float32,
	totalSegments int,
	contentType domain.ContentType,
) {
	if len(segments) == 0 {
		return
	}

	titleIndex := documentTitleIndex(segments)
	raw := make([]float64, len(segments))
	similarities := s.centroidSimilarities(segments, scores, centroid)

	for i := range segments {
		seg := segments[i]
		entry := scores.At(seg.Index)

		lengthQuality := s.LengthQuality(seg.Length())
		positionWeight := s.weighter.Weight(seg.Index, totalSegments, contentType)

		boost := 1.0
		if seg.IsHeading() {
			boost = s.cfg.HeadingBoost
			if seg.Index == titleIndex {
				boost = s.cfg.DocumentTitleBoost
			}
		}

		entry.LengthQuality = lengthQuality
		entry.PositionWeight = positionWeight
		scores.Set(seg.Index, entry)

		raw[i] = similarities[i] * lengthQuality * positionWeight * boost
	}

	normalise(raw)

	for i := range segments {
		scores.SetSalience(segments[i].Index, raw[i])
	}
}

// centroidSimilarities returns the per-segment semantic closeness factor.
// With no centroid every segment gets the neutral 1.0. With a centroid,
// embedded segments get their clamped cosine similarity and segments whose
// embedding failed are capped at the best observed similarity, so a failed
// embedding never outranks an embedded segment on the semantic factor.
func (s *SalienceScorer) centroidSimilarities(
	segments []domain.Segment,
	scores *domain.ScoreSet,
	centroid []float32,
) []float64 {
	similarities := make([]float64, len(segments))

	if centroid == nil {
		for i := range similarities {
			similarities[i] = 1.0
		}
		return similarities
	}

	maxSim := 0.0
	var unembedded []int
	for i := range segments {
		entry := scores.At(segments[i].Index)
		if !entry.HasEmbedding() {
			unembedded = append(unembedded, i)
			continue
		}
		sim := domain.CosineSimilarity(entry.Embedding, centroid)
		if sim < 0 {
			sim = 0
		}
		similarities[i] = sim
		if sim > maxSim {
			maxSim = sim
		}
	}

	for _, i := range unembedded {
		similarities[i] = maxSim
	}
	return similarities
}

// LengthQuality computes the clamped linear length ramp: segments shorter
// than IdealMinLength are penalised down to the configured floor, segments
// inside [IdealMinLength, IdealMaxLength] get full credit, and longer
// segments accrue no extra bonus.
func (s *SalienceScorer) LengthQuality(length int) float64 {
	if length <= 0 {
		return s.cfg.MinLengthQualityScore
	}
	if length >= s.cfg.IdealMinLength {
		return 1.0
	}

	floor := s.cfg.MinLengthQualityScore
	ramp := float64(length) / float64(s.cfg.IdealMinLength)
	return floor + (1.0-floor)*ramp
}

// documentTitleIndex returns the index of the first top-level heading, or
// -1 when the document has none.
func documentTitleIndex(segments []domain.Segment) int {
	for i := range segments {
		if segments[i].Type == domain.SegmentHeading && segments[i].HeadingLevel == 1 {
			return segments[i].Index
		}
	}
	return -1
}

// normalise rescales raw scores into [0,1] with min-max normalisation.
// A flat score distribution maps everything to 1.0 so single-segment and
// uniform documents keep a meaningful score.
func normalise(raw []float64) {
	if len(raw) == 0 {
		return
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range raw {
			raw[i] = 1.0
		}
		return
	}

	span := hi - lo
	for i := range raw {
		raw[i] = (raw[i] - lo) / span
	}
}

// rankBySalience returns segment indices ordered by descending salience,
// ties broken by document order (earlier segment wins). This ordering is
// the deterministic backbone for the fallback bucket and the salience
// ranking used in fusion.
func rankBySalience(segments []domain.Segment, scores *domain.ScoreSet) []int {
	indices := make([]int, len(segments))
	for i := range segments {
		indices[i] = segments[i].Index
	}

	sort.SliceStable(indices, func(a, b int) bool {
		sa := scores.At(indices[a]).Salience
		sb := scores.At(indices[b]).Salience
		if sa != sb {
			return sa > sb
		}
		return indices[a] < indices[b]
	})

	return indices
}
