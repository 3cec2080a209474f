package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// DiversitySelector extracts a bounded, non-redundant subset of scored
// segments with Maximal Marginal Relevance: at each step it picks the
// candidate maximising λ·relevance − (1−λ)·max-similarity-to-selected.
//
// Very long documents are partitioned into batches which are reduced
// locally before a second, global MMR pass over the survivors. This
// bounds the otherwise quadratic cost at a small recall loss at batch
// boundaries.
type DiversitySelector struct {
	cfg domain.ExtractionConfig
}

// NewDiversitySelector creates a diversity selector from the extraction
// configuration.
func NewDiversitySelector(cfg domain.ExtractionConfig) *DiversitySelector {
	return &DiversitySelector{cfg: cfg}
}

// TargetSize computes the diversity-selected subset size for a document:
// the extraction ratio applied to the segment count, clamped to the
// configured floor and ceiling. Never larger than the segment count.
func (d *DiversitySelector) TargetSize(segmentCount int) int {
	target := int(d.cfg.ExtractionRatio * float64(segmentCount))
	if target < d.cfg.MinSegments {
		target = d.cfg.MinSegments
	}
	if target > d.cfg.MaxSegments {
		target = d.cfg.MaxSegments
	}
	if target > segmentCount {
		target = segmentCount
	}
	return target
}

// Select returns the indices of the diversity-selected top segments,
// ordered by descending salience with document-order tie-break.
//
// Only embedded segments participate in MMR; when no segment carries an
// embedding the selector degrades to a plain top-N by salience. The
// selection is deterministic for a fixed input order.
func (d *DiversitySelector) Select(
	ctx context.Context,
	segments []domain.Segment,
	scores *domain.ScoreSet,
) ([]int, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	target := d.TargetSize(len(segments))

	candidates := make([]int, 0, len(segments))
	for i := range segments {
		if scores.At(segments[i].Index).HasEmbedding() {
			candidates = append(candidates, segments[i].Index)
		}
	}

	if len(candidates) == 0 {
		// Heuristic-only pass: no similarity measure, fall back to
		// salience ranking.
		ranked := rankBySalience(segments, scores)
		if len(ranked) > target {
			ranked = ranked[:target]
		}
		return ranked, nil
	}

	var selected []int
	var err error
	if len(candidates) > d.cfg.MaxBatchSize {
		selected, err = d.selectHierarchical(ctx, candidates, scores, target)
	} else {
		selected, err = d.selectMMR(ctx, candidates, scores, target)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(selected, func(a, b int) bool {
		sa := scores.At(selected[a]).Salience
		sb := scores.At(selected[b]).Salience
		if sa != sb {
			return sa > sb
		}
		return selected[a] < selected[b]
	})

	return selected, nil
}

// selectMMR runs one iterative MMR pass over the candidate indices.
func (d *DiversitySelector) selectMMR(
	ctx context.Context,
	candidates []int,
	scores *domain.ScoreSet,
	target int,
) ([]int, error) {
	if target > len(candidates) {
		target = len(candidates)
	}

	lambda := d.cfg.MmrLambda
	remaining := make([]int, len(candidates))
	copy(remaining, candidates)
	selected := make([]int, 0, target)

	for len(selected) < target && len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bestPos := -1
		bestScore := 0.0

		for pos, idx := range remaining {
			relevance := scores.At(idx).Salience

			maxSim := 0.0
			for _, sel := range selected {
				sim := domain.CosineSimilarity(scores.At(idx).Embedding, scores.At(sel).Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}

			mmr := lambda*relevance - (1-lambda)*maxSim

			// Strict comparison keeps the earliest candidate on ties,
			// which keeps selection deterministic.
			if bestPos == -1 || mmr > bestScore {
				bestPos = pos
				bestScore = mmr
			}
		}

		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected, nil
}

// selectHierarchical partitions candidates into document-order batches,
// reduces each batch locally, then re-ranks the survivors globally.
// Local targets oversample by 2x to limit recall loss at batch boundaries.
func (d *DiversitySelector) selectHierarchical(
	ctx context.Context,
	candidates []int,
	scores *domain.ScoreSet,
	target int,
) ([]int, error) {
	total := len(candidates)
	var survivors []int

	for start := 0; start < total; start += d.cfg.MaxBatchSize {
		end := start + d.cfg.MaxBatchSize
		if end > total {
			end = total
		}
		batch := candidates[start:end]

		localTarget := 2 * target * len(batch) / total
		if localTarget < 1 {
			localTarget = 1
		}
		if localTarget > len(batch) {
			localTarget = len(batch)
		}

		local, err := d.selectMMR(ctx, batch, scores, localTarget)
		if err != nil {
			return nil, err
		}
		survivors = append(survivors, local...)
	}

	return d.selectMMR(ctx, survivors, scores, target)
}
