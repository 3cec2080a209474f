package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/skim-cli/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever fuses lexical, dense and salience rankings over an extraction
// result into one final ranked list, sized by the adaptive budget.
//
// The retriever never mutates the extraction result: query-time scores
// live in a pass-local score table, so concurrent queries against the
// same result are safe.
type Retriever struct {
	cfg      domain.RetrievalConfig
	embedder driven.EmbeddingService
	budget   *BudgetController
}

// NewRetriever creates the retrieval service. The embedder is optional:
// without one, dense ranking is skipped and fusion runs over lexical and
// salience signals only.
func NewRetriever(cfg domain.RetrievalConfig, embedder driven.EmbeddingService) (*Retriever, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		budget:   NewBudgetController(cfg),
	}, nil
}

// Retrieve produces the final ranked segment list for the query.
//
// An empty query degenerates to pure salience ranking. The fallback
// bucket is always represented in the output regardless of query match;
// when a query matches nothing at all, the output is exactly the
// fallback segments.
func (r *Retriever) Retrieve(
	ctx context.Context,
	result *domain.ExtractionResult,
	query string,
) ([]domain.RankedSegment, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil extraction result", domain.ErrInvalidInput)
	}
	if result.IsEmpty() {
		return nil, nil
	}

	logger.Section("Retrieval")

	scores := r.passScores(result)
	topK := r.budget.TopK(len(result.Segments), result.ContentType)
	query = strings.TrimSpace(query)

	if query == "" {
		logger.Debug("No query, ranking %d segments by salience", len(result.Segments))
		ranked := rankBySalience(result.Segments, scores)
		for _, idx := range ranked {
			entry := scores.At(idx)
			entry.RetrievalScore = entry.Salience
			scores.Set(idx, entry)
		}
		return r.assemble(result, scores, ranked, topK), nil
	}

	logger.Debug("Query: %q, fusion: %s, topK: %d", query, r.cfg.Fusion, topK)

	dense, err := r.denseSimilarities(ctx, result, scores, query)
	if err != nil {
		return nil, err
	}

	var fused []int
	switch r.cfg.Fusion {
	case domain.FusionWeightedBlend:
		fused = r.fuseWeightedBlend(result, scores)
	default:
		fused = r.fuseRRF(result, scores, query, dense)
	}

	if len(fused) == 0 {
		logger.Info("Query matched no segment, returning fallback bucket only")
		return r.fallbackOnly(result, scores), nil
	}

	return r.assemble(result, scores, fused, topK), nil
}

// passScores copies the extraction scores into a table owned by this
// retrieval pass, so query-time fields never leak into the result.
func (r *Retriever) passScores(result *domain.ExtractionResult) *domain.ScoreSet {
	scores := domain.NewScoreSet(result.Scores.Len())
	for i := range result.Segments {
		idx := result.Segments[i].Index
		scores.Set(idx, result.Scores.At(idx))
	}
	return scores
}

// denseSimilarities embeds the query and stores per-segment query
// similarity in the pass score table. Returns false when dense ranking
// is unavailable (no embedder, embedding failure, or no embedded
// segments); only cancellation is a hard error.
func (r *Retriever) denseSimilarities(
	ctx context.Context,
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
	query string,
) (bool, error) {
	if r.embedder == nil || scores.EmbeddedCount() == 0 {
		return false, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logger.Warn("Query embedding failed, skipping dense ranking: %v", err)
		return false, nil
	}

	for i := range result.Segments {
		idx := result.Segments[i].Index
		entry := scores.At(idx)
		if !entry.HasEmbedding() {
			continue
		}
		entry.QuerySimilarity = domain.CosineSimilarity(queryVec, entry.Embedding)
		scores.Set(idx, entry)
	}
	return true, nil
}

// fuseRRF combines lexical, dense and salience rankings with weighted
// Reciprocal Rank Fusion: each ranking contributes weight/(k+rank+1) per
// segment. Scale-invariant, so the heterogeneous scores need no
// normalisation. Returns segment indices in fused order.
func (r *Retriever) fuseRRF(
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
	query string,
	dense bool,
) []int {
	fused := make(map[int]float64, len(result.Segments))

	accumulate := func(ranking []int, weight float64) {
		for rank, idx := range ranking {
			fused[idx] += weight / float64(r.cfg.RrfK+rank+1)
		}
	}

	lexical := NewLexicalScorer(result.Segments)
	accumulate(r.lexicalRanking(result, lexical.Scores(query)), r.cfg.Bm25Weight)
	if dense {
		accumulate(r.denseRanking(result, scores), r.cfg.DenseWeight)
	}
	accumulate(rankBySalience(result.Segments, scores), r.cfg.SalienceWeight)

	ordered := make([]int, 0, len(fused))
	for idx := range fused {
		ordered = append(ordered, idx)
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		if fused[ordered[a]] != fused[ordered[b]] {
			return fused[ordered[a]] > fused[ordered[b]]
		}
		return ordered[a] < ordered[b]
	})

	for _, idx := range ordered {
		entry := scores.At(idx)
		entry.RetrievalScore = fused[idx]
		scores.Set(idx, entry)
	}

	return ordered
}

// fuseWeightedBlend scores each segment as Alpha*querySimilarity +
// (1-Alpha)*salience, excluding segments below the MinSimilarity floor.
// May return an empty ranking when nothing clears the floor.
func (r *Retriever) fuseWeightedBlend(
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
) []int {
	ordered := make([]int, 0, len(result.Segments))
	for i := range result.Segments {
		idx := result.Segments[i].Index
		entry := scores.At(idx)
		if entry.QuerySimilarity < r.cfg.MinSimilarity {
			continue
		}
		entry.RetrievalScore = r.cfg.Alpha*entry.QuerySimilarity + (1-r.cfg.Alpha)*entry.Salience
		scores.Set(idx, entry)
		ordered = append(ordered, idx)
	}

	sort.SliceStable(ordered, func(a, b int) bool {
		sa := scores.At(ordered[a]).RetrievalScore
		sb := scores.At(ordered[b]).RetrievalScore
		if sa != sb {
			return sa > sb
		}
		return ordered[a] < ordered[b]
	})

	return ordered
}

// lexicalRanking ranks segments with a positive BM25 score, best first,
// document order on ties. lexScores is positional into result.Segments.
func (r *Retriever) lexicalRanking(result *domain.ExtractionResult, lexScores []float64) []int {
	type hit struct {
		idx   int
		score float64
	}

	hits := make([]hit, 0, len(lexScores))
	for i, score := range lexScores {
		if score > 0 {
			hits = append(hits, hit{idx: result.Segments[i].Index, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].idx < hits[b].idx
	})

	ranking := make([]int, len(hits))
	for i, h := range hits {
		ranking[i] = h.idx
	}
	return ranking
}

// denseRanking ranks embedded segments by query similarity, best first,
// document order on ties.
func (r *Retriever) denseRanking(result *domain.ExtractionResult, scores *domain.ScoreSet) []int {
	ranking := make([]int, 0, len(result.Segments))
	for i := range result.Segments {
		idx := result.Segments[i].Index
		if scores.At(idx).HasEmbedding() {
			ranking = append(ranking, idx)
		}
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		sa := scores.At(ranking[a]).QuerySimilarity
		sb := scores.At(ranking[b]).QuerySimilarity
		if sa != sb {
			return sa > sb
		}
		return ranking[a] < ranking[b]
	})

	return ranking
}

// assemble truncates the fused ranking to the budget and guarantees the
// fallback bucket is represented, displacing the lowest-ranked regular
// entries when necessary so the output never exceeds the budget.
func (r *Retriever) assemble(
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
	ranking []int,
	topK int,
) []domain.RankedSegment {
	limit := topK
	if limit > len(ranking) {
		limit = len(ranking)
	}
	selected := ranking[:limit]

	inSelected := make(map[int]bool, len(selected))
	for _, idx := range selected {
		inSelected[idx] = true
	}

	var missing []int
	for _, idx := range r.guaranteedFallback(result) {
		if !inSelected[idx] {
			missing = append(missing, idx)
		}
	}

	if len(missing) > 0 && len(selected)+len(missing) > topK {
		keep := topK - len(missing)
		if keep < 0 {
			keep = 0
		}
		selected = selected[:keep]
	}

	out := make([]domain.RankedSegment, 0, len(selected)+len(missing))
	for _, idx := range selected {
		out = append(out, r.rankedSegment(result, scores, idx, false))
	}
	for _, idx := range missing {
		out = append(out, r.rankedSegment(result, scores, idx, true))
	}
	return out
}

// fallbackOnly emits exactly the guaranteed fallback segments, in
// salience order, for queries that match nothing.
func (r *Retriever) fallbackOnly(
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
) []domain.RankedSegment {
	guaranteed := r.guaranteedFallback(result)
	out := make([]domain.RankedSegment, 0, len(guaranteed))
	for _, idx := range guaranteed {
		out = append(out, r.rankedSegment(result, scores, idx, true))
	}
	return out
}

// guaranteedFallback returns the first FallbackCount entries of the
// result's fallback bucket.
func (r *Retriever) guaranteedFallback(result *domain.ExtractionResult) []int {
	guaranteed := result.Fallback
	if count := r.budget.FallbackCount(); len(guaranteed) > count {
		guaranteed = guaranteed[:count]
	}
	return guaranteed
}

func (r *Retriever) rankedSegment(
	result *domain.ExtractionResult,
	scores *domain.ScoreSet,
	idx int,
	fromFallback bool,
) domain.RankedSegment {
	seg, _ := result.SegmentByIndex(idx)
	entry := scores.At(idx)

	score := entry.RetrievalScore
	if fromFallback && score == 0 {
		score = entry.Salience
	}

	return domain.RankedSegment{
		Segment:      seg,
		Score:        score,
		Citation:     seg.Citation(),
		FromFallback: fromFallback,
	}
}
