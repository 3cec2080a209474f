package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/skim-cli/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driving.ExtractionService = (*Extractor)(nil)

// Extractor runs the extraction phase as a sequence of bulk stages:
// pre-filter, embed, score, diversity-select. Stages are strictly
// sequential; within the embedding stage, segments are processed
// concurrently on a bounded worker pool.
//
// The segment list of a single invocation is owned exclusively by that
// invocation. Results are immutable once returned.
type Extractor struct {
	cfg       domain.ExtractionConfig
	embedder  driven.EmbeddingService
	cache     driven.EmbeddingCache
	prefilter *PreFilter
	scorer    *SalienceScorer
	selector  *DiversitySelector
}

// NewExtractor creates the extraction service. The embedder and cache are
// optional (can be nil): without an embedder the pipeline degrades to
// heuristic-only salience. Configuration is validated here, so an invalid
// config fails at construction, never mid-pipeline.
func NewExtractor(
	cfg domain.ExtractionConfig,
	embedder driven.EmbeddingService,
	cache driven.EmbeddingCache,
) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:       cfg,
		embedder:  embedder,
		cache:     cache,
		prefilter: NewPreFilter(cfg),
		scorer:    NewSalienceScorer(cfg),
		selector:  NewDiversitySelector(cfg),
	}, nil
}

// Extract runs one extraction pass over the given spans.
//
// Zero spans produce an empty result with ExtractionEmpty status: nothing
// to summarize is a normal outcome, not an error. Per-segment embedding
// failures are absorbed and logged; those segments keep a nil embedding
// and a heuristic score but stay citable. A cancelled context aborts the
// pass with an error and no partial result.
func (e *Extractor) Extract(
	ctx context.Context,
	documentID string,
	spans []domain.Span,
	contentType domain.ContentType,
) (*domain.ExtractionResult, error) {
	logger.Section("Extraction")
	logger.Debug("Document: %s, spans: %d, content type: %s", documentID, len(spans), contentType)

	if len(spans) == 0 {
		logger.Info("No spans to extract, returning empty result")
		return &domain.ExtractionResult{
			PassID:      uuid.New().String(),
			DocumentID:  documentID,
			Status:      domain.ExtractionEmpty,
			Scores:      domain.NewScoreSet(0),
			ContentType: contentType,
		}, nil
	}

	all := make([]domain.Segment, len(spans))
	for i, span := range spans {
		all[i] = domain.NewSegment(documentID, i, span)
	}

	// Score table spans the original index space so survivor indices stay
	// valid after pre-filtering.
	scores := domain.NewScoreSet(len(all))

	survivors, err := e.survivors(ctx, documentID, all, contentType, scores)
	if err != nil {
		return nil, fmt.Errorf("pre-filter: %w", err)
	}
	logger.Debug("Survivors after pre-filter: %d of %d", len(survivors), len(all))

	if err := e.embedSegments(ctx, survivors, scores); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	embedded := scores.EmbeddedCount()
	logger.Debug("Embedded segments: %d of %d", embedded, len(survivors))

	status := domain.ExtractionOK
	var centroid []float32
	if embedded == 0 {
		// Degenerate centroid: skip centroid-based scoring entirely.
		logger.Warn("No segment embedded, falling back to heuristic-only salience")
		status = domain.ExtractionHeuristicOnly
	} else {
		vectors := make([][]float32, 0, len(survivors))
		for i := range survivors {
			vectors = append(vectors, scores.At(survivors[i].Index).Embedding)
		}
		centroid = domain.Centroid(vectors)
	}

	e.scorer.Score(survivors, scores, centroid, len(all), contentType)

	top, err := e.selector.Select(ctx, survivors, scores)
	if err != nil {
		return nil, fmt.Errorf("diversity selection: %w", err)
	}
	logger.Debug("Diversity-selected top segments: %d", len(top))

	fallback := rankBySalience(survivors, scores)
	if len(fallback) > e.cfg.FallbackBucketSize {
		fallback = fallback[:e.cfg.FallbackBucketSize]
	}

	return &domain.ExtractionResult{
		PassID:        uuid.New().String(),
		DocumentID:    documentID,
		Status:        status,
		Segments:      survivors,
		Scores:        scores,
		TopBySalience: top,
		Fallback:      fallback,
		Centroid:      centroid,
		ContentType:   contentType,
	}, nil
}

// survivors applies the pre-filter when the document is large enough,
// returning the segments promoted to full embedding, in document order.
func (e *Extractor) survivors(
	ctx context.Context,
	documentID string,
	all []domain.Segment,
	contentType domain.ContentType,
	scores *domain.ScoreSet,
) ([]domain.Segment, error) {
	if !e.prefilter.Applies(len(all)) {
		return all, nil
	}

	logger.Info("Pre-filtering %d segments (cap %d)", len(all), e.cfg.MaxSegmentsToEmbed)

	sampleEmbeddings := make(map[int][]float32)
	if e.embedder != nil {
		sampleIndices := e.prefilter.SampleIndices(documentID, len(all))
		sample := make([]domain.Segment, len(sampleIndices))
		for i, idx := range sampleIndices {
			sample[i] = all[idx]
		}

		if err := e.embedSegments(ctx, sample, scores); err != nil {
			return nil, err
		}
		for _, idx := range sampleIndices {
			if entry := scores.At(idx); entry.HasEmbedding() {
				sampleEmbeddings[idx] = entry.Embedding
			}
		}
		logger.Debug("Embedded stratified sample: %d of %d", len(sampleEmbeddings), len(sampleIndices))
	}

	kept, err := e.prefilter.Reduce(ctx, documentID, all, sampleEmbeddings, contentType)
	if err != nil {
		return nil, err
	}

	survivors := make([]domain.Segment, len(kept))
	for i, idx := range kept {
		survivors[i] = all[idx]
	}
	return survivors, nil
}

// embedSegments populates embeddings for the given segments on a bounded
// worker pool. Cache hits skip the embedding call entirely. Individual
// failures are logged and absorbed; only cancellation aborts the stage.
func (e *Extractor) embedSegments(
	ctx context.Context,
	segments []domain.Segment,
	scores *domain.ScoreSet,
) error {
	if e.embedder == nil {
		return nil
	}

	jobs := make(chan domain.Segment)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := e.cfg.EmbedWorkers
	if workers > len(segments) {
		workers = len(segments)
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				embedding := e.embedOne(ctx, seg)
				if embedding == nil {
					continue
				}
				mu.Lock()
				scores.SetEmbedding(seg.Index, embedding)
				mu.Unlock()
			}
		}()
	}

	for i := range segments {
		if scores.At(segments[i].Index).HasEmbedding() {
			continue // already embedded during pre-filter sampling
		}
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- segments[i]:
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

// embedOne resolves one segment's embedding via the cache or the
// embedding service. Returns nil on failure; the caller absorbs it.
func (e *Extractor) embedOne(ctx context.Context, seg domain.Segment) []float32 {
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, seg.ContentHash)
		if err != nil {
			logger.Warn("Cache lookup failed for %s: %v", seg.ID, err)
		} else if ok {
			return cached
		}
	}

	embedding, err := e.embedder.Embed(ctx, seg.Text)
	if err != nil {
		logger.Warn("Embedding failed for %s: %v", seg.ID, err)
		return nil
	}

	if dims := e.embedder.Dimensions(); dims > 0 && len(embedding) != dims {
		logger.Warn("Embedding for %s has %d dimensions, expected %d; dropping",
			seg.ID, len(embedding), dims)
		return nil
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, seg.ContentHash, embedding); err != nil {
			logger.Warn("Cache write failed for %s: %v", seg.ID, err)
		}
	}

	return embedding
}
