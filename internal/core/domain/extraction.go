package domain

import "sync"

// ExtractionStatus describes the outcome of an extraction pass.
type ExtractionStatus string

const (
	// ExtractionOK means the pass completed normally.
	ExtractionOK ExtractionStatus = "ok"

	// ExtractionEmpty means the parser handed zero spans. An empty result
	// is a normal, representable outcome, not an error.
	ExtractionEmpty ExtractionStatus = "empty"

	// ExtractionHeuristicOnly means no segment could be embedded, so
	// salience fell back to heuristic-only scoring.
	ExtractionHeuristicOnly ExtractionStatus = "heuristic_only"
)

// ExtractionResult is the output of the extraction phase: the canonical
// segment list, the per-pass score set, the top-salience subset, the
// always-included fallback bucket, the document centroid and the detected
// content type.
//
// The canonical segment list is the single source of truth. Lookup maps
// (by ID, by index, by page, by character position) are derived lazily on
// first access and cached; a result is never mutated after construction,
// so invalidation means building a new ExtractionResult.
type ExtractionResult struct {
	// PassID uniquely identifies this extraction pass, for audit trails.
	// Re-extraction of the same document produces a new PassID.
	PassID string

	// DocumentID is the document this result was extracted from.
	DocumentID string

	// Status describes the pass outcome.
	Status ExtractionStatus

	// Segments is the canonical segment list in document order.
	Segments []Segment

	// Scores is the per-pass score table, indexed by segment index.
	Scores *ScoreSet

	// TopBySalience holds the indices of the diversity-selected top
	// segments, ordered by descending salience.
	TopBySalience []int

	// Fallback holds the indices of the top raw-salience segments that are
	// always included in retrieval output regardless of query match.
	Fallback []int

	// Centroid is the mean of all segment embeddings. Nil when no segment
	// was embedded.
	Centroid []float32

	// ContentType is the detected document character.
	ContentType ContentType

	once    sync.Once
	byID    map[string]int
	byIndex map[int]int
	byPage  map[int][]int
	topSet  map[int]bool
	fbSet   map[int]bool
}

// IsEmpty reports whether the pass produced no segments.
func (r *ExtractionResult) IsEmpty() bool {
	return len(r.Segments) == 0
}

// SegmentByIndex returns the segment with the given document-order index.
// Indices are looked up against Segment.Index, not slice position: after
// pre-filtering the canonical list is sparse and the two diverge.
func (r *ExtractionResult) SegmentByIndex(index int) (Segment, bool) {
	r.buildIndices()
	pos, ok := r.byIndex[index]
	if !ok {
		return Segment{}, false
	}
	return r.Segments[pos], true
}

// SegmentByID returns the segment with the given ID.
func (r *ExtractionResult) SegmentByID(id string) (Segment, bool) {
	r.buildIndices()
	idx, ok := r.byID[id]
	if !ok {
		return Segment{}, false
	}
	return r.Segments[idx], true
}

// SegmentsByPage returns the segments on the given 1-based page, in
// document order. Nil when the source format has no pages.
func (r *ExtractionResult) SegmentsByPage(page int) []Segment {
	r.buildIndices()
	indices := r.byPage[page]
	if len(indices) == 0 {
		return nil
	}
	segments := make([]Segment, len(indices))
	for i, idx := range indices {
		segments[i] = r.Segments[idx]
	}
	return segments
}

// SegmentAtChar returns the segment covering the given character offset.
// Segments are sorted by CharStart in document order, so a binary search
// over the canonical list suffices.
func (r *ExtractionResult) SegmentAtChar(offset int) (Segment, bool) {
	lo, hi := 0, len(r.Segments)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		seg := r.Segments[mid]
		switch {
		case offset < seg.CharStart:
			hi = mid - 1
		case offset >= seg.CharEnd:
			lo = mid + 1
		default:
			return seg, true
		}
	}
	return Segment{}, false
}

// InTopBySalience reports whether the segment index survived diversity
// selection.
func (r *ExtractionResult) InTopBySalience(index int) bool {
	r.buildIndices()
	return r.topSet[index]
}

// InFallback reports whether the segment index is part of the fallback
// bucket.
func (r *ExtractionResult) InFallback(index int) bool {
	r.buildIndices()
	return r.fbSet[index]
}

// buildIndices constructs the derived lookup maps exactly once.
func (r *ExtractionResult) buildIndices() {
	r.once.Do(func() {
		r.byID = make(map[string]int, len(r.Segments))
		r.byIndex = make(map[int]int, len(r.Segments))
		r.byPage = make(map[int][]int)
		for i := range r.Segments {
			r.byID[r.Segments[i].ID] = i
			r.byIndex[r.Segments[i].Index] = i
			if r.Segments[i].PageNumber != nil {
				page := *r.Segments[i].PageNumber
				r.byPage[page] = append(r.byPage[page], i)
			}
		}
		r.topSet = make(map[int]bool, len(r.TopBySalience))
		for _, idx := range r.TopBySalience {
			r.topSet[idx] = true
		}
		r.fbSet = make(map[int]bool, len(r.Fallback))
		for _, idx := range r.Fallback {
			r.fbSet[idx] = true
		}
	})
}

// RankedSegment is one entry of the final retrieval output handed to the
// synthesis stage.
type RankedSegment struct {
	// Segment is the selected segment.
	Segment Segment

	// Score is the fused retrieval score.
	Score float64

	// Citation is the citation string, e.g. "[S12]".
	Citation string

	// FromFallback marks segments included by the coverage guarantee
	// rather than by query match.
	FromFallback bool
}
