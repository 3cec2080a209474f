package domain

// SegmentScores holds the computed values for one segment within a single
// extraction pass. Segments themselves are immutable; scores live here so
// that re-extraction produces a fresh ScoreSet instead of mutating segments
// an earlier pass handed out.
type SegmentScores struct {
	// Embedding is the vector representation. Nil until computed, and nil
	// permanently when the embedding call failed for this segment.
	Embedding []float32

	// Salience is the query-independent importance score in [0,1].
	Salience float64

	// PositionWeight is the structural importance multiplier (>= 1.0).
	PositionWeight float64

	// LengthQuality is the length-quality ramp value in
	// [MinLengthQualityScore, 1].
	LengthQuality float64

	// QuerySimilarity is the cosine similarity to the query embedding.
	// Populated only during retrieval; zero otherwise.
	QuerySimilarity float64

	// RetrievalScore is the fused retrieval score. Populated only during
	// retrieval; zero otherwise.
	RetrievalScore float64
}

// HasEmbedding reports whether the segment was successfully embedded.
func (s SegmentScores) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// ScoreSet is the per-pass score table, addressed by segment index.
// It is write-once per extraction pass: the extraction pipeline populates
// it and downstream stages only read it (retrieval keeps its query-time
// values in its own result, never here).
type ScoreSet struct {
	scores []SegmentScores
}

// NewScoreSet creates a score table sized for n segments. Position weights
// default to 1.0 so an unpopulated entry is a neutral multiplier.
func NewScoreSet(n int) *ScoreSet {
	scores := make([]SegmentScores, n)
	for i := range scores {
		scores[i].PositionWeight = 1.0
		scores[i].LengthQuality = 1.0
	}
	return &ScoreSet{scores: scores}
}

// Len returns the number of entries.
func (s *ScoreSet) Len() int {
	return len(s.scores)
}

// At returns the scores for the segment at the given document-order index.
// Out-of-range indices return a zero value rather than panicking, so a
// partially populated table stays safe to read.
func (s *ScoreSet) At(index int) SegmentScores {
	if index < 0 || index >= len(s.scores) {
		return SegmentScores{}
	}
	return s.scores[index]
}

// Set replaces the scores for the segment at the given index.
func (s *ScoreSet) Set(index int, scores SegmentScores) {
	if index < 0 || index >= len(s.scores) {
		return
	}
	s.scores[index] = scores
}

// SetEmbedding stores the embedding for the segment at the given index.
func (s *ScoreSet) SetEmbedding(index int, embedding []float32) {
	if index < 0 || index >= len(s.scores) {
		return
	}
	s.scores[index].Embedding = embedding
}

// SetSalience stores the salience score for the segment at the given index.
func (s *ScoreSet) SetSalience(index int, salience float64) {
	if index < 0 || index >= len(s.scores) {
		return
	}
	s.scores[index].Salience = salience
}

// EmbeddedCount returns how many segments carry an embedding.
func (s *ScoreSet) EmbeddedCount() int {
	count := 0
	for i := range s.scores {
		if s.scores[i].HasEmbedding() {
			count++
		}
	}
	return count
}
