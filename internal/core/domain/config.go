package domain

import "fmt"

// FusionMode selects how the retrieval fuser combines rankings. The mode is
// chosen once at configuration time; scoring code never type-switches on it
// mid-pipeline.
type FusionMode string

const (
	// FusionRRF combines lexical, dense and salience rankings with
	// weighted Reciprocal Rank Fusion. Scale-invariant: no score
	// normalisation needed across heterogeneous scorers. The default.
	FusionRRF FusionMode = "rrf"

	// FusionWeightedBlend combines query similarity and salience with a
	// weighted sum and a hard minimum-similarity floor. Legacy mode.
	FusionWeightedBlend FusionMode = "weighted_blend"
)

// PositionCurve holds the position-weighting parameters for one content
// type: where the introduction and conclusion bands end and begin, and the
// multipliers applied inside them.
type PositionCurve struct {
	// IntroThreshold is the fraction of the document (by order) treated
	// as introduction.
	IntroThreshold float64 `toml:"intro_threshold"`

	// ConclusionThreshold is the fraction of the document after which
	// segments are treated as conclusion.
	ConclusionThreshold float64 `toml:"conclusion_threshold"`

	// IntroWeight is the multiplier for introduction segments.
	IntroWeight float64 `toml:"intro_weight"`

	// ConclusionWeight is the multiplier for conclusion segments.
	ConclusionWeight float64 `toml:"conclusion_weight"`
}

// ExtractionConfig holds every tunable of the extraction phase. It is an
// immutable record passed by value into stage constructors; there is no
// ambient or static configuration state.
type ExtractionConfig struct {
	// IdealMinLength is the character length below which segments are
	// penalised by the length-quality ramp.
	IdealMinLength int `toml:"ideal_min_length"`

	// IdealMaxLength is the character length above which segments stop
	// accruing length credit.
	IdealMaxLength int `toml:"ideal_max_length"`

	// MinLengthQualityScore is the floor of the length-quality ramp.
	MinLengthQualityScore float64 `toml:"min_length_quality_score"`

	// HeadingBoost is the flat multiplier applied to headings.
	HeadingBoost float64 `toml:"heading_boost"`

	// DocumentTitleBoost is the multiplier for the first top-level
	// heading. Deliberately modest so a short title cannot dominate
	// substantive body content.
	DocumentTitleBoost float64 `toml:"document_title_boost"`

	// MaxSegmentsToEmbed bounds how many segments are sent to the
	// embedding service. Documents above this trigger the pre-filter.
	MaxSegmentsToEmbed int `toml:"max_segments_to_embed"`

	// PreFilterSampleSize is the stratified sample size used to build the
	// provisional centroid during pre-filtering.
	PreFilterSampleSize int `toml:"pre_filter_sample_size"`

	// PreFilterSemanticWeight blends the semantic proxy score against the
	// cheap heuristics during pre-filtering (semantic share, in [0,1]).
	PreFilterSemanticWeight float64 `toml:"pre_filter_semantic_weight"`

	// ExtractionRatio is the fraction of segments kept by diversity
	// selection, before the floor and ceiling apply.
	ExtractionRatio float64 `toml:"extraction_ratio"`

	// MinSegments is the floor on the diversity-selected subset size.
	MinSegments int `toml:"min_segments"`

	// MaxSegments is the ceiling on the diversity-selected subset size.
	MaxSegments int `toml:"max_segments"`

	// MmrLambda trades relevance against diversity during MMR selection.
	// Higher values favour relevance.
	MmrLambda float64 `toml:"mmr_lambda"`

	// FallbackBucketSize is how many top raw-salience segments are always
	// retained regardless of MMR's diversity pressure.
	FallbackBucketSize int `toml:"fallback_bucket_size"`

	// MaxBatchSize partitions very long documents for hierarchical MMR.
	// Bounds the otherwise quadratic MMR cost at a small recall loss at
	// batch boundaries.
	MaxBatchSize int `toml:"max_batch_size"`

	// Expository is the position curve for expository content.
	Expository PositionCurve `toml:"expository"`

	// Narrative is the position curve for narrative content.
	Narrative PositionCurve `toml:"narrative"`

	// Default is the position curve for unclassified content.
	Default PositionCurve `toml:"default"`

	// EmbedWorkers bounds the number of concurrent embedding requests.
	EmbedWorkers int `toml:"embed_workers"`
}

// DefaultExtractionConfig returns the extraction defaults.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		IdealMinLength:          40,
		IdealMaxLength:          400,
		MinLengthQualityScore:   0.3,
		HeadingBoost:            1.15,
		DocumentTitleBoost:      1.8,
		MaxSegmentsToEmbed:      200,
		PreFilterSampleSize:     60,
		PreFilterSemanticWeight: 0.6,
		ExtractionRatio:         0.15,
		MinSegments:             10,
		MaxSegments:             100,
		MmrLambda:               0.7,
		FallbackBucketSize:      10,
		MaxBatchSize:            1000,
		Expository: PositionCurve{
			IntroThreshold:      0.15,
			ConclusionThreshold: 0.85,
			IntroWeight:         1.5,
			ConclusionWeight:    1.3,
		},
		Narrative: PositionCurve{
			IntroThreshold:      0.15,
			ConclusionThreshold: 0.85,
			IntroWeight:         1.2,
			ConclusionWeight:    1.15,
		},
		Default: PositionCurve{
			IntroThreshold:      0.15,
			ConclusionThreshold: 0.85,
			IntroWeight:         1.3,
			ConclusionWeight:    1.2,
		},
		EmbedWorkers: 8,
	}
}

// Validate checks the configuration for contradictions. Invalid
// configuration fails fast at load time, never mid-pipeline.
func (c ExtractionConfig) Validate() error {
	if c.MinSegments > c.MaxSegments {
		return fmt.Errorf("%w: min_segments (%d) > max_segments (%d)",
			ErrInvalidConfig, c.MinSegments, c.MaxSegments)
	}
	if c.ExtractionRatio < 0 || c.ExtractionRatio > 1 {
		return fmt.Errorf("%w: extraction_ratio %.3f outside [0,1]",
			ErrInvalidConfig, c.ExtractionRatio)
	}
	if c.MmrLambda < 0 || c.MmrLambda > 1 {
		return fmt.Errorf("%w: mmr_lambda %.3f outside [0,1]",
			ErrInvalidConfig, c.MmrLambda)
	}
	if c.PreFilterSemanticWeight < 0 || c.PreFilterSemanticWeight > 1 {
		return fmt.Errorf("%w: pre_filter_semantic_weight %.3f outside [0,1]",
			ErrInvalidConfig, c.PreFilterSemanticWeight)
	}
	if c.MinLengthQualityScore < 0 || c.MinLengthQualityScore > 1 {
		return fmt.Errorf("%w: min_length_quality_score %.3f outside [0,1]",
			ErrInvalidConfig, c.MinLengthQualityScore)
	}
	if c.IdealMinLength < 0 || c.IdealMaxLength < c.IdealMinLength {
		return fmt.Errorf("%w: ideal length range [%d,%d] is invalid",
			ErrInvalidConfig, c.IdealMinLength, c.IdealMaxLength)
	}
	if c.MaxSegmentsToEmbed <= 0 {
		return fmt.Errorf("%w: max_segments_to_embed must be positive",
			ErrInvalidConfig)
	}
	if c.PreFilterSampleSize <= 0 {
		return fmt.Errorf("%w: pre_filter_sample_size must be positive",
			ErrInvalidConfig)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: max_batch_size must be positive",
			ErrInvalidConfig)
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("%w: embed_workers must be positive",
			ErrInvalidConfig)
	}
	for _, curve := range []struct {
		name  string
		curve PositionCurve
	}{
		{"expository", c.Expository},
		{"narrative", c.Narrative},
		{"default", c.Default},
	} {
		if err := curve.curve.validate(curve.name); err != nil {
			return err
		}
	}
	return nil
}

func (p PositionCurve) validate(name string) error {
	if p.IntroThreshold < 0 || p.IntroThreshold > 1 {
		return fmt.Errorf("%w: %s intro_threshold %.3f outside [0,1]",
			ErrInvalidConfig, name, p.IntroThreshold)
	}
	if p.ConclusionThreshold < p.IntroThreshold || p.ConclusionThreshold > 1 {
		return fmt.Errorf("%w: %s conclusion_threshold %.3f outside [%.3f,1]",
			ErrInvalidConfig, name, p.ConclusionThreshold, p.IntroThreshold)
	}
	if p.IntroWeight < 1.0 || p.ConclusionWeight < 1.0 {
		return fmt.Errorf("%w: %s position weights must be >= 1.0",
			ErrInvalidConfig, name)
	}
	return nil
}

// RetrievalConfig holds every tunable of the retrieval phase.
type RetrievalConfig struct {
	// Fusion selects the fusion mode.
	Fusion FusionMode `toml:"fusion"`

	// RrfK is the RRF damping constant. 60 is the standard value.
	RrfK int `toml:"rrf_k"`

	// Bm25Weight is the RRF weight of the lexical ranking.
	Bm25Weight float64 `toml:"bm25_weight"`

	// DenseWeight is the RRF weight of the dense (embedding) ranking.
	DenseWeight float64 `toml:"dense_weight"`

	// SalienceWeight is the RRF weight of the salience ranking.
	SalienceWeight float64 `toml:"salience_weight"`

	// Alpha blends query similarity against salience in weighted-blend
	// mode.
	Alpha float64 `toml:"alpha"`

	// MinSimilarity is the hard similarity floor in weighted-blend mode.
	MinSimilarity float64 `toml:"min_similarity"`

	// MinCoveragePercent is the coverage target for the adaptive budget,
	// as a percentage of the segment count.
	MinCoveragePercent float64 `toml:"min_coverage_percent"`

	// NarrativeBoost multiplies the budget for narrative content, which
	// needs proportionally more context.
	NarrativeBoost float64 `toml:"narrative_boost"`

	// MinTopK is the floor on the retrieval output size.
	MinTopK int `toml:"min_top_k"`

	// MaxTopK is the ceiling on the retrieval output size, reflecting
	// downstream context-window limits.
	MaxTopK int `toml:"max_top_k"`

	// FallbackCount is how many fallback segments are always included
	// regardless of the computed budget.
	FallbackCount int `toml:"fallback_count"`
}

// DefaultRetrievalConfig returns the retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Fusion:             FusionRRF,
		RrfK:               60,
		Bm25Weight:         1.0,
		DenseWeight:        1.0,
		SalienceWeight:     0.5,
		Alpha:              0.7,
		MinSimilarity:      0.25,
		MinCoveragePercent: 5.0,
		NarrativeBoost:     1.5,
		MinTopK:            15,
		MaxTopK:            100,
		FallbackCount:      5,
	}
}

// Validate checks the configuration for contradictions.
func (c RetrievalConfig) Validate() error {
	switch c.Fusion {
	case FusionRRF, FusionWeightedBlend:
	default:
		return fmt.Errorf("%w: unknown fusion mode %q", ErrInvalidConfig, c.Fusion)
	}
	if c.RrfK <= 0 {
		return fmt.Errorf("%w: rrf_k must be positive", ErrInvalidConfig)
	}
	if c.Bm25Weight < 0 || c.DenseWeight < 0 || c.SalienceWeight < 0 {
		return fmt.Errorf("%w: fusion weights must be non-negative", ErrInvalidConfig)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %.3f outside [0,1]", ErrInvalidConfig, c.Alpha)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity %.3f outside [0,1]", ErrInvalidConfig, c.MinSimilarity)
	}
	if c.MinCoveragePercent < 0 || c.MinCoveragePercent > 100 {
		return fmt.Errorf("%w: min_coverage_percent %.1f outside [0,100]",
			ErrInvalidConfig, c.MinCoveragePercent)
	}
	if c.NarrativeBoost < 1.0 {
		return fmt.Errorf("%w: narrative_boost must be >= 1.0", ErrInvalidConfig)
	}
	if c.MinTopK > c.MaxTopK {
		return fmt.Errorf("%w: min_top_k (%d) > max_top_k (%d)",
			ErrInvalidConfig, c.MinTopK, c.MaxTopK)
	}
	if c.MinTopK <= 0 {
		return fmt.Errorf("%w: min_top_k must be positive", ErrInvalidConfig)
	}
	if c.FallbackCount < 0 {
		return fmt.Errorf("%w: fallback_count must be non-negative", ErrInvalidConfig)
	}
	return nil
}
