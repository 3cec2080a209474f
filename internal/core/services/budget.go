package services

import (
	"math"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// BudgetController computes the final retrieval output size from document
// size and content type. Fixed budgets under-serve large documents and
// over-serve small ones, so the budget tracks a coverage target and is
// then clamped to the configured bounds.
type BudgetController struct {
	cfg domain.RetrievalConfig
}

// NewBudgetController creates a budget controller from the retrieval
// configuration.
func NewBudgetController(cfg domain.RetrievalConfig) *BudgetController {
	return &BudgetController{cfg: cfg}
}

// TopK computes how many fused-ranked segments to emit for a document of
// the given size and content type.
func (b *BudgetController) TopK(segmentCount int, contentType domain.ContentType) int {
	coverage := math.Ceil(float64(segmentCount) * b.cfg.MinCoveragePercent / 100.0)

	if contentType == domain.ContentNarrative {
		// Narrative content needs proportionally more context to avoid
		// hallucinated continuity downstream.
		coverage *= b.cfg.NarrativeBoost
	}

	topK := int(coverage)
	if topK < b.cfg.MinTopK {
		topK = b.cfg.MinTopK
	}
	if topK > b.cfg.MaxTopK {
		topK = b.cfg.MaxTopK
	}
	return topK
}

// FallbackCount returns how many fallback segments are always included
// regardless of the computed budget.
func (b *BudgetController) FallbackCount() int {
	return b.cfg.FallbackCount
}
