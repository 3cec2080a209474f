package services

import (
	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// DocumentPosition is the coarse structural band a segment falls into.
type DocumentPosition int

const (
	// PositionIntroduction covers the opening band of the document.
	PositionIntroduction DocumentPosition = iota
	// PositionBody covers the middle of the document.
	PositionBody
	// PositionConclusion covers the closing band of the document.
	PositionConclusion
)

// PositionWeighter maps a segment's document-order position to a
// structural importance multiplier. Expository content front- and
// back-loads its key claims, so its curve is steeper than the narrative
// one; narrative continuity keeps the middle almost as important as the
// edges.
type PositionWeighter struct {
	cfg domain.ExtractionConfig
}

// NewPositionWeighter creates a position weighter from the extraction
// configuration.
func NewPositionWeighter(cfg domain.ExtractionConfig) *PositionWeighter {
	return &PositionWeighter{cfg: cfg}
}

// Position classifies a segment's order against the content-type
// thresholds. With no positional information (totalSegments <= 0) every
// segment is body.
func (w *PositionWeighter) Position(order, totalSegments int, contentType domain.ContentType) DocumentPosition {
	if totalSegments <= 0 {
		return PositionBody
	}

	curve := w.curve(contentType)
	fraction := float64(order) / float64(totalSegments)

	switch {
	case fraction < curve.IntroThreshold:
		return PositionIntroduction
	case fraction >= curve.ConclusionThreshold:
		return PositionConclusion
	default:
		return PositionBody
	}
}

// Weight returns the position multiplier (>= 1.0) for a segment.
func (w *PositionWeighter) Weight(order, totalSegments int, contentType domain.ContentType) float64 {
	curve := w.curve(contentType)

	switch w.Position(order, totalSegments, contentType) {
	case PositionIntroduction:
		return curve.IntroWeight
	case PositionConclusion:
		return curve.ConclusionWeight
	default:
		return 1.0
	}
}

func (w *PositionWeighter) curve(contentType domain.ContentType) domain.PositionCurve {
	switch contentType {
	case domain.ContentExpository:
		return w.cfg.Expository
	case domain.ContentNarrative:
		return w.cfg.Narrative
	default:
		return w.cfg.Default
	}
}
