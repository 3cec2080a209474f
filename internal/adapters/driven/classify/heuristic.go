// Package classify provides the heuristic content-type classifier.
// It distinguishes narrative prose from expository/technical writing
// using cheap lexical and structural signals; no model calls.
package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
	"github.com/custodia-labs/skim-cli/internal/core/ports/driven"
)

// Ensure Heuristic implements the interface.
var _ driven.ContentClassifier = (*Heuristic)(nil)

// minSpans is the smallest document the classifier will commit on.
const minSpans = 8

// narrativeMarkers are words that occur far more often in stories than
// in technical or documentary prose.
var narrativeMarkers = map[string]bool{
	"he": true, "she": true, "him": true, "her": true, "his": true,
	"hers": true, "himself": true, "herself": true,
	"said": true, "told": true, "asked": true, "replied": true,
	"whispered": true, "shouted": true, "felt": true, "knew": true,
	"thought": true, "remembered": true, "walked": true, "looked": true,
}

// Heuristic classifies documents by structure and word choice.
type Heuristic struct{}

// New creates a heuristic classifier.
func New() *Heuristic {
	return &Heuristic{}
}

// Classify determines the content type from the parsed spans.
// Structure-heavy documents (headings, lists, tables, code) classify as
// expository; marker-dense prose classifies as narrative; short or
// ambiguous documents stay unknown.
func (h *Heuristic) Classify(_ context.Context, spans []domain.Span) domain.ContentType {
	if len(spans) < minSpans {
		return domain.ContentUnknown
	}

	structural := 0
	words := 0
	markers := 0

	for i := range spans {
		switch spans[i].Type {
		case domain.SegmentHeading, domain.SegmentListItem,
			domain.SegmentTableRow, domain.SegmentCodeBlock:
			structural++
		}

		for _, word := range strings.FieldsFunc(strings.ToLower(spans[i].Text), func(r rune) bool {
			return !unicode.IsLetter(r)
		}) {
			words++
			if narrativeMarkers[word] {
				markers++
			}
		}
	}

	structuralRatio := float64(structural) / float64(len(spans))
	if structuralRatio > 0.25 {
		return domain.ContentExpository
	}

	if words == 0 {
		return domain.ContentUnknown
	}

	markerRate := float64(markers) / float64(words) * 1000
	switch {
	case markerRate >= 25:
		return domain.ContentNarrative
	case markerRate <= 8:
		return domain.ContentExpository
	default:
		return domain.ContentUnknown
	}
}
