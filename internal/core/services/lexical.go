package services

import (
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

// BM25 constants. k1 saturates term frequency, b controls length
// normalisation. The standard values work well for sentence-sized units.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// LexicalScorer computes sparse term-overlap scores of a query against a
// segment set, BM25-weighted over the segments of a single document.
// Statistics are computed over the extraction result, not a global corpus:
// the segment set is the retrieval universe.
type LexicalScorer struct {
	segments []domain.Segment
	tokens   [][]string
	df       map[string]int
	avgLen   float64
}

// NewLexicalScorer indexes the given segments for lexical scoring.
func NewLexicalScorer(segments []domain.Segment) *LexicalScorer {
	s := &LexicalScorer{
		segments: segments,
		tokens:   make([][]string, len(segments)),
		df:       make(map[string]int),
	}

	totalLen := 0
	for i := range segments {
		terms := tokenize(segments[i].Text)
		s.tokens[i] = terms
		totalLen += len(terms)

		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if !seen[term] {
				seen[term] = true
				s.df[term]++
			}
		}
	}

	if len(segments) > 0 {
		s.avgLen = float64(totalLen) / float64(len(segments))
	}

	return s
}

// Score computes the BM25 score of the query against the segment at the
// given position in the indexed set. Zero when no query term matches.
func (s *LexicalScorer) Score(position int, queryTerms []string) float64 {
	if position < 0 || position >= len(s.tokens) || s.avgLen == 0 {
		return 0
	}

	terms := s.tokens[position]
	docLen := float64(len(terms))
	n := float64(len(s.segments))

	tf := make(map[string]int, len(terms))
	for _, term := range terms {
		tf[term]++
	}

	score := 0.0
	for _, q := range queryTerms {
		freq := float64(tf[q])
		if freq == 0 {
			continue
		}

		df := float64(s.df[q])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := freq * (bm25K1 + 1) / (freq + bm25K1*(1-bm25B+bm25B*docLen/s.avgLen))
		score += idf * norm
	}

	return score
}

// Scores computes the BM25 score of the query against every indexed
// segment, in indexed order.
func (s *LexicalScorer) Scores(query string) []float64 {
	queryTerms := tokenize(query)
	scores := make([]float64, len(s.segments))
	if len(queryTerms) == 0 {
		return scores
	}

	for i := range s.segments {
		scores[i] = s.Score(i, queryTerms)
	}
	return scores
}

// tokenize lowercases and splits text on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
