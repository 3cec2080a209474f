package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLexicalScorer_MatchesRankHigher tests basic term-overlap ordering
func TestLexicalScorer_MatchesRankHigher(t *testing.T) {
	segments := makeSegments(t,
		"The reactor design uses passive cooling throughout.",
		"Weather conditions were mild during the survey.",
		"Passive cooling reduces reactor maintenance cost.",
	)
	scorer := NewLexicalScorer(segments)

	scores := scorer.Scores("reactor cooling")
	require.Len(t, scores, 3)

	assert.Greater(t, scores[0], scores[1])
	assert.Greater(t, scores[2], scores[1])
	assert.Zero(t, scores[1])
}

// TestLexicalScorer_RareTermsWeighMore tests the IDF component
func TestLexicalScorer_RareTermsWeighMore(t *testing.T) {
	segments := makeSegments(t,
		"the system processes the data with the pipeline",
		"the zygote divides rapidly",
		"the system runs the jobs on the cluster",
		"the system stores the results in the archive",
	)
	scorer := NewLexicalScorer(segments)

	// "zygote" appears once across the set, "system" three times.
	rare := scorer.Scores("zygote")
	common := scorer.Scores("system")

	assert.Greater(t, rare[1], common[0])
	assert.Greater(t, rare[1], common[2])
}

// TestLexicalScorer_CaseAndPunctuation tests tokenisation robustness
func TestLexicalScorer_CaseAndPunctuation(t *testing.T) {
	segments := makeSegments(t, "Cooling, COOLING: cooling!")
	scorer := NewLexicalScorer(segments)

	scores := scorer.Scores("cooling")
	assert.Positive(t, scores[0])
}

// TestLexicalScorer_EmptyInputs tests degenerate cases
func TestLexicalScorer_EmptyInputs(t *testing.T) {
	scorer := NewLexicalScorer(nil)
	assert.Empty(t, scorer.Scores("anything"))

	segments := makeSegments(t, "some text here for the index")
	scorer = NewLexicalScorer(segments)
	scores := scorer.Scores("")
	require.Len(t, scores, 1)
	assert.Zero(t, scores[0])
}

// TestLexicalScorer_Deterministic tests repeatable scoring
func TestLexicalScorer_Deterministic(t *testing.T) {
	segments := makeSegments(t,
		"alpha beta gamma delta",
		"beta gamma delta epsilon",
		"gamma delta epsilon zeta",
	)

	first := NewLexicalScorer(segments).Scores("gamma epsilon")
	second := NewLexicalScorer(segments).Scores("gamma epsilon")
	assert.Equal(t, first, second)
}
