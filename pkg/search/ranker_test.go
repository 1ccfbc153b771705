package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

func fact(id, text string, confidence float64) *types.Fact {
	return &types.Fact{
		ID:         id,
		Text:       text,
		ValidAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     types.StatusCanonical,
		Confidence: confidence,
	}
}

func TestRankOrdersByScore(t *testing.T) {
	r := NewRanker(DefaultWeights())

	ranked := r.Rank(Request{Query: "who is the CEO of Acme"}, []Candidate{
		{Fact: fact("f1", "the cafeteria reopened on Monday", 0.9), FullTextScore: 0.1},
		{Fact: fact("f2", "David Park is the CEO of Acme", 0.9), FullTextScore: 4.2},
		{Fact: fact("f3", "Acme reported quarterly earnings", 0.9), FullTextScore: 1.0},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "f2", ranked[0].Fact.ID)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestFullTextNormalization(t *testing.T) {
	r := NewRanker(Weights{FullText: 1.0})

	ranked := r.Rank(Request{Query: "anything"}, []Candidate{
		{Fact: fact("f1", "a", 0), FullTextScore: 8.0},
		{Fact: fact("f2", "b", 0), FullTextScore: 2.0},
	})

	require.Len(t, ranked, 2)
	assert.InDelta(t, 1.0, ranked[0].Signals.FullText, 1e-9,
		"the best candidate normalizes to the full weight")
	assert.InDelta(t, 0.25, ranked[1].Signals.FullText, 1e-9)
}

func TestVectorSignal(t *testing.T) {
	r := NewRanker(Weights{Vector: 1.0})

	matching := fact("f1", "a", 0)
	matching.Embedding = []float32{1, 0, 0}
	opposite := fact("f2", "b", 0)
	opposite.Embedding = []float32{-1, 0, 0}
	missing := fact("f3", "c", 0)

	ranked := r.Rank(Request{
		Query:          "q",
		QueryEmbedding: []float32{1, 0, 0},
	}, []Candidate{{Fact: matching}, {Fact: opposite}, {Fact: missing}})

	byID := map[string]RankedFact{}
	for _, rf := range ranked {
		byID[rf.Fact.ID] = rf
	}
	assert.InDelta(t, 1.0, byID["f1"].Signals.Vector, 1e-6)
	assert.Zero(t, byID["f2"].Signals.Vector, "negative cosine clamps to zero")
	assert.Zero(t, byID["f3"].Signals.Vector, "missing embedding contributes nothing")
}

func TestEntityOverlapIsCapped(t *testing.T) {
	r := NewRanker(Weights{EntityOverlap: 0.1})

	entities := []*types.Entity{
		{CanonicalName: "Alice", Aliases: []types.Alias{
			{Text: "Bob"}, {Text: "Carol"}, {Text: "Dan"}, {Text: "Erin"},
		}},
	}
	ranked := r.Rank(Request{
		Query:    "q",
		Entities: entities,
	}, []Candidate{
		{Fact: fact("f1", "Alice met Bob, Carol, Dan, and Erin", 0)},
		{Fact: fact("f2", "Alice went home", 0)},
	})

	byID := map[string]RankedFact{}
	for _, rf := range ranked {
		byID[rf.Fact.ID] = rf
	}
	assert.InDelta(t, 0.3, byID["f1"].Signals.EntityOverlap, 1e-9,
		"five hits are capped at three times the weight")
	assert.InDelta(t, 0.1, byID["f2"].Signals.EntityOverlap, 1e-9)
}

func TestTermOverlapIgnoresStopwords(t *testing.T) {
	r := NewRanker(Weights{TermOverlap: 1.0})

	ranked := r.Rank(Request{Query: "where is the Lisbon office"}, []Candidate{
		{Fact: fact("f1", "the Lisbon office moved downtown", 0)},
	})

	// Content terms are "lisbon" and "office"; both appear.
	require.Len(t, ranked, 1)
	assert.InDelta(t, 1.0, ranked[0].Signals.TermOverlap, 1e-9)
}

func TestRelationshipBonus(t *testing.T) {
	r := NewRanker(Weights{Relationship: 0.2})

	ranked := r.Rank(Request{Query: "when was the company founded"}, []Candidate{
		{Fact: fact("f1", "Helios was founded in 2009", 0)},
		{Fact: fact("f2", "Helios opened a Lisbon office", 0)},
	})

	byID := map[string]RankedFact{}
	for _, rf := range ranked {
		byID[rf.Fact.ID] = rf
	}
	assert.Equal(t, 0.2, byID["f1"].Signals.Relationship,
		"shared relationship vocabulary earns the bonus")
	assert.Zero(t, byID["f2"].Signals.Relationship)
}

func TestDirectAnswerBonus(t *testing.T) {
	r := NewRanker(Weights{DirectAnswer: 0.3})

	t.Run("spousal phrasing", func(t *testing.T) {
		ranked := r.Rank(Request{Query: "who is Alice married to"}, []Candidate{
			{Fact: fact("f1", "Alice is married to Sam", 0)},
			{Fact: fact("f2", "Alice works at Helios", 0)},
		})
		byID := map[string]RankedFact{}
		for _, rf := range ranked {
			byID[rf.Fact.ID] = rf
		}
		assert.Equal(t, 0.3, byID["f1"].Signals.DirectAnswer)
		assert.Zero(t, byID["f2"].Signals.DirectAnswer)
	})

	t.Run("location phrasing", func(t *testing.T) {
		ranked := r.Rank(Request{Query: "where is Helios headquartered"}, []Candidate{
			{Fact: fact("f1", "Helios is headquartered in Lisbon", 0)},
		})
		require.Len(t, ranked, 1)
		assert.Equal(t, 0.3, ranked[0].Signals.DirectAnswer)
	})
}

func TestConfidenceSignal(t *testing.T) {
	r := NewRanker(Weights{Confidence: 0.5})

	ranked := r.Rank(Request{Query: "q"}, []Candidate{
		{Fact: fact("f1", "a", 0.8)},
		{Fact: fact("f2", "b", 2.0)},
	})

	byID := map[string]RankedFact{}
	for _, rf := range ranked {
		byID[rf.Fact.ID] = rf
	}
	assert.InDelta(t, 0.4, byID["f1"].Signals.Confidence, 1e-9)
	assert.InDelta(t, 0.5, byID["f2"].Signals.Confidence, 1e-9,
		"out-of-range confidence clamps rather than overweighting")
}

func TestMinScoreAndLimit(t *testing.T) {
	r := NewRanker(Weights{FullText: 1.0})

	candidates := []Candidate{
		{Fact: fact("f1", "a", 0), FullTextScore: 10},
		{Fact: fact("f2", "b", 0), FullTextScore: 6},
		{Fact: fact("f3", "c", 0), FullTextScore: 1},
	}

	t.Run("min score drops weak candidates", func(t *testing.T) {
		ranked := r.Rank(Request{Query: "q", MinScore: 0.5}, candidates)
		require.Len(t, ranked, 2)
		assert.Equal(t, "f1", ranked[0].Fact.ID)
		assert.Equal(t, "f2", ranked[1].Fact.ID)
	})

	t.Run("limit truncates after filtering", func(t *testing.T) {
		ranked := r.Rank(Request{Query: "q", Limit: 1}, candidates)
		require.Len(t, ranked, 1)
		assert.Equal(t, "f1", ranked[0].Fact.ID)
	})
}

func TestWeightsNotRenormalized(t *testing.T) {
	// Weights summing to 2.0 simply scale scores; the ranker never divides
	// them back to 1.0.
	r := NewRanker(Weights{FullText: 1.0, Confidence: 1.0})

	ranked := r.Rank(Request{Query: "q"}, []Candidate{
		{Fact: fact("f1", "a", 1.0), FullTextScore: 5},
	})
	require.Len(t, ranked, 1)
	assert.InDelta(t, 2.0, ranked[0].Score, 1e-9)
}
