package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("kitten", "kitten"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 5, Levenshtein("", "abcde"))
	assert.Equal(t, 5, Levenshtein("abcde", ""))
	assert.Equal(t, 1, Levenshtein("Johnson", "Johnsen"))
}

func TestNameSimilarity(t *testing.T) {
	t.Run("identical names score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("Robert Johnson", "Robert Johnson"))
	})

	t.Run("case and whitespace are normalized away", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("  robert   JOHNSON ", "Robert Johnson"))
	})

	t.Run("one edit over fourteen runes", func(t *testing.T) {
		sim := NameSimilarity("Robert Johnson", "Robert Johnsen")
		assert.InDelta(t, 1.0-1.0/14.0, sim, 1e-9)
	})

	t.Run("disjoint names score low", func(t *testing.T) {
		assert.Less(t, NameSimilarity("Robert Johnson", "Acme Corporation"), 0.4)
	})

	t.Run("empty names are identical", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("", " "))
	})
}

func TestWordOverlap(t *testing.T) {
	t.Run("identical text scores 1", func(t *testing.T) {
		assert.Equal(t, 1.0, WordOverlap("Alice is CEO of Acme", "Alice is CEO of Acme"))
	})

	t.Run("no shared words scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, WordOverlap("alpha beta", "gamma delta"))
	})

	t.Run("partial overlap lands strictly between", func(t *testing.T) {
		sim := WordOverlap("Alice is the CEO of Acme", "Alice is the chief executive of Acme")
		assert.Greater(t, sim, 0.0)
		assert.Less(t, sim, 1.0)
	})

	t.Run("punctuation does not split word identity", func(t *testing.T) {
		assert.Equal(t, 1.0, WordOverlap("Alice joined Acme.", "alice joined acme"))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "Alice married Bob in Paris", "Bob lives in Paris"
		assert.Equal(t, WordOverlap(a, b), WordOverlap(b, a))
	})
}
