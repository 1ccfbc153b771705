package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

func TestRulesExtract(t *testing.T) {
	ctx := context.Background()
	r := NewRules()

	t.Run("ceo pattern", func(t *testing.T) {
		candidates, err := r.Extract(ctx, "Alice Chen is the CEO of Acme Corp", Options{})
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)

		f := candidates.Facts[0]
		assert.Equal(t, "Alice Chen is the CEO of Acme Corp", f.Text)
		require.Len(t, f.Mentions, 2)
		assert.Equal(t, "Alice Chen", f.Mentions[0].Name)
		assert.Equal(t, "person", f.Mentions[0].Kind)
		assert.Equal(t, "subject", f.Mentions[0].Role)
		assert.Equal(t, "Acme Corp", f.Mentions[1].Name)
		assert.Equal(t, "organization", f.Mentions[1].Kind)
	})

	t.Run("spousal pattern", func(t *testing.T) {
		candidates, err := r.Extract(ctx, "Paula Chen is married to Sam Park", Options{})
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)
		assert.Equal(t, "person", candidates.Facts[0].Mentions[1].Kind)
	})

	t.Run("location pattern", func(t *testing.T) {
		candidates, err := r.Extract(ctx, "Helios Energy is headquartered in Lisbon", Options{})
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)
		assert.Equal(t, "location", candidates.Facts[0].Mentions[1].Role)
		assert.Equal(t, "place", candidates.Facts[0].Mentions[1].Kind)
	})

	t.Run("multiple sentences yield multiple facts", func(t *testing.T) {
		text := "Alice Chen works at Acme. Alice Chen is married to Sam Park."
		candidates, err := r.Extract(ctx, text, Options{})
		require.NoError(t, err)
		assert.Len(t, candidates.Facts, 2)
	})

	t.Run("entities are deduplicated across sentences", func(t *testing.T) {
		text := "Alice Chen works at Acme. Alice Chen founded Helios Energy."
		candidates, err := r.Extract(ctx, text, Options{})
		require.NoError(t, err)

		names := map[string]int{}
		for _, e := range candidates.Entities {
			names[e.Name]++
		}
		assert.Equal(t, 1, names["Alice Chen"])
	})

	t.Run("no pattern matches yields empty candidates", func(t *testing.T) {
		candidates, err := r.Extract(ctx, "the weather was pleasant all week", Options{})
		require.NoError(t, err)
		assert.Empty(t, candidates.Facts)
		assert.Empty(t, candidates.Entities)
	})
}

func TestManualExtract(t *testing.T) {
	ctx := context.Background()
	in := types.Candidates{
		Facts: []types.CandidateFact{{Text: "hand-entered assertion", Confidence: 1.0}},
	}
	m := NewManual(in)

	candidates, err := m.Extract(ctx, "ignored", Options{})
	require.NoError(t, err)
	assert.Equal(t, in.Facts, candidates.Facts)
	assert.Equal(t, string(types.ExtractionManual), m.Name())
}

func TestParseCandidates(t *testing.T) {
	t.Run("clean json", func(t *testing.T) {
		candidates, err := parseCandidates(`{"facts":[{"text":"a","confidence":0.9}],"entities":[]}`)
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)
		assert.Equal(t, "a", candidates.Facts[0].Text)
	})

	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"facts\":[{\"text\":\"b\"}],\"entities\":[]}\n```"
		candidates, err := parseCandidates(raw)
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)
		assert.Equal(t, "b", candidates.Facts[0].Text)
	})

	t.Run("truncated json is repaired", func(t *testing.T) {
		candidates, err := parseCandidates(`{"facts":[{"text":"c","confidence":0.8}`)
		require.NoError(t, err)
		require.Len(t, candidates.Facts, 1)
		assert.Equal(t, "c", candidates.Facts[0].Text)
	})

	t.Run("unparseable output is an error", func(t *testing.T) {
		_, err := parseCandidates("I could not find any facts.")
		assert.Error(t, err)
	})
}

type failingMethod struct {
	calls int
}

func (f *failingMethod) Name() string { return "failing" }

func (f *failingMethod) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	f.calls++
	return nil, errors.New("remote extractor down")
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	inner := &failingMethod{}
	b := NewBreakerMethod(inner, BreakerConfig{
		MaxRequests:      1,
		IntervalSeconds:  60,
		TimeoutSeconds:   60,
		ReadyToTripRatio: 0.5,
	}, nil)

	for i := 0; i < 5; i++ {
		_, err := b.Extract(ctx, "text", Options{})
		assert.Error(t, err)
	}

	// Once open, the breaker fails fast without reaching the method.
	callsWhenOpened := inner.calls
	_, err := b.Extract(ctx, "text", Options{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callsWhenOpened, inner.calls)
}

func TestBreakerPassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerMethod(NewRules(), DefaultBreakerConfig(), nil)

	candidates, err := b.Extract(ctx, "Alice Chen works at Acme", Options{})
	require.NoError(t, err)
	assert.Len(t, candidates.Facts, 1)
	assert.Equal(t, string(types.ExtractionRuleBased), b.Name())
}
