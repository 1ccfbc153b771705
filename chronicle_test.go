package chronicle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/batch"
	"github.com/chronicle-kb/chronicle/pkg/resolver"
	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/temporal"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(store.NewMemoryStore(), nil, nil, nil, nil)
	require.NoError(t, err)
	return client
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAliasResolutionScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	paula, err := c.ResolveOrCreate(ctx, "Paula Chen", "person",
		[]types.Alias{{Text: "P. Chen", Kind: types.AliasAbbreviation, Confidence: 0.9}}, nil)
	require.NoError(t, err)

	resolved, err := c.Resolve(ctx, "P. Chen", "")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, paula.ID, resolved.Entity.ID)
	assert.Equal(t, 1.0, resolved.Confidence)
	assert.Equal(t, resolver.MatchExactAlias, resolved.MatchType)
}

func TestSupersessionScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	acme, err := c.ResolveOrCreate(ctx, "Acme", "organization", nil, nil)
	require.NoError(t, err)

	aliceFact, err := c.CreateFact(ctx, &types.Fact{
		Text:       "Alice Chen is CEO",
		ValidAt:    date(2018, 3, 1),
		Confidence: 0.9,
		Mentions: []types.EntityMention{
			{EntityID: acme.ID, MentionText: "Acme", Role: types.RoleObject, Confidence: 1.0},
		},
	})
	require.NoError(t, err)

	davidFact, err := c.SupersedeFact(ctx, aliceFact.ID, "David Park is CEO", date(2025, 1, 1), nil)
	require.NoError(t, err)

	t.Run("interval continuity", func(t *testing.T) {
		old, err := c.GetFact(ctx, aliceFact.ID)
		require.NoError(t, err)
		require.NotNil(t, old.InvalidAt)
		assert.True(t, old.InvalidAt.Equal(davidFact.ValidAt))
		assert.Equal(t, davidFact.ID, old.SupersededByID)
	})

	t.Run("before the handover only the old fact is visible", func(t *testing.T) {
		facts, err := c.FactsAt(ctx, date(2024, 6, 1), temporal.Filter{})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, aliceFact.ID, facts[0].ID)
	})

	t.Run("after the handover only the new fact is visible", func(t *testing.T) {
		facts, err := c.FactsAt(ctx, date(2025, 6, 1), temporal.Filter{})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, davidFact.ID, facts[0].ID)
	})
}

func TestIngestTextEndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	result, err := c.IngestText(ctx,
		"Alice Chen is the CEO of Acme Corp", date(2020, 1, 1), "press-release-14")
	require.NoError(t, err)
	require.Len(t, result.FactIDs, 1)
	require.Len(t, result.EntityIDs, 2)

	f, err := c.GetFact(ctx, result.FactIDs[0])
	require.NoError(t, err)
	assert.Equal(t, types.ExtractionRuleBased, f.Method)
	assert.Equal(t, date(2020, 1, 1), f.ValidAt)
	require.Len(t, f.Sources, 1)
	assert.Equal(t, "press-release-14", f.Sources[0].SourceID)
	assert.Equal(t, types.SourcePrimary, f.Sources[0].Kind)

	resolved, err := c.Resolve(ctx, "Alice Chen", "person")
	require.NoError(t, err)
	require.NotNil(t, resolved)

	t.Run("re-ingesting the same text is idempotent", func(t *testing.T) {
		again, err := c.IngestText(ctx,
			"Alice Chen is the CEO of Acme Corp", date(2020, 1, 1), "press-release-14")
		require.NoError(t, err)
		assert.Equal(t, result.FactIDs, again.FactIDs)
	})
}

func TestIngestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	results := c.IngestBatch(ctx, []batch.Item{
		{ID: "a", Text: "Alice Chen works at Acme", ValidAt: date(2021, 1, 1), SourceID: "a"},
		{ID: "b", Text: "nothing extractable in this one", ValidAt: date(2021, 1, 1), SourceID: "b"},
		{ID: "c", Text: "Sam Park founded Helios Energy", ValidAt: date(2021, 1, 1), SourceID: "c"},
	})

	require.Len(t, results, 3)
	assert.Len(t, results[0].FactIDs, 1)
	assert.Empty(t, results[1].FactIDs, "no matches is a valid, empty outcome")
	assert.NoError(t, results[1].Err)
	assert.Len(t, results[2].FactIDs, 1)
}

func TestRetrieveRanksRelevantFactFirst(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.IngestText(ctx, "David Park is the CEO of Acme Corp", date(2024, 1, 1), "s1")
	require.NoError(t, err)
	_, err = c.IngestText(ctx, "Paula Chen works at Helios Energy", date(2024, 1, 1), "s2")
	require.NoError(t, err)

	result, err := c.Retrieve(ctx, "who is the CEO of Acme Corp")
	require.NoError(t, err)
	require.NotEmpty(t, result.Facts)
	assert.Contains(t, result.Facts[0].Text, "David Park")
	assert.Equal(t, "who is the CEO of Acme Corp", result.Query)

	t.Run("mentioned entities ride along", func(t *testing.T) {
		found := false
		for _, e := range result.Entities {
			if e.CanonicalName == "David Park" {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestSynthesisConfidence(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	f1, err := c.CreateFact(ctx, &types.Fact{
		Text: "Alice joined Acme as an engineer", ValidAt: date(2019, 1, 1), Confidence: 0.9,
	})
	require.NoError(t, err)
	f2, err := c.CreateFact(ctx, &types.Fact{
		Text: "Alice was promoted to lead engineer", ValidAt: date(2020, 1, 1), Confidence: 0.7,
	})
	require.NoError(t, err)

	synth, err := c.SynthesizeFact(ctx, []string{f1.ID, f2.ID},
		"Alice rose from engineer to lead engineer at Acme", date(2019, 1, 1), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, synth.Confidence, 1e-9)
	assert.Equal(t, []string{f1.ID, f2.ID}, synth.DerivedFromIDs)
}

func TestConflictDetectionAndResolution(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	berlin, err := c.CreateFact(ctx, &types.Fact{
		Text: "headquarters moved to Berlin", ValidAt: date(2024, 1, 1), Confidence: 0.9,
	})
	require.NoError(t, err)
	munich, err := c.CreateFact(ctx, &types.Fact{
		Text: "headquarters moved to Munich", ValidAt: date(2024, 1, 1), Confidence: 0.6,
	})
	require.NoError(t, err)

	conflicts, err := c.FindConflicts(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	require.NoError(t, c.ResolveConflict(ctx, berlin.ID, []string{munich.ID}, "stronger source"))

	after, err := c.FindConflicts(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, after, "resolution removes the pair from the conflict set")

	loser, err := c.GetFact(ctx, munich.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuperseded, loser.Status)
	assert.Equal(t, berlin.ID, loser.SupersededByID)
}

func TestDiffIdentityLaw(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	alice, err := c.ResolveOrCreate(ctx, "Alice Chen", "person", nil, nil)
	require.NoError(t, err)
	_, err = c.CreateFact(ctx, &types.Fact{
		Text:    "Alice Chen lives in Lisbon",
		ValidAt: date(2022, 1, 1),
		Mentions: []types.EntityMention{
			{EntityID: alice.ID, MentionText: "Alice Chen", Role: types.RoleSubject, Confidence: 1.0},
		},
	})
	require.NoError(t, err)

	d := date(2023, 1, 1)
	diff, err := c.DiffBetween(ctx, alice.ID, d, d)
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)

	at, err := c.FactsAt(ctx, d, temporal.Filter{EntityID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, diff.Unchanged, len(at))
}

func TestMergeConvergenceAfterRacingCreates(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	// Concurrent ingest can race to create near-duplicate entities before
	// either resolver call sees the other's write. Simulate the race by
	// seeding the duplicates directly, then let the maintenance pass
	// converge them.
	for _, e := range []*types.Entity{
		{ID: "r1", CanonicalName: "Robert Johnson", Kind: types.KindPerson, Status: types.ResolutionResolved},
		{ID: "r2", CanonicalName: "Robert Johnsen", Kind: types.KindPerson, Status: types.ResolutionResolved},
	} {
		require.NoError(t, c.Store().CreateEntity(ctx, e))
	}

	merged, err := c.AutoMergeDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, merged, 1)

	terminal, err := c.TerminalEntity(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "r1", terminal.ID)

	again, err := c.AutoMergeDuplicates(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "a converged set needs zero further merges")
}

func TestNameSpans(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"name mid-sentence", "who is the ceo of Acme Corp", []string{"Acme Corp"}},
		{"query opens with a name", "Paula Chen is married to whom", []string{"Paula Chen"}},
		{"sentence-case opener is not a name", "Where does Paula Chen work", []string{"Paula Chen"}},
		{"single-word query", "Paula", []string{"Paula"}},
		{"punctuation is trimmed", "what happened to Acme Corp?", []string{"Acme Corp"}},
		{"nothing capitalized", "who said that", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nameSpans(tc.query))
		})
	}
}
