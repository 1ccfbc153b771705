package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

func newTestResolver(t *testing.T) (*Resolver, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return New(st, DefaultOptions(), nil), st
}

func seedEntity(t *testing.T, st store.Store, id, name string, kind types.EntityKind, aliases ...string) *types.Entity {
	t.Helper()
	e := &types.Entity{
		ID:            id,
		CanonicalName: name,
		Kind:          kind,
		Status:        types.ResolutionResolved,
	}
	for _, a := range aliases {
		e.AddAlias(types.Alias{Text: a, Kind: types.AliasNickname, Confidence: 0.9})
	}
	require.NoError(t, st.CreateEntity(context.Background(), e))
	return e
}

func seedMentionFact(t *testing.T, st store.Store, factID, entityID string) {
	t.Helper()
	f := &types.Fact{
		ID:      factID,
		Text:    "mention carrier " + factID,
		ValidAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:  types.StatusCanonical,
		Mentions: []types.EntityMention{
			{EntityID: entityID, MentionText: "x", Role: types.RoleSubject, Confidence: 1.0},
		},
	}
	require.NoError(t, st.CreateFact(context.Background(), f))
}

func TestResolvePrecedence(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson, "Bob Johnson")

	t.Run("exact alias beats fuzzy", func(t *testing.T) {
		resolved, err := r.Resolve(ctx, "Bob Johnson", "")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, "e1", resolved.Entity.ID)
		assert.Equal(t, 1.0, resolved.Confidence)
		assert.Equal(t, MatchExactAlias, resolved.MatchType)
	})

	t.Run("exact name is case-insensitive", func(t *testing.T) {
		resolved, err := r.Resolve(ctx, "robert johnson", "")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, MatchName, resolved.MatchType)
		assert.Equal(t, 1.0, resolved.Confidence)
	})

	t.Run("no match returns nil", func(t *testing.T) {
		resolved, err := r.Resolve(ctx, "Wilhelmina Fitzgerald", "")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})
}

func TestResolveFuzzyThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson)

	// One edit in fourteen runes puts the similarity just above 0.92.
	t.Run("match below threshold is rejected", func(t *testing.T) {
		r := New(st, Options{FuzzyThreshold: 0.95}, nil)
		resolved, err := r.Resolve(ctx, "Robert Johnsen", "")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("lowering the threshold flips the result", func(t *testing.T) {
		r := New(st, Options{FuzzyThreshold: 0.9}, nil)
		resolved, err := r.Resolve(ctx, "Robert Johnsen", "")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, MatchFuzzy, resolved.MatchType)
		assert.InDelta(t, 1.0-1.0/14.0, resolved.Confidence, 1e-9)
	})
}

func TestResolveKindFilter(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Mercury", types.KindPlace)
	seedEntity(t, st, "e2", "Mercury", types.KindOrganization)

	resolved, err := r.Resolve(ctx, "Mercury", "organization")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "e2", resolved.Entity.ID)

	resolved, err = r.Resolve(ctx, "Mercury", "product")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveSkipsMergedEntities(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Acme Corp", types.KindOrganization)
	seedEntity(t, st, "e2", "Acme Corporation", types.KindOrganization)
	_, err := r.Merge(ctx, "e1", "e2")
	require.NoError(t, err)

	resolved, err := r.Resolve(ctx, "Acme Corporation", "")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "e1", resolved.Entity.ID, "merged entity must not win resolution")
}

func TestResolveOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when nothing matches", func(t *testing.T) {
		r, st := newTestResolver(t)
		e, err := r.ResolveOrCreate(ctx, "Paula Chen", "person",
			[]types.Alias{{Text: "P. Chen", Kind: types.AliasAbbreviation, Confidence: 0.8}}, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, types.ResolutionResolved, e.Status)
		assert.True(t, e.HasAlias("P. Chen"))

		stored, err := st.GetEntity(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Paula Chen", stored.CanonicalName)
	})

	t.Run("merges new aliases onto resolved entity", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Paula Chen", types.KindPerson)

		e, err := r.ResolveOrCreate(ctx, "Paula Chen", "person",
			[]types.Alias{{Text: "P. Chen", Kind: types.AliasAbbreviation, Confidence: 0.8}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "e1", e.ID)

		stored, err := st.GetEntity(ctx, "e1")
		require.NoError(t, err)
		assert.True(t, stored.HasAlias("P. Chen"))
	})

	t.Run("supplied alias resolves to a known entity", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Dr. Paula Chen", types.KindPerson, "P. Chen")

		e, err := r.ResolveOrCreate(ctx, "Paula X. Chenworth-Smythe", "person",
			[]types.Alias{{Text: "P. Chen", Kind: types.AliasAbbreviation, Confidence: 0.8}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "e1", e.ID)

		stored, err := st.GetEntity(ctx, "e1")
		require.NoError(t, err)
		assert.True(t, stored.HasAlias("Paula X. Chenworth-Smythe"),
			"the unmatched name becomes an alias on the found entity")
	})

	t.Run("repeat creation converges on one entity", func(t *testing.T) {
		r, st := newTestResolver(t)
		first, err := r.ResolveOrCreate(ctx, "Helios Energy", "organization", nil, nil)
		require.NoError(t, err)
		second, err := r.ResolveOrCreate(ctx, "Helios Energy", "organization", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		all, err := st.ListEntities(ctx, store.EntityFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("self merge is rejected", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Acme", types.KindOrganization)
		_, err := r.Merge(ctx, "e1", "e1")
		assert.ErrorIs(t, err, types.ErrSelfMerge)
	})

	t.Run("unknown entity surfaces not found", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Acme", types.KindOrganization)
		_, err := r.Merge(ctx, "e1", "ghost")
		assert.ErrorIs(t, err, types.ErrEntityNotFound)
	})

	t.Run("aliases and mentions move to the keeper", func(t *testing.T) {
		r, st := newTestResolver(t)
		keep := seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson, "Bob")
		keep.Aliases[0].Confidence = 0.95
		require.NoError(t, st.UpdateEntity(ctx, keep))
		seedEntity(t, st, "e2", "Rob Johnson", types.KindPerson, "Bob", "Bobby")
		seedMentionFact(t, st, "f1", "e2")
		seedMentionFact(t, st, "f2", "e2")

		merged, err := r.Merge(ctx, "e1", "e2")
		require.NoError(t, err)

		assert.True(t, merged.HasAlias("Bobby"))
		assert.True(t, merged.HasAlias("Rob Johnson"), "absorbed canonical name becomes an alias")
		for _, a := range merged.Aliases {
			if a.Text == "Bob" {
				assert.Equal(t, 0.95, a.Confidence, "keep-side alias wins on collision")
			}
		}

		count, err := st.CountMentions(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		count, err = st.CountMentions(ctx, "e2")
		require.NoError(t, err)
		assert.Zero(t, count)

		absorbed, err := st.GetEntity(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionMerged, absorbed.Status)
		assert.Equal(t, "e1", absorbed.CanonicalID)
	})

	t.Run("merge into a merged keeper is rejected", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "a", "Jon Smith", types.KindPerson)
		seedEntity(t, st, "b", "John Smith", types.KindPerson)
		seedMentionFact(t, st, "f1", "b")

		_, err := r.Merge(ctx, "a", "b")
		require.NoError(t, err)
		_, err = r.Merge(ctx, "b", "a")
		assert.ErrorIs(t, err, types.ErrAlreadyMerged)

		e, err := r.Terminal(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", e.ID, "survivor is its own terminal")
		e, err = r.Terminal(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "a", e.ID, "pointer forest stays acyclic")

		count, err := st.CountMentions(ctx, "b")
		require.NoError(t, err)
		assert.Zero(t, count, "no mention lands back on the merged entity")
	})

	t.Run("second merge of the same pair fails without duplicating aliases", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Acme Corp", types.KindOrganization)
		seedEntity(t, st, "e2", "Acme Corporation", types.KindOrganization)

		_, err := r.Merge(ctx, "e1", "e2")
		require.NoError(t, err)
		_, err = r.Merge(ctx, "e1", "e2")
		assert.ErrorIs(t, err, types.ErrAlreadyMerged)

		keep, err := st.GetEntity(ctx, "e1")
		require.NoError(t, err)
		assert.Len(t, keep.Aliases, 1)
	})
}

func TestTerminal(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "a", "Alpha One", types.KindConcept)
	seedEntity(t, st, "b", "Alpha Two", types.KindConcept)
	seedEntity(t, st, "c", "Alpha Three", types.KindConcept)

	_, err := r.Merge(ctx, "b", "a")
	require.NoError(t, err)
	_, err = r.Merge(ctx, "c", "b")
	require.NoError(t, err)

	t.Run("chain chase ends at the survivor", func(t *testing.T) {
		e, err := r.Terminal(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "c", e.ID)
	})

	t.Run("non-merged entity is its own terminal", func(t *testing.T) {
		e, err := r.Terminal(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "c", e.ID)
	})

	t.Run("cycle in malformed data is bounded", func(t *testing.T) {
		x := seedEntity(t, st, "x", "Cycle X", types.KindConcept)
		y := seedEntity(t, st, "y", "Cycle Y", types.KindConcept)
		x.Status = types.ResolutionMerged
		x.CanonicalID = "y"
		require.NoError(t, st.UpdateEntity(ctx, x))
		y.Status = types.ResolutionMerged
		y.CanonicalID = "x"
		require.NoError(t, st.UpdateEntity(ctx, y))

		_, err := r.Terminal(ctx, "x")
		assert.ErrorIs(t, err, types.ErrMergeChainTooDeep)
	})
}

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson)
	seedEntity(t, st, "e2", "Robert Johnsen", types.KindPerson)
	seedEntity(t, st, "e3", "Roberta Johnson", types.KindPerson)
	seedEntity(t, st, "e4", "Wilhelmina Fitzgerald", types.KindPerson)

	pairs, err := r.FindDuplicates(ctx, 0.85)
	require.NoError(t, err)
	require.NotEmpty(t, pairs)

	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, pairs[i-1].Similarity, pairs[i].Similarity,
			"pairs are ordered most similar first")
	}
	for _, p := range pairs {
		assert.NotEqual(t, "e4", p.Entity1.ID)
		assert.NotEqual(t, "e4", p.Entity2.ID)
	}
}

func TestFindDuplicatesScopedToResolved(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Acme Corp", types.KindOrganization)
	seedEntity(t, st, "e2", "Acme Corp.", types.KindOrganization)

	pairs, err := r.FindDuplicates(ctx, 0.85)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	t.Run("split original drops out", func(t *testing.T) {
		_, err := r.Split(ctx, "e2", []SplitConfig{
			{Name: "Acme Holdings"},
			{Name: "Acme Robotics"},
		})
		require.NoError(t, err)

		pairs, err := r.FindDuplicates(ctx, 0.85)
		require.NoError(t, err)
		for _, p := range pairs {
			assert.NotEqual(t, "e2", p.Entity1.ID)
			assert.NotEqual(t, "e2", p.Entity2.ID)
		}
	})

	t.Run("unresolved entity stays out", func(t *testing.T) {
		e := seedEntity(t, st, "e3", "Acme Corps", types.KindOrganization)
		e.Status = types.ResolutionUnresolved
		require.NoError(t, st.UpdateEntity(ctx, e))

		pairs, err := r.FindDuplicates(ctx, 0.85)
		require.NoError(t, err)
		for _, p := range pairs {
			assert.NotEqual(t, "e3", p.Entity1.ID)
			assert.NotEqual(t, "e3", p.Entity2.ID)
		}
	})
}

func TestAutoMergeDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("more mentions wins", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson)
		seedEntity(t, st, "e2", "Robert Johnsen", types.KindPerson)
		seedMentionFact(t, st, "f1", "e2")

		merged, err := r.AutoMergeDuplicates(ctx)
		require.NoError(t, err)
		require.Len(t, merged, 1)

		absorbed, err := st.GetEntity(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionMerged, absorbed.Status)
		assert.Equal(t, "e2", absorbed.CanonicalID)
	})

	t.Run("equal mentions falls back to lower id", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson)
		seedEntity(t, st, "e2", "Robert Johnsen", types.KindPerson)

		merged, err := r.AutoMergeDuplicates(ctx)
		require.NoError(t, err)
		require.Len(t, merged, 1)

		absorbed, err := st.GetEntity(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionMerged, absorbed.Status)
		assert.Equal(t, "e1", absorbed.CanonicalID)
	})

	t.Run("converged set needs zero further merges", func(t *testing.T) {
		r, st := newTestResolver(t)
		seedEntity(t, st, "e1", "Robert Johnson", types.KindPerson)
		seedEntity(t, st, "e2", "Robert Johnsen", types.KindPerson)

		first, err := r.AutoMergeDuplicates(ctx)
		require.NoError(t, err)
		assert.Len(t, first, 1)

		second, err := r.AutoMergeDuplicates(ctx)
		require.NoError(t, err)
		assert.Empty(t, second)
	})
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	r, st := newTestResolver(t)
	seedEntity(t, st, "e1", "Mercury", types.KindConcept)
	seedMentionFact(t, st, "f1", "e1")

	created, err := r.Split(ctx, "e1", []SplitConfig{
		{Name: "Mercury (planet)", Kind: "place"},
		{Name: "Mercury (element)"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, types.KindPlace, created[0].Kind)
	assert.Equal(t, types.KindConcept, created[1].Kind, "kind defaults to the original's")

	original, err := st.GetEntity(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, types.ResolutionSplit, original.Status)

	count, err := st.CountMentions(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "existing mentions stay on the original")
}
