package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedFact(t *testing.T, st store.Store, id, text string, validAt time.Time, invalidAt *time.Time, status types.FactStatus, entityIDs ...string) {
	t.Helper()
	f := &types.Fact{
		ID:      id,
		Text:    text,
		ValidAt: validAt,
		Status:  status,
	}
	f.InvalidAt = invalidAt
	for _, eid := range entityIDs {
		f.Mentions = append(f.Mentions, types.EntityMention{
			EntityID: eid, MentionText: "x", Role: types.RoleSubject, Confidence: 1.0,
		})
	}
	require.NoError(t, st.CreateFact(context.Background(), f))
}

func ptr(t time.Time) *time.Time { return &t }

func newSeededEngine(t *testing.T) (*Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateEntity(context.Background(), &types.Entity{
		ID: "alice", CanonicalName: "Alice Chen", Kind: types.KindPerson,
		Status: types.ResolutionResolved,
	}))

	// Alice's employment history: Acme 2018-2021, Helios 2021-open.
	seedFact(t, st, "f-acme", "Alice Chen works at Acme",
		date(2018, 3, 1), ptr(date(2021, 6, 1)), types.StatusCanonical, "alice")
	seedFact(t, st, "f-helios", "Alice Chen works at Helios",
		date(2021, 6, 1), nil, types.StatusCanonical, "alice")
	seedFact(t, st, "f-super", "Alice Chen is an intern at Acme",
		date(2017, 1, 1), ptr(date(2018, 3, 1)), types.StatusSuperseded, "alice")
	seedFact(t, st, "f-other", "the Lisbon office opened",
		date(2019, 1, 1), nil, types.StatusCanonical)
	return NewEngine(st), st
}

func TestFactsAt(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	t.Run("half-open interval excludes the end instant", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2021, 6, 1), Filter{EntityID: "alice"})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-helios", facts[0].ID)
	})

	t.Run("the start instant is included", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2018, 3, 1), Filter{EntityID: "alice"})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-acme", facts[0].ID)
	})

	t.Run("superseded facts stay visible inside their closed interval", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2017, 6, 1), Filter{EntityID: "alice"})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-super", facts[0].ID)
	})

	t.Run("explicit statuses narrow the record", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2017, 6, 1), Filter{
			EntityID: "alice",
			Statuses: []types.FactStatus{types.StatusCanonical},
		})
		require.NoError(t, err)
		assert.Empty(t, facts)

		facts, err = e.FactsAt(ctx, date(2017, 6, 1), Filter{
			EntityID: "alice",
			Statuses: []types.FactStatus{types.StatusSuperseded},
		})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-super", facts[0].ID)
	})

	t.Run("topic filter narrows by text", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2022, 1, 1), Filter{Topic: "helios"})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-helios", facts[0].ID)
	})

	t.Run("open-ended facts stay valid far in the future", func(t *testing.T) {
		facts, err := e.FactsAt(ctx, date(2099, 1, 1), Filter{EntityID: "alice"})
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "f-helios", facts[0].ID)
	})
}

func TestCurrentFacts(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	facts, err := e.CurrentFacts(ctx, Filter{EntityID: "alice"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "f-helios", facts[0].ID)
}

func TestDiffBetween(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	t.Run("job change shows as one added and one removed", func(t *testing.T) {
		diff, err := e.DiffBetween(ctx, "alice", date(2020, 1, 1), date(2022, 1, 1))
		require.NoError(t, err)
		require.Len(t, diff.Added, 1)
		assert.Equal(t, "f-helios", diff.Added[0].ID)
		require.Len(t, diff.Removed, 1)
		assert.Equal(t, "f-acme", diff.Removed[0].ID)
		assert.Empty(t, diff.Unchanged)
	})

	t.Run("diff of a date against itself is empty", func(t *testing.T) {
		diff, err := e.DiffBetween(ctx, "alice", date(2020, 1, 1), date(2020, 1, 1))
		require.NoError(t, err)
		assert.Empty(t, diff.Added)
		assert.Empty(t, diff.Removed)
		require.Len(t, diff.Unchanged, 1)
	})
}

func TestEntityTimeline(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	timeline, err := e.EntityTimeline(ctx, "alice", nil, nil)
	require.NoError(t, err)
	require.Len(t, timeline.Facts, 3)

	t.Run("ordered by validity start ascending", func(t *testing.T) {
		assert.Equal(t, "f-super", timeline.Facts[0].ID)
		assert.Equal(t, "f-acme", timeline.Facts[1].ID)
		assert.Equal(t, "f-helios", timeline.Facts[2].ID)
	})

	t.Run("bounds clip by validity start", func(t *testing.T) {
		clipped, err := e.EntityTimeline(ctx, "alice", ptr(date(2018, 1, 1)), ptr(date(2021, 1, 1)))
		require.NoError(t, err)
		require.Len(t, clipped.Facts, 1)
		assert.Equal(t, "f-acme", clipped.Facts[0].ID)
	})

	t.Run("group by year", func(t *testing.T) {
		groups := timeline.GroupByYear()
		assert.Len(t, groups[2017], 1)
		assert.Len(t, groups[2018], 1)
		assert.Len(t, groups[2021], 1)
	})

	t.Run("group by month", func(t *testing.T) {
		groups := timeline.GroupByMonth()
		assert.Len(t, groups["2018-03"], 1)
		assert.Len(t, groups["2021-06"], 1)
	})

	t.Run("durations measure open facts to now", func(t *testing.T) {
		now := date(2023, 6, 1)
		durations := timeline.Durations(now)
		assert.Equal(t, date(2021, 6, 1).Sub(date(2018, 3, 1)), durations["f-acme"])
		assert.Equal(t, now.Sub(date(2021, 6, 1)), durations["f-helios"])
	})

	t.Run("adjacent intervals do not overlap", func(t *testing.T) {
		assert.Empty(t, timeline.Overlaps())
	})

	t.Run("state at an instant", func(t *testing.T) {
		state := timeline.StateAt(date(2019, 1, 1))
		require.Len(t, state, 1)
		assert.Equal(t, "f-acme", state[0].ID)
	})
}

func TestTimelineOverlaps(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateEntity(ctx, &types.Entity{
		ID: "e1", CanonicalName: "Acme", Kind: types.KindOrganization,
		Status: types.ResolutionResolved,
	}))
	seedFact(t, st, "f1", "Acme operates in Berlin",
		date(2020, 1, 1), ptr(date(2022, 1, 1)), types.StatusCanonical, "e1")
	seedFact(t, st, "f2", "Acme operates in Munich",
		date(2021, 1, 1), nil, types.StatusCanonical, "e1")

	timeline, err := NewEngine(st).EntityTimeline(ctx, "e1", nil, nil)
	require.NoError(t, err)

	pairs := timeline.Overlaps()
	require.Len(t, pairs, 1)
	assert.Equal(t, "f1", pairs[0].Fact1.ID)
	assert.Equal(t, "f2", pairs[0].Fact2.ID)
}

func TestFactsCreatedBetween(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	facts, err := e.FactsCreatedBetween(ctx, date(2018, 1, 1), date(2021, 6, 1), Filter{})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "f-acme", facts[0].ID)
	assert.Equal(t, "f-other", facts[1].ID)
}

func TestFactsInvalidatedBetween(t *testing.T) {
	ctx := context.Background()
	e, _ := newSeededEngine(t)

	facts, err := e.FactsInvalidatedBetween(ctx, date(2021, 1, 1), date(2022, 1, 1), Filter{})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "f-acme", facts[0].ID)
}
