package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

func seedFact(t *testing.T, st store.Store, id, text string, status types.FactStatus, invalidAt *time.Time, entityIDs ...string) {
	t.Helper()
	f := &types.Fact{
		ID:        id,
		Text:      text,
		ValidAt:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		InvalidAt: invalidAt,
		Status:    status,
	}
	for _, eid := range entityIDs {
		f.Mentions = append(f.Mentions, types.EntityMention{
			EntityID: eid, MentionText: "x", Role: types.RoleSubject, Confidence: 1.0,
		})
	}
	require.NoError(t, st.CreateFact(context.Background(), f))
}

func TestFindConflicts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateEntity(ctx, &types.Entity{
		ID: "acme", CanonicalName: "Acme", Kind: types.KindOrganization,
		Status: types.ResolutionResolved,
	}))

	// Three words of four shared: similarity 3/5 = 0.6, inside the band.
	seedFact(t, st, "f-berlin", "headquarters moved to Berlin", types.StatusCanonical, nil, "acme")
	seedFact(t, st, "f-munich", "headquarters moved to Munich", types.StatusCanonical, nil, "acme")
	seedFact(t, st, "f-lunch", "cafeteria serves lunch daily", types.StatusCanonical, nil)

	d := NewDetector(st, 0, 0)

	t.Run("near-duplicate pair inside the band is reported", func(t *testing.T) {
		conflicts, err := d.FindConflicts(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "f-berlin", conflicts[0].Fact1.ID)
		assert.Equal(t, "f-munich", conflicts[0].Fact2.ID)
		assert.InDelta(t, 0.6, conflicts[0].Similarity, 1e-9)
	})

	t.Run("identical assertions are a dedup concern, not a conflict", func(t *testing.T) {
		seedFact(t, st, "f-berlin-2", "Headquarters moved to Berlin", types.StatusCanonical, nil, "acme")
		defer func() {
			// Close it out so later subtests see the original three facts.
			f, err := st.GetFact(ctx, "f-berlin-2")
			require.NoError(t, err)
			f.Status = types.StatusSuperseded
			require.NoError(t, st.UpdateFact(ctx, f))
		}()

		conflicts, err := d.FindConflicts(ctx, "", "")
		require.NoError(t, err)
		for _, c := range conflicts {
			assert.Less(t, c.Similarity, 0.95)
		}
	})

	t.Run("superseded and expired facts are ignored", func(t *testing.T) {
		past := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		seedFact(t, st, "f-old", "headquarters moved to Hamburg", types.StatusSuperseded, nil, "acme")
		seedFact(t, st, "f-expired", "headquarters moved to Vienna", types.StatusCanonical, &past, "acme")

		conflicts, err := d.FindConflicts(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "f-berlin", conflicts[0].Fact1.ID)
	})

	t.Run("entity filter narrows candidates", func(t *testing.T) {
		conflicts, err := d.FindConflicts(ctx, "acme", "")
		require.NoError(t, err)
		assert.Len(t, conflicts, 1)

		conflicts, err = d.FindConflicts(ctx, "nobody", "")
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("topic filter narrows candidates", func(t *testing.T) {
		conflicts, err := d.FindConflicts(ctx, "", "cafeteria")
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})
}

func TestFindConflictsOrdering(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	seedFact(t, st, "a", "the project ships in March", types.StatusCanonical, nil)
	seedFact(t, st, "b", "the project ships in April", types.StatusCanonical, nil)
	seedFact(t, st, "c", "the project ships early in April maybe", types.StatusCanonical, nil)

	conflicts, err := NewDetector(st, 0, 0).FindConflicts(ctx, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, conflicts)
	for i := 1; i < len(conflicts); i++ {
		assert.GreaterOrEqual(t, conflicts[i-1].Similarity, conflicts[i].Similarity)
	}
}
