// Package temporal answers point-in-time and interval questions over the
// fact store: what was true at a date, what changed between two dates, and
// how an entity's assertions unfolded over time.
package temporal

import (
	"context"
	"sort"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// Engine runs temporal queries. It only reads; all mutation goes through the
// lifecycle manager.
type Engine struct {
	store store.Store
}

// NewEngine creates an Engine over the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Filter narrows a temporal query to one entity and/or a text topic.
// An empty Statuses means the canonical record of each era: canonical and
// corroborated facts, plus superseded facts, which were canonical within
// their closed validity interval.
type Filter struct {
	EntityID string
	Topic    string
	Statuses []types.FactStatus
}

// defaultStatuses is the canonical-record view used when a Filter does not
// name statuses. Superseded facts stay in: their interval is closed at the
// handover, so they only surface for instants before it.
var defaultStatuses = []types.FactStatus{
	types.StatusCanonical,
	types.StatusCorroborated,
	types.StatusSuperseded,
}

// Diff is the change set between two instants.
type Diff struct {
	Added     []*types.Fact
	Removed   []*types.Fact
	Unchanged []*types.Fact
}

// OverlapPair is two facts from one timeline whose validity intervals
// intersect.
type OverlapPair struct {
	Fact1 *types.Fact
	Fact2 *types.Fact
}

// Timeline is an entity's facts ordered by validity start.
type Timeline struct {
	EntityID string
	Facts    []*types.Fact
}

// FactsAt returns the facts whose validity interval contains the instant,
// ordered by validity start.
func (e *Engine) FactsAt(ctx context.Context, at time.Time, filter Filter) ([]*types.Fact, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = defaultStatuses
	}
	candidates, err := e.store.ListFacts(ctx, store.FactFilter{
		EntityID: filter.EntityID,
		Topic:    filter.Topic,
		Statuses: statuses,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*types.Fact, 0, len(candidates))
	for _, f := range candidates {
		if f.IsValidAt(at) {
			result = append(result, f)
		}
	}
	return result, nil
}

// CurrentFacts is FactsAt(now).
func (e *Engine) CurrentFacts(ctx context.Context, filter Filter) ([]*types.Fact, error) {
	return e.FactsAt(ctx, time.Now().UTC(), filter)
}

// DiffBetween computes what changed for an entity between two instants,
// using fact identity for membership. Added facts are valid at to but not at
// from, removed the reverse, unchanged the intersection. Diffing an instant
// against itself yields empty added and removed sets.
func (e *Engine) DiffBetween(ctx context.Context, entityID string, from, to time.Time) (*Diff, error) {
	filter := Filter{EntityID: entityID}
	atFrom, err := e.FactsAt(ctx, from, filter)
	if err != nil {
		return nil, err
	}
	atTo, err := e.FactsAt(ctx, to, filter)
	if err != nil {
		return nil, err
	}

	fromIDs := make(map[string]bool, len(atFrom))
	for _, f := range atFrom {
		fromIDs[f.ID] = true
	}
	toIDs := make(map[string]bool, len(atTo))
	for _, f := range atTo {
		toIDs[f.ID] = true
	}

	diff := &Diff{}
	for _, f := range atTo {
		if fromIDs[f.ID] {
			diff.Unchanged = append(diff.Unchanged, f)
		} else {
			diff.Added = append(diff.Added, f)
		}
	}
	for _, f := range atFrom {
		if !toIDs[f.ID] {
			diff.Removed = append(diff.Removed, f)
		}
	}
	return diff, nil
}

// EntityTimeline returns an entity's facts ordered by validity start,
// optionally clipped to [from, to). Nil bounds leave that side open.
func (e *Engine) EntityTimeline(ctx context.Context, entityID string, from, to *time.Time) (*Timeline, error) {
	facts, err := e.store.ListFacts(ctx, store.FactFilter{EntityID: entityID})
	if err != nil {
		return nil, err
	}

	var kept []*types.Fact
	for _, f := range facts {
		if from != nil && f.ValidAt.Before(*from) {
			continue
		}
		if to != nil && !f.ValidAt.Before(*to) {
			continue
		}
		kept = append(kept, f)
	}
	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].ValidAt.Equal(kept[j].ValidAt) {
			return kept[i].ValidAt.Before(kept[j].ValidAt)
		}
		return kept[i].ID < kept[j].ID
	})
	return &Timeline{EntityID: entityID, Facts: kept}, nil
}

// GroupByYear buckets the timeline's facts by the calendar year of their
// validity start.
func (t *Timeline) GroupByYear() map[int][]*types.Fact {
	groups := make(map[int][]*types.Fact)
	for _, f := range t.Facts {
		year := f.ValidAt.UTC().Year()
		groups[year] = append(groups[year], f)
	}
	return groups
}

// GroupByMonth buckets the timeline's facts by calendar month, keyed
// "YYYY-MM".
func (t *Timeline) GroupByMonth() map[string][]*types.Fact {
	groups := make(map[string][]*types.Fact)
	for _, f := range t.Facts {
		key := f.ValidAt.UTC().Format("2006-01")
		groups[key] = append(groups[key], f)
	}
	return groups
}

// Durations returns each fact's validity length, measured to now for
// open-ended facts, keyed by fact id.
func (t *Timeline) Durations(now time.Time) map[string]time.Duration {
	result := make(map[string]time.Duration, len(t.Facts))
	for _, f := range t.Facts {
		result[f.ID] = f.Duration(now)
	}
	return result
}

// Overlaps returns every pair of facts on the timeline whose validity
// intervals intersect.
func (t *Timeline) Overlaps() []OverlapPair {
	var pairs []OverlapPair
	for i := 0; i < len(t.Facts); i++ {
		for j := i + 1; j < len(t.Facts); j++ {
			if t.Facts[i].Overlaps(t.Facts[j]) {
				pairs = append(pairs, OverlapPair{Fact1: t.Facts[i], Fact2: t.Facts[j]})
			}
		}
	}
	return pairs
}

// StateAt returns the subset of the timeline valid at the instant.
func (t *Timeline) StateAt(at time.Time) []*types.Fact {
	var result []*types.Fact
	for _, f := range t.Facts {
		if f.IsValidAt(at) {
			result = append(result, f)
		}
	}
	return result
}

// FactsCreatedBetween returns facts whose validity starts inside [from, to),
// ordered ascending by validity start.
func (e *Engine) FactsCreatedBetween(ctx context.Context, from, to time.Time, filter Filter) ([]*types.Fact, error) {
	candidates, err := e.store.ListFacts(ctx, store.FactFilter{
		EntityID: filter.EntityID,
		Topic:    filter.Topic,
		Statuses: filter.Statuses,
	})
	if err != nil {
		return nil, err
	}
	var result []*types.Fact
	for _, f := range candidates {
		if !f.ValidAt.Before(from) && f.ValidAt.Before(to) {
			result = append(result, f)
		}
	}
	sortByValidAt(result)
	return result, nil
}

// FactsInvalidatedBetween returns facts whose validity ends inside [from,
// to), ordered ascending by the invalidation instant.
func (e *Engine) FactsInvalidatedBetween(ctx context.Context, from, to time.Time, filter Filter) ([]*types.Fact, error) {
	candidates, err := e.store.ListFacts(ctx, store.FactFilter{
		EntityID: filter.EntityID,
		Topic:    filter.Topic,
		Statuses: filter.Statuses,
	})
	if err != nil {
		return nil, err
	}
	var result []*types.Fact
	for _, f := range candidates {
		if f.InvalidAt == nil {
			continue
		}
		if !f.InvalidAt.Before(from) && f.InvalidAt.Before(to) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].InvalidAt.Equal(*result[j].InvalidAt) {
			return result[i].InvalidAt.Before(*result[j].InvalidAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func sortByValidAt(list []*types.Fact) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ValidAt.Equal(list[j].ValidAt) {
			return list[i].ValidAt.Before(list[j].ValidAt)
		}
		return list[i].ID < list[j].ID
	})
}
