// Package conflict surfaces pairs of currently-valid assertions that look
// like competing versions of the same statement.
package conflict

import (
	"context"
	"sort"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/similarity"
	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// Pairs below LowerBound are judged unrelated; pairs at or above UpperBound
// are the same assertion twice, a deduplication concern rather than a
// conflict. Only the band strictly between the two is reported.
const (
	DefaultLowerBound = 0.5
	DefaultUpperBound = 0.95
)

// Conflict is a candidate pair of competing assertions.
type Conflict struct {
	Fact1      *types.Fact
	Fact2      *types.Fact
	Similarity float64
}

// Detector finds conflicts among canonical, currently-valid facts. It is
// advisory only and never mutates state; resolution goes through the fact
// lifecycle manager.
type Detector struct {
	store      store.Store
	lowerBound float64
	upperBound float64
}

// NewDetector creates a Detector with the given similarity band.
// Non-positive bounds fall back to the defaults.
func NewDetector(st store.Store, lowerBound, upperBound float64) *Detector {
	if lowerBound <= 0 {
		lowerBound = DefaultLowerBound
	}
	if upperBound <= 0 {
		upperBound = DefaultUpperBound
	}
	return &Detector{store: st, lowerBound: lowerBound, upperBound: upperBound}
}

// FindConflicts compares canonical, currently-valid facts pairwise by word
// overlap and reports pairs inside the open band (lower, upper), most
// similar first. EntityID and topic, when non-empty, narrow the candidate
// set before comparison.
func (d *Detector) FindConflicts(ctx context.Context, entityID, topic string) ([]Conflict, error) {
	candidates, err := d.store.ListFacts(ctx, store.FactFilter{
		EntityID: entityID,
		Topic:    topic,
		Statuses: []types.FactStatus{types.StatusCanonical},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var current []*types.Fact
	for _, f := range candidates {
		if f.IsValidAt(now) {
			current = append(current, f)
		}
	}

	var conflicts []Conflict
	for i := 0; i < len(current); i++ {
		for j := i + 1; j < len(current); j++ {
			score := similarity.WordOverlap(current[i].Text, current[j].Text)
			if score > d.lowerBound && score < d.upperBound {
				conflicts = append(conflicts, Conflict{
					Fact1:      current[i],
					Fact2:      current[j],
					Similarity: score,
				})
			}
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Similarity != conflicts[j].Similarity {
			return conflicts[i].Similarity > conflicts[j].Similarity
		}
		if conflicts[i].Fact1.ID != conflicts[j].Fact1.ID {
			return conflicts[i].Fact1.ID < conflicts[j].Fact1.ID
		}
		return conflicts[i].Fact2.ID < conflicts[j].Fact2.ID
	})
	return conflicts, nil
}
