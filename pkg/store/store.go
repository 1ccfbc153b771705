// Package store defines the persistence contracts the chronicle core needs
// from a backing store, together with three interchangeable implementations:
// an in-memory reference store, a PostgreSQL store (lib/pq + pgvector +
// pg_trgm + tsvector), and a Neo4j store. The core never assumes more than
// these contracts; any backend that can do exact/substring text lookup,
// approximate string similarity, full-text relevance scoring and
// nearest-neighbor vector similarity can stand in.
package store

import (
	"context"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// EntityFilter constrains entity listings.
type EntityFilter struct {
	// Kind restricts to one entity kind when non-nil.
	Kind *types.EntityKind
	// CustomKind additionally restricts custom-kind entities to one tag.
	CustomKind string
	// Statuses restricts to the given resolution statuses. Empty means all.
	Statuses []types.ResolutionStatus
	// Limit caps the result count. Zero means no cap.
	Limit int
}

// FactFilter constrains fact listings.
type FactFilter struct {
	// EntityID restricts to facts that mention the entity.
	EntityID string
	// Statuses restricts to the given lifecycle statuses. Empty means all.
	Statuses []types.FactStatus
	// Topic restricts to facts whose text contains the substring,
	// case-insensitively.
	Topic string
	// Limit caps the result count. Zero means no cap.
	Limit int
}

// ScoredFact pairs a fact id with a backend relevance score. Scores are
// backend-specific but must be normalizable to [0, 1] against the candidate
// set's maximum.
type ScoredFact struct {
	FactID string
	Score  float64
}

// ScoredEntity pairs an entity with a [0, 1] similarity score.
type ScoredEntity struct {
	Entity     *types.Entity
	Similarity float64
}

// EntityStore is the entity half of the persistence contract.
type EntityStore interface {
	CreateEntity(ctx context.Context, e *types.Entity) error
	// GetEntity returns types.ErrEntityNotFound (possibly wrapped) for
	// unknown ids.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
	UpdateEntity(ctx context.Context, e *types.Entity) error
	ListEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error)
	// CountMentions counts mentions across all facts targeting the entity.
	CountMentions(ctx context.Context, entityID string) (int, error)
	// ReassignMentions retargets every mention of fromID to toID and returns
	// the number of mentions moved. Used only inside a merge transaction.
	ReassignMentions(ctx context.Context, fromID, toID string) (int, error)
}

// FactStore is the fact half of the persistence contract. A fact record owns
// its mentions and sources; they travel with it on every read and write.
type FactStore interface {
	CreateFact(ctx context.Context, f *types.Fact) error
	// GetFact returns types.ErrFactNotFound (possibly wrapped) for unknown ids.
	GetFact(ctx context.Context, id string) (*types.Fact, error)
	// GetFactByDigest looks a fact up under its content digest; it returns
	// nil, nil when no fact carries the digest.
	GetFactByDigest(ctx context.Context, digest string) (*types.Fact, error)
	UpdateFact(ctx context.Context, f *types.Fact) error
	ListFacts(ctx context.Context, filter FactFilter) ([]*types.Fact, error)
}

// SearchIndex exposes the relevance capabilities consumed by the ranker and
// the resolver's scale fallback.
type SearchIndex interface {
	// SearchFactText returns facts scored by full-text relevance for the
	// query, best first.
	SearchFactText(ctx context.Context, query string, limit int) ([]ScoredFact, error)
	// SimilarFacts returns facts scored by vector similarity to the
	// embedding, best first.
	SimilarFacts(ctx context.Context, embedding []float32, limit int) ([]ScoredFact, error)
	// FuzzyEntities returns non-merged entities whose names or aliases are
	// approximately similar to name, scored on the same [0, 1] scale as
	// similarity.NameSimilarity and filtered at minSimilarity.
	FuzzyEntities(ctx context.Context, name string, minSimilarity float64, limit int) ([]ScoredEntity, error)
}

// Store is the full contract. WithTx provides the unit-of-work boundary
// required by merge, dedup-create, supersession and synthesis: fn runs
// against a transactional view and its effects become visible atomically on
// commit, or not at all.
type Store interface {
	EntityStore
	FactStore
	SearchIndex

	WithTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
