package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/similarity"
	"github.com/chronicle-kb/chronicle/pkg/types"
	"github.com/chronicle-kb/chronicle/pkg/utils"
)

// MemoryStore is the reference Store implementation: maps guarded by one
// RWMutex, full-clone transactions, and relevance scoring computed with the
// similarity kernel. It backs the test suite and embedded single-process use.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]*types.Entity
	facts    map[string]*types.Fact
	byDigest map[string]string // content digest -> fact id

	// inTx is set on the transactional clone so nested calls skip locking.
	inTx bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]*types.Entity),
		facts:    make(map[string]*types.Fact),
		byDigest: make(map[string]string),
	}
}

// WithTx runs fn against a full clone of the store and swaps the clone in
// only when fn succeeds, holding the write lock for the whole unit of work.
// Readers therefore never observe a half-applied merge or supersession.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := &MemoryStore{
		entities: make(map[string]*types.Entity, len(s.entities)),
		facts:    make(map[string]*types.Fact, len(s.facts)),
		byDigest: make(map[string]string, len(s.byDigest)),
		inTx:     true,
	}
	for id, e := range s.entities {
		clone.entities[id] = cloneEntity(e)
	}
	for id, f := range s.facts {
		clone.facts[id] = cloneFact(f)
	}
	for digest, id := range s.byDigest {
		clone.byDigest[digest] = id
	}

	if err := fn(clone); err != nil {
		return err
	}

	s.entities = clone.entities
	s.facts = clone.facts
	s.byDigest = clone.byDigest
	return nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *MemoryStore) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *MemoryStore) rlock() {
	if !s.inTx {
		s.mu.RLock()
	}
}

func (s *MemoryStore) runlock() {
	if !s.inTx {
		s.mu.RUnlock()
	}
}

// CreateEntity stores a copy of the entity.
func (s *MemoryStore) CreateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	s.lock()
	defer s.unlock()
	if _, exists := s.entities[e.ID]; exists {
		return fmt.Errorf("entity %s already exists", e.ID)
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entities[e.ID] = cloneEntity(e)
	return nil
}

// GetEntity returns a copy of the stored entity.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	s.rlock()
	defer s.runlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrEntityNotFound)
	}
	return cloneEntity(e), nil
}

// UpdateEntity replaces the stored entity.
func (s *MemoryStore) UpdateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	s.lock()
	defer s.unlock()
	if _, ok := s.entities[e.ID]; !ok {
		return fmt.Errorf("entity %s: %w", e.ID, types.ErrEntityNotFound)
	}
	e.UpdatedAt = time.Now().UTC()
	s.entities[e.ID] = cloneEntity(e)
	return nil
}

// ListEntities returns copies of entities matching the filter, ordered by id
// for determinism.
func (s *MemoryStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error) {
	s.rlock()
	defer s.runlock()

	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []*types.Entity
	for _, id := range ids {
		e := s.entities[id]
		if !matchEntity(e, filter) {
			continue
		}
		result = append(result, cloneEntity(e))
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func matchEntity(e *types.Entity, filter EntityFilter) bool {
	if filter.Kind != nil && e.Kind != *filter.Kind {
		return false
	}
	if filter.CustomKind != "" && e.CustomKind != filter.CustomKind {
		return false
	}
	if len(filter.Statuses) > 0 {
		ok := false
		for _, st := range filter.Statuses {
			if e.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// CountMentions counts mentions of the entity across all facts.
func (s *MemoryStore) CountMentions(ctx context.Context, entityID string) (int, error) {
	s.rlock()
	defer s.runlock()
	count := 0
	for _, f := range s.facts {
		for _, m := range f.Mentions {
			if m.EntityID == entityID {
				count++
			}
		}
	}
	return count, nil
}

// ReassignMentions retargets every mention of fromID to toID.
func (s *MemoryStore) ReassignMentions(ctx context.Context, fromID, toID string) (int, error) {
	s.lock()
	defer s.unlock()
	moved := 0
	for _, f := range s.facts {
		for i := range f.Mentions {
			if f.Mentions[i].EntityID == fromID {
				f.Mentions[i].EntityID = toID
				moved++
			}
		}
	}
	return moved, nil
}

// CreateFact stores a copy of the fact and indexes its content digest.
func (s *MemoryStore) CreateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	s.lock()
	defer s.unlock()
	if _, exists := s.facts[f.ID]; exists {
		return fmt.Errorf("fact %s already exists", f.ID)
	}
	digest := f.Digest()
	if winner, taken := s.byDigest[digest]; taken {
		// Dedup key collision: a concurrent creator won. Surface the winner
		// so the caller can return its record instead of inserting twice.
		return &DuplicateFactError{WinnerID: winner}
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	s.facts[f.ID] = cloneFact(f)
	s.byDigest[digest] = f.ID
	return nil
}

// DuplicateFactError reports a dedup-key collision on fact creation.
type DuplicateFactError struct {
	WinnerID string
}

func (e *DuplicateFactError) Error() string {
	return fmt.Sprintf("fact with identical content digest already exists: %s", e.WinnerID)
}

// GetFact returns a copy of the stored fact.
func (s *MemoryStore) GetFact(ctx context.Context, id string) (*types.Fact, error) {
	s.rlock()
	defer s.runlock()
	f, ok := s.facts[id]
	if !ok {
		return nil, fmt.Errorf("fact %s: %w", id, types.ErrFactNotFound)
	}
	return cloneFact(f), nil
}

// GetFactByDigest returns the fact carrying the digest, or nil.
func (s *MemoryStore) GetFactByDigest(ctx context.Context, digest string) (*types.Fact, error) {
	s.rlock()
	defer s.runlock()
	id, ok := s.byDigest[digest]
	if !ok {
		return nil, nil
	}
	f, ok := s.facts[id]
	if !ok {
		return nil, nil
	}
	return cloneFact(f), nil
}

// UpdateFact replaces the stored fact and keeps the digest index current.
func (s *MemoryStore) UpdateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	s.lock()
	defer s.unlock()
	old, ok := s.facts[f.ID]
	if !ok {
		return fmt.Errorf("fact %s: %w", f.ID, types.ErrFactNotFound)
	}
	if oldDigest := old.Digest(); oldDigest != f.Digest() {
		delete(s.byDigest, oldDigest)
		s.byDigest[f.Digest()] = f.ID
	}
	f.UpdatedAt = time.Now().UTC()
	s.facts[f.ID] = cloneFact(f)
	return nil
}

// ListFacts returns copies of facts matching the filter, ordered by
// (valid_at, id) ascending.
func (s *MemoryStore) ListFacts(ctx context.Context, filter FactFilter) ([]*types.Fact, error) {
	s.rlock()
	defer s.runlock()

	var result []*types.Fact
	for _, f := range s.facts {
		if !matchFact(f, filter) {
			continue
		}
		result = append(result, cloneFact(f))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ValidAt.Equal(result[j].ValidAt) {
			return result[i].ValidAt.Before(result[j].ValidAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchFact(f *types.Fact, filter FactFilter) bool {
	if filter.EntityID != "" {
		ok := false
		for _, m := range f.Mentions {
			if m.EntityID == filter.EntityID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		ok := false
		for _, st := range filter.Statuses {
			if f.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.Topic != "" && !strings.Contains(strings.ToLower(f.Text), strings.ToLower(filter.Topic)) {
		return false
	}
	return true
}

// SearchFactText scores facts by word overlap with the query. The scores are
// already in [0, 1], so normalization against the candidate maximum is a
// no-op for callers that do it anyway.
func (s *MemoryStore) SearchFactText(ctx context.Context, query string, limit int) ([]ScoredFact, error) {
	s.rlock()
	defer s.runlock()

	var scored []ScoredFact
	for id, f := range s.facts {
		score := similarity.WordOverlap(query, f.Text)
		if score > 0 {
			scored = append(scored, ScoredFact{FactID: id, Score: score})
		}
	}
	sortScored(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// SimilarFacts scores facts by cosine similarity to the embedding.
func (s *MemoryStore) SimilarFacts(ctx context.Context, embedding []float32, limit int) ([]ScoredFact, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	s.rlock()
	defer s.runlock()

	var scored []ScoredFact
	for id, f := range s.facts {
		if len(f.Embedding) == 0 {
			continue
		}
		score := utils.CosineSimilarity(embedding, f.Embedding)
		if score > 0 {
			scored = append(scored, ScoredFact{FactID: id, Score: score})
		}
	}
	sortScored(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// FuzzyEntities scores non-merged entities by the best name similarity
// across canonical name and aliases.
func (s *MemoryStore) FuzzyEntities(ctx context.Context, name string, minSimilarity float64, limit int) ([]ScoredEntity, error) {
	s.rlock()
	defer s.runlock()

	var scored []ScoredEntity
	for _, e := range s.entities {
		if e.Status == types.ResolutionMerged {
			continue
		}
		best := 0.0
		for _, candidate := range e.AllNames() {
			if sim := similarity.NameSimilarity(name, candidate); sim > best {
				best = sim
			}
		}
		if best >= minSimilarity {
			scored = append(scored, ScoredEntity{Entity: cloneEntity(e), Similarity: best})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Entity.ID < scored[j].Entity.ID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func sortScored(scored []ScoredFact) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].FactID < scored[j].FactID
	})
}

func cloneEntity(e *types.Entity) *types.Entity {
	c := *e
	c.Aliases = append([]types.Alias(nil), e.Aliases...)
	c.Embedding = append([]float32(nil), e.Embedding...)
	if e.Attributes != nil {
		c.Attributes = make(map[string]interface{}, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

func cloneFact(f *types.Fact) *types.Fact {
	c := *f
	if f.InvalidAt != nil {
		t := *f.InvalidAt
		c.InvalidAt = &t
	}
	c.DerivedFromIDs = append([]string(nil), f.DerivedFromIDs...)
	c.CorroboratedByIDs = append([]string(nil), f.CorroboratedByIDs...)
	c.Mentions = append([]types.EntityMention(nil), f.Mentions...)
	c.Sources = append([]types.FactSource(nil), f.Sources...)
	c.Embedding = append([]float32(nil), f.Embedding...)
	if f.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
