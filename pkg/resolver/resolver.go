// Package resolver maps noisy name strings onto canonical entities and
// maintains entity identity over time through merge, split, and duplicate
// detection.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chronicle-kb/chronicle/pkg/similarity"
	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// MatchType records which resolution pass produced a match.
type MatchType string

const (
	MatchExactAlias MatchType = "exact_alias"
	MatchName       MatchType = "name"
	MatchFuzzy      MatchType = "fuzzy"
)

// ResolvedEntity is a successful resolution with its confidence and the pass
// that produced it.
type ResolvedEntity struct {
	Entity     *types.Entity
	Confidence float64
	MatchType  MatchType
}

// DuplicatePair is a candidate duplicate found by pairwise comparison.
type DuplicatePair struct {
	Entity1    *types.Entity
	Entity2    *types.Entity
	Similarity float64
}

// SplitConfig describes one entity to carve out of a split.
type SplitConfig struct {
	Name       string
	Kind       string
	Aliases    []types.Alias
	Attributes map[string]interface{}
}

// Options tune resolution behavior.
type Options struct {
	// FuzzyThreshold is the minimum similarity for a non-exact match.
	FuzzyThreshold float64
	// AutoMergeThreshold gates unattended merges; it should sit above
	// FuzzyThreshold so only near-certain duplicates merge without review.
	AutoMergeThreshold float64
	// MaxChainHops bounds merge pointer chases so malformed data cannot
	// loop forever.
	MaxChainHops int
}

// DefaultOptions returns the resolver defaults.
func DefaultOptions() Options {
	return Options{
		FuzzyThreshold:     0.8,
		AutoMergeThreshold: 0.9,
		MaxChainHops:       10,
	}
}

// Resolver resolves names against the entity store.
type Resolver struct {
	store  store.Store
	opts   Options
	logger *slog.Logger
}

// New creates a Resolver. A nil logger falls back to slog.Default.
func New(st store.Store, opts Options, logger *slog.Logger) *Resolver {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultOptions().FuzzyThreshold
	}
	if opts.AutoMergeThreshold <= 0 {
		opts.AutoMergeThreshold = DefaultOptions().AutoMergeThreshold
	}
	if opts.MaxChainHops <= 0 {
		opts.MaxChainHops = DefaultOptions().MaxChainHops
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, opts: opts, logger: logger}
}

// Resolve maps a name onto an entity. Passes run in precedence order: exact
// alias match, exact canonical-name match, then fuzzy similarity over every
// known surface form. The first two return confidence 1.0; the fuzzy pass
// accepts only scores at or above the fuzzy threshold. A kind tag, when
// non-empty, restricts candidates before matching. Returns (nil, nil) when
// nothing matches.
func (r *Resolver) Resolve(ctx context.Context, name, kind string) (*ResolvedEntity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	candidates, err := r.candidates(ctx, kind)
	if err != nil {
		return nil, err
	}

	for _, e := range candidates {
		if e.HasAlias(name) {
			return &ResolvedEntity{Entity: e, Confidence: 1.0, MatchType: MatchExactAlias}, nil
		}
	}
	for _, e := range candidates {
		if strings.EqualFold(e.CanonicalName, name) {
			return &ResolvedEntity{Entity: e, Confidence: 1.0, MatchType: MatchName}, nil
		}
	}

	var (
		best      *types.Entity
		bestScore float64
	)
	for _, e := range candidates {
		for _, candidate := range e.AllNames() {
			if score := similarity.NameSimilarity(name, candidate); score > bestScore {
				best, bestScore = e, score
			}
		}
	}
	if best == nil || bestScore < r.opts.FuzzyThreshold {
		return nil, nil
	}
	r.logger.Debug("fuzzy entity match",
		"name", name,
		"entity_id", best.ID,
		"similarity", bestScore)
	return &ResolvedEntity{Entity: best, Confidence: bestScore, MatchType: MatchFuzzy}, nil
}

// ResolveOrCreate resolves name, falling back through the supplied aliases
// before creating a fresh entity. When the name resolves, newly supplied
// aliases are merged onto the found entity. When only an alias resolves, the
// name itself is registered as a new alias on that entity. Only if both
// checks fail is a new entity created, with status resolved.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name, kind string, aliases []types.Alias, attributes map[string]interface{}) (*types.Entity, error) {
	resolved, err := r.Resolve(ctx, name, kind)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return r.adoptAliases(ctx, resolved.Entity, aliases)
	}

	for _, alias := range aliases {
		byAlias, err := r.Resolve(ctx, alias.Text, kind)
		if err != nil {
			return nil, err
		}
		if byAlias == nil {
			continue
		}
		e := byAlias.Entity
		changed := e.AddAlias(types.Alias{Text: name, Kind: types.AliasOther, Confidence: 1.0})
		for _, a := range aliases {
			if e.AddAlias(a) {
				changed = true
			}
		}
		if changed {
			if err := r.store.UpdateEntity(ctx, e); err != nil {
				return nil, err
			}
		}
		r.logger.Debug("resolved through supplied alias",
			"name", name,
			"alias", alias.Text,
			"entity_id", e.ID)
		return e, nil
	}

	entityKind, customKind := types.ParseEntityKind(kind)
	e := &types.Entity{
		ID:            uuid.NewString(),
		CanonicalName: name,
		Kind:          entityKind,
		CustomKind:    customKind,
		Status:        types.ResolutionResolved,
		Attributes:    attributes,
	}
	for _, a := range aliases {
		if !strings.EqualFold(a.Text, name) {
			e.AddAlias(a)
		}
	}
	if err := r.store.CreateEntity(ctx, e); err != nil {
		return nil, err
	}
	r.logger.Info("created entity", "entity_id", e.ID, "name", name, "kind", e.KindTag())
	return e, nil
}

func (r *Resolver) adoptAliases(ctx context.Context, e *types.Entity, aliases []types.Alias) (*types.Entity, error) {
	changed := false
	for _, a := range aliases {
		if strings.EqualFold(a.Text, e.CanonicalName) {
			continue
		}
		if e.AddAlias(a) {
			changed = true
		}
	}
	if changed {
		if err := r.store.UpdateEntity(ctx, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Merge absorbs one entity into another. Every alias of the absorbed entity
// is copied onto the keeper (keep-side wins on case-insensitive collision),
// the absorbed canonical name becomes an alias, every mention is reassigned,
// and the absorbed entity is marked merged with its canonical pointer set.
// Neither side may already be merged; a merged keeper would hang mentions on
// a tombstone and let two merges close a pointer cycle. The whole transition
// commits atomically.
func (r *Resolver) Merge(ctx context.Context, keepID, absorbedID string) (*types.Entity, error) {
	if keepID == absorbedID {
		return nil, fmt.Errorf("merge %s: %w", keepID, types.ErrSelfMerge)
	}

	var keep *types.Entity
	err := r.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		keep, err = tx.GetEntity(ctx, keepID)
		if err != nil {
			return err
		}
		if keep.Status == types.ResolutionMerged {
			return fmt.Errorf("merge into %s: %w", keepID, types.ErrAlreadyMerged)
		}
		absorbed, err := tx.GetEntity(ctx, absorbedID)
		if err != nil {
			return err
		}
		if absorbed.Status == types.ResolutionMerged {
			return fmt.Errorf("merge %s into %s: %w", absorbedID, keepID, types.ErrAlreadyMerged)
		}

		for _, a := range absorbed.Aliases {
			keep.AddAlias(a)
		}
		keep.AddAlias(types.Alias{Text: absorbed.CanonicalName, Kind: types.AliasOther, Confidence: 1.0})

		if _, err := tx.ReassignMentions(ctx, absorbedID, keepID); err != nil {
			return err
		}

		absorbed.Status = types.ResolutionMerged
		absorbed.CanonicalID = keepID
		if err := tx.UpdateEntity(ctx, absorbed); err != nil {
			return err
		}
		return tx.UpdateEntity(ctx, keep)
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("merged entities", "keep_id", keepID, "absorbed_id", absorbedID)
	return keep, nil
}

// Terminal follows merge pointers from id to the surviving entity. The chase
// is iterative and bounded so a cycle in malformed data surfaces as
// ErrMergeChainTooDeep instead of looping.
func (r *Resolver) Terminal(ctx context.Context, id string) (*types.Entity, error) {
	current := id
	for hop := 0; hop <= r.opts.MaxChainHops; hop++ {
		e, err := r.store.GetEntity(ctx, current)
		if err != nil {
			return nil, err
		}
		if e.Status != types.ResolutionMerged {
			return e, nil
		}
		current = e.CanonicalID
	}
	return nil, fmt.Errorf("entity %s: %w", id, types.ErrMergeChainTooDeep)
}

// FindDuplicates compares canonical names pairwise across all resolved
// entities and returns pairs at or above the threshold, most similar first.
// Merged and split entities stay out; an auto-merge pass must never absorb a
// split original back into one of its halves. Quadratic on purpose; this
// runs as a maintenance pass, not on the request path. A non-positive
// threshold falls back to the fuzzy threshold.
func (r *Resolver) FindDuplicates(ctx context.Context, threshold float64) ([]DuplicatePair, error) {
	if threshold <= 0 {
		threshold = r.opts.FuzzyThreshold
	}
	entities, err := r.resolved(ctx)
	if err != nil {
		return nil, err
	}

	var pairs []DuplicatePair
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			score := similarity.NameSimilarity(entities[i].CanonicalName, entities[j].CanonicalName)
			if score >= threshold {
				pairs = append(pairs, DuplicatePair{
					Entity1:    entities[i],
					Entity2:    entities[j],
					Similarity: score,
				})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].Entity1.ID != pairs[j].Entity1.ID {
			return pairs[i].Entity1.ID < pairs[j].Entity1.ID
		}
		return pairs[i].Entity2.ID < pairs[j].Entity2.ID
	})
	return pairs, nil
}

// AutoMergeDuplicates finds duplicates at the stricter auto-merge threshold
// and merges each pair, keeping the entity with more mentions (lower id on a
// tie). Entities merged by an earlier pair in the same pass are skipped.
// Returns the pairs that were actually merged.
func (r *Resolver) AutoMergeDuplicates(ctx context.Context) ([]DuplicatePair, error) {
	pairs, err := r.FindDuplicates(ctx, r.opts.AutoMergeThreshold)
	if err != nil {
		return nil, err
	}

	absorbed := make(map[string]bool)
	var merged []DuplicatePair
	for _, pair := range pairs {
		if absorbed[pair.Entity1.ID] || absorbed[pair.Entity2.ID] {
			continue
		}
		count1, err := r.store.CountMentions(ctx, pair.Entity1.ID)
		if err != nil {
			return merged, err
		}
		count2, err := r.store.CountMentions(ctx, pair.Entity2.ID)
		if err != nil {
			return merged, err
		}

		keep, lose := pair.Entity1, pair.Entity2
		if count2 > count1 || (count2 == count1 && pair.Entity2.ID < pair.Entity1.ID) {
			keep, lose = pair.Entity2, pair.Entity1
		}
		if _, err := r.Merge(ctx, keep.ID, lose.ID); err != nil {
			return merged, err
		}
		absorbed[lose.ID] = true
		merged = append(merged, pair)
	}
	if len(merged) > 0 {
		r.logger.Info("auto-merge pass complete", "merges", len(merged))
	}
	return merged, nil
}

// Split carves an entity into new entities, one per config, defaulting each
// config's kind to the original's. The original is marked split. Existing
// mentions are not reassigned; which mentions belong to which split target
// takes judgment the store does not have.
func (r *Resolver) Split(ctx context.Context, entityID string, configs []SplitConfig) ([]*types.Entity, error) {
	var created []*types.Entity
	err := r.store.WithTx(ctx, func(tx store.Store) error {
		original, err := tx.GetEntity(ctx, entityID)
		if err != nil {
			return err
		}
		if original.Status == types.ResolutionMerged {
			return fmt.Errorf("split %s: %w", entityID, types.ErrAlreadyMerged)
		}

		for _, cfg := range configs {
			kind, customKind := original.Kind, original.CustomKind
			if cfg.Kind != "" {
				kind, customKind = types.ParseEntityKind(cfg.Kind)
			}
			e := &types.Entity{
				ID:            uuid.NewString(),
				CanonicalName: cfg.Name,
				Kind:          kind,
				CustomKind:    customKind,
				Status:        types.ResolutionResolved,
				Attributes:    cfg.Attributes,
			}
			for _, a := range cfg.Aliases {
				e.AddAlias(a)
			}
			if err := tx.CreateEntity(ctx, e); err != nil {
				return err
			}
			created = append(created, e)
		}

		original.Status = types.ResolutionSplit
		original.UpdatedAt = time.Now().UTC()
		return tx.UpdateEntity(ctx, original)
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("split entity", "entity_id", entityID, "created", len(created))
	return created, nil
}

func (r *Resolver) candidates(ctx context.Context, kind string) ([]*types.Entity, error) {
	filter := store.EntityFilter{Statuses: []types.ResolutionStatus{
		types.ResolutionUnresolved, types.ResolutionResolved, types.ResolutionSplit,
	}}
	if kind != "" {
		k, custom := types.ParseEntityKind(kind)
		filter.Kind = &k
		filter.CustomKind = custom
	}
	return r.store.ListEntities(ctx, filter)
}

func (r *Resolver) resolved(ctx context.Context) ([]*types.Entity, error) {
	return r.store.ListEntities(ctx, store.EntityFilter{Statuses: []types.ResolutionStatus{
		types.ResolutionResolved,
	}})
}
