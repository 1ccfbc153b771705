// Package facts implements the bitemporal fact lifecycle: dedup-aware
// creation, supersession, synthesis, corroboration, invalidation, and
// conflict resolution.
package facts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chronicle-kb/chronicle/pkg/resolver"
	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/types"
	"github.com/chronicle-kb/chronicle/pkg/utils"
)

// maxMergeHops bounds merge pointer chases when mentions are routed to their
// terminal entity at write time.
const maxMergeHops = 10

// Manager drives fact lifecycle transitions against the store. Multi-step
// transitions run inside a store transaction so readers never observe a
// half-applied supersession or synthesis.
type Manager struct {
	store    store.Store
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(st store.Store, res *resolver.Resolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, resolver: res, logger: logger}
}

// Create persists a fact with find-or-create semantics: creating the same
// (text, valid_at) pair twice converges on one record, and the second caller
// receives the first caller's fact. Mentions are routed through merge
// pointers so no new mention lands on a merged entity.
func (m *Manager) Create(ctx context.Context, f *types.Fact) (*types.Fact, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = types.StatusCanonical
	}
	if f.Method == "" {
		f.Method = types.ExtractionManual
	}
	if f.ValidAt.IsZero() {
		f.ValidAt = time.Now().UTC()
	}

	var result *types.Fact
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		existing, err := tx.GetFactByDigest(ctx, f.Digest())
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		routed, err := routeMentions(ctx, tx, f.Mentions)
		if err != nil {
			return err
		}
		f.Mentions = routed

		if err := tx.CreateFact(ctx, f); err != nil {
			var dup *store.DuplicateFactError
			if errors.As(err, &dup) {
				result, err = tx.GetFact(ctx, dup.WinnerID)
				return err
			}
			return err
		}
		result = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.ID == f.ID {
		m.logger.Debug("created fact", "fact_id", f.ID, "valid_at", f.ValidAt)
	}
	return result, nil
}

// CreateFromCandidate resolves a candidate fact's mentions into entities and
// persists it. Candidates without a validity timestamp fall back to
// defaultValidAt.
func (m *Manager) CreateFromCandidate(ctx context.Context, cand types.CandidateFact, defaultValidAt time.Time, method types.ExtractionMethod, sources []types.FactSource) (*types.Fact, error) {
	validAt := defaultValidAt
	if cand.ValidAt != nil {
		validAt = *cand.ValidAt
	}
	confidence := cand.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	f := &types.Fact{
		ID:         uuid.NewString(),
		Text:       cand.Text,
		ValidAt:    validAt,
		InvalidAt:  cand.InvalidAt,
		Status:     types.StatusCanonical,
		Confidence: confidence,
		Method:     method,
		Sources:    sources,
	}
	for _, cm := range cand.Mentions {
		var aliases []types.Alias
		for _, a := range cm.Aliases {
			aliases = append(aliases, types.Alias{Text: a, Kind: types.AliasOther, Confidence: cm.Confidence})
		}
		entity, err := m.resolver.ResolveOrCreate(ctx, cm.Name, cm.Kind, aliases, nil)
		if err != nil {
			return nil, err
		}
		mentionConfidence := cm.Confidence
		if mentionConfidence == 0 {
			mentionConfidence = 1.0
		}
		f.Mentions = append(f.Mentions, types.EntityMention{
			EntityID:    entity.ID,
			MentionText: cm.Name,
			Role:        types.ParseMentionRole(cm.Role),
			Confidence:  mentionConfidence,
		})
	}
	return m.Create(ctx, f)
}

// Supersede replaces a fact with a new assertion. The old fact must not
// already be superseded. When mentions are omitted the old fact's mentions
// and sources carry over verbatim. The old fact's validity closes exactly
// where the new one opens, and both sides commit together.
func (m *Manager) Supersede(ctx context.Context, oldID, newText string, validAt time.Time, mentions []types.EntityMention) (*types.Fact, error) {
	var created *types.Fact
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		old, err := tx.GetFact(ctx, oldID)
		if err != nil {
			return err
		}
		if old.Status == types.StatusSuperseded {
			return fmt.Errorf("supersede %s: %w", oldID, types.ErrAlreadySuperseded)
		}

		newFact := &types.Fact{
			ID:         uuid.NewString(),
			Text:       newText,
			ValidAt:    validAt,
			Status:     types.StatusCanonical,
			Confidence: old.Confidence,
			Method:     old.Method,
			Mentions:   mentions,
		}
		if mentions == nil {
			newFact.Mentions = old.Mentions
			newFact.Sources = old.Sources
		}
		routed, err := routeMentions(ctx, tx, newFact.Mentions)
		if err != nil {
			return err
		}
		newFact.Mentions = routed

		if err := tx.CreateFact(ctx, newFact); err != nil {
			return err
		}

		old.Status = types.StatusSuperseded
		invalidAt := validAt
		old.InvalidAt = &invalidAt
		old.SupersededByID = newFact.ID
		if err := tx.UpdateFact(ctx, old); err != nil {
			return err
		}
		created = newFact
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("superseded fact", "old_id", oldID, "new_id", created.ID)
	return created, nil
}

// Synthesize aggregates several source facts into one derived fact. The new
// fact's confidence is the mean of the sources', its mentions (when not
// supplied) keep the highest-confidence mention per (entity, role), and
// every source fact's own sources are carried as supporting evidence.
func (m *Manager) Synthesize(ctx context.Context, sourceIDs []string, text string, validAt time.Time, invalidAt *time.Time, mentions []types.EntityMention) (*types.Fact, error) {
	if len(sourceIDs) == 0 {
		return nil, types.ErrEmptySynthesisSource
	}

	var created *types.Fact
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		sourceFacts := make([]*types.Fact, 0, len(sourceIDs))
		for _, id := range sourceIDs {
			f, err := tx.GetFact(ctx, id)
			if err != nil {
				return err
			}
			sourceFacts = append(sourceFacts, f)
		}

		confidences := make([]float64, 0, len(sourceFacts))
		var supporting []types.FactSource
		for _, f := range sourceFacts {
			confidences = append(confidences, f.Confidence)
			for _, src := range f.Sources {
				src.Kind = types.SourceSupporting
				supporting = append(supporting, src)
			}
		}

		if mentions == nil {
			mentions = aggregateMentions(sourceFacts)
		}
		routed, err := routeMentions(ctx, tx, mentions)
		if err != nil {
			return err
		}

		newFact := &types.Fact{
			ID:             uuid.NewString(),
			Text:           text,
			ValidAt:        validAt,
			InvalidAt:      invalidAt,
			Status:         types.StatusSynthesized,
			Confidence:     utils.Mean(confidences),
			Method:         types.ExtractionSynthesized,
			DerivedFromIDs: append([]string(nil), sourceIDs...),
			Mentions:       routed,
			Sources:        supporting,
		}
		if err := tx.CreateFact(ctx, newFact); err != nil {
			return err
		}
		created = newFact
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("synthesized fact", "fact_id", created.ID, "sources", len(sourceIDs))
	return created, nil
}

// aggregateMentions merges source facts' mentions keyed by (entity, role),
// keeping the highest-confidence mention per key.
func aggregateMentions(sourceFacts []*types.Fact) []types.EntityMention {
	type key struct {
		entityID string
		role     types.MentionRole
	}
	best := make(map[key]types.EntityMention)
	var order []key
	for _, f := range sourceFacts {
		for _, mention := range f.Mentions {
			k := key{entityID: mention.EntityID, role: mention.Role}
			current, seen := best[k]
			if !seen {
				order = append(order, k)
			}
			if !seen || mention.Confidence > current.Confidence {
				best[k] = mention
			}
		}
	}
	result := make([]types.EntityMention, 0, len(order))
	for _, k := range order {
		result = append(result, best[k])
	}
	return result
}

// Corroborate records that another fact independently confirms this one. The
// corroborating set is deduplicated, and once it holds two or more entries a
// canonical fact is promoted to corroborated.
func (m *Manager) Corroborate(ctx context.Context, factID, otherID string) (*types.Fact, error) {
	if factID == otherID {
		return nil, fmt.Errorf("corroborate %s: %w", factID, types.ErrSelfCorroboration)
	}

	var updated *types.Fact
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		f, err := tx.GetFact(ctx, factID)
		if err != nil {
			return err
		}
		if _, err := tx.GetFact(ctx, otherID); err != nil {
			return err
		}

		for _, id := range f.CorroboratedByIDs {
			if id == otherID {
				updated = f
				return nil
			}
		}
		f.CorroboratedByIDs = append(f.CorroboratedByIDs, otherID)
		if f.IsCorroborated() && f.Status == types.StatusCanonical {
			f.Status = types.StatusCorroborated
		}
		if err := tx.UpdateFact(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Invalidate closes a fact's validity interval at the given instant without
// creating a successor.
func (m *Manager) Invalidate(ctx context.Context, factID string, at time.Time) (*types.Fact, error) {
	var updated *types.Fact
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		f, err := tx.GetFact(ctx, factID)
		if err != nil {
			return err
		}
		f.InvalidAt = &at
		if err := tx.UpdateFact(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("invalidated fact", "fact_id", factID, "at", at)
	return updated, nil
}

// ResolveConflict settles a detected conflict in favor of one fact: every
// other fact in the conflict set is superseded by the keeper, closed as of
// now, with the reason recorded in its metadata.
func (m *Manager) ResolveConflict(ctx context.Context, keepID string, supersedeIDs []string, reason string) error {
	now := time.Now().UTC()
	err := m.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetFact(ctx, keepID); err != nil {
			return err
		}
		for _, id := range supersedeIDs {
			f, err := tx.GetFact(ctx, id)
			if err != nil {
				return err
			}
			f.Status = types.StatusSuperseded
			f.SupersededByID = keepID
			invalidAt := now
			f.InvalidAt = &invalidAt
			if reason != "" {
				if f.Metadata == nil {
					f.Metadata = map[string]interface{}{}
				}
				f.Metadata["conflict_resolution_reason"] = reason
			}
			if err := tx.UpdateFact(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("resolved conflict", "keep_id", keepID, "superseded", len(supersedeIDs))
	return nil
}

// routeMentions rewrites mention targets through merge pointers so every
// mention lands on a terminal entity. The chase is bounded; a cycle in
// malformed data surfaces as ErrMergeChainTooDeep.
func routeMentions(ctx context.Context, tx store.Store, mentions []types.EntityMention) ([]types.EntityMention, error) {
	if len(mentions) == 0 {
		return mentions, nil
	}
	routed := make([]types.EntityMention, len(mentions))
	for i, mention := range mentions {
		current := mention.EntityID
		resolved := false
		for hop := 0; hop <= maxMergeHops; hop++ {
			e, err := tx.GetEntity(ctx, current)
			if err != nil {
				return nil, err
			}
			if e.Status != types.ResolutionMerged {
				resolved = true
				break
			}
			current = e.CanonicalID
		}
		if !resolved {
			return nil, fmt.Errorf("entity %s: %w", mention.EntityID, types.ErrMergeChainTooDeep)
		}
		mention.EntityID = current
		routed[i] = mention
	}
	return routed, nil
}
