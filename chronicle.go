// Package chronicle is a temporal knowledge store: it records assertions
// about named real-world entities, each tagged with the interval during
// which it was true, and resolves ambiguous entity names into canonical
// identities over time.
package chronicle

import (
	"context"
	"log/slog"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/batch"
	"github.com/chronicle-kb/chronicle/pkg/config"
	"github.com/chronicle-kb/chronicle/pkg/conflict"
	"github.com/chronicle-kb/chronicle/pkg/embedder"
	"github.com/chronicle-kb/chronicle/pkg/extraction"
	"github.com/chronicle-kb/chronicle/pkg/facts"
	"github.com/chronicle-kb/chronicle/pkg/resolver"
	"github.com/chronicle-kb/chronicle/pkg/search"
	"github.com/chronicle-kb/chronicle/pkg/store"
	"github.com/chronicle-kb/chronicle/pkg/temporal"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// Client is the main entry point. It wires the resolver, fact lifecycle
// manager, temporal engine, conflict detector, and ranker over one store.
type Client struct {
	store     store.Store
	embedder  embedder.Client
	extractor extraction.Method
	resolver  *resolver.Resolver
	facts     *facts.Manager
	temporal  *temporal.Engine
	conflicts *conflict.Detector
	ranker    *search.Ranker
	runner    *batch.Runner
	config    *config.Config
	logger    *slog.Logger
}

// NewClient creates a Client over the given store. The embedder may be nil,
// which disables the vector search signal and stored embeddings. A nil
// extractor falls back to rule-based extraction, a nil config to defaults,
// and a nil logger to slog.Default.
func NewClient(st store.Store, embedderClient embedder.Client, extractor extraction.Method, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extraction.NewRules()
	}

	res := resolver.New(st, resolver.Options{
		FuzzyThreshold:     cfg.Resolution.FuzzyThreshold,
		AutoMergeThreshold: cfg.Resolution.AutoMergeThreshold,
		MaxChainHops:       cfg.Resolution.MaxChainHops,
	}, logger)

	return &Client{
		store:     st,
		embedder:  embedderClient,
		extractor: extractor,
		resolver:  res,
		facts:     facts.NewManager(st, res, logger),
		temporal:  temporal.NewEngine(st),
		conflicts: conflict.NewDetector(st, cfg.Conflict.LowerBound, cfg.Conflict.UpperBound),
		ranker:    search.NewRanker(cfg.Search.Weights),
		runner:    batch.NewRunner(cfg.Batch.Concurrency),
		config:    cfg,
		logger:    logger,
	}, nil
}

// Store returns the underlying store.
func (c *Client) Store() store.Store {
	return c.store
}

// Close releases the underlying store's resources.
func (c *Client) Close() error {
	return c.store.Close()
}

// Resolve maps a name onto an entity, or nil when nothing matches.
func (c *Client) Resolve(ctx context.Context, name, kind string) (*resolver.ResolvedEntity, error) {
	return c.resolver.Resolve(ctx, name, kind)
}

// ResolveOrCreate resolves name or creates a new entity for it.
func (c *Client) ResolveOrCreate(ctx context.Context, name, kind string, aliases []types.Alias, attributes map[string]interface{}) (*types.Entity, error) {
	return c.resolver.ResolveOrCreate(ctx, name, kind, aliases, attributes)
}

// MergeEntities absorbs one entity into another.
func (c *Client) MergeEntities(ctx context.Context, keepID, absorbedID string) (*types.Entity, error) {
	return c.resolver.Merge(ctx, keepID, absorbedID)
}

// SplitEntity divides an entity into new entities, one per config.
func (c *Client) SplitEntity(ctx context.Context, entityID string, configs []resolver.SplitConfig) ([]*types.Entity, error) {
	return c.resolver.Split(ctx, entityID, configs)
}

// FindDuplicateEntities reports likely duplicate pairs at or above the
// threshold, most similar first.
func (c *Client) FindDuplicateEntities(ctx context.Context, threshold float64) ([]resolver.DuplicatePair, error) {
	return c.resolver.FindDuplicates(ctx, threshold)
}

// AutoMergeDuplicates merges near-certain duplicates and returns the merged
// pairs.
func (c *Client) AutoMergeDuplicates(ctx context.Context) ([]resolver.DuplicatePair, error) {
	return c.resolver.AutoMergeDuplicates(ctx)
}

// TerminalEntity follows merge pointers to the surviving entity.
func (c *Client) TerminalEntity(ctx context.Context, id string) (*types.Entity, error) {
	return c.resolver.Terminal(ctx, id)
}

// CreateFact persists a fact with find-or-create dedup semantics.
func (c *Client) CreateFact(ctx context.Context, f *types.Fact) (*types.Fact, error) {
	if c.embedder != nil && len(f.Embedding) == 0 {
		embedding, err := c.embedder.EmbedSingle(ctx, f.Text)
		if err != nil {
			c.logger.Warn("embedding failed, storing fact without vector", "error", err)
		} else {
			f.Embedding = embedding
		}
	}
	return c.facts.Create(ctx, f)
}

// SupersedeFact replaces a fact with a new assertion.
func (c *Client) SupersedeFact(ctx context.Context, oldID, newText string, validAt time.Time, mentions []types.EntityMention) (*types.Fact, error) {
	return c.facts.Supersede(ctx, oldID, newText, validAt, mentions)
}

// SynthesizeFact aggregates source facts into one derived fact.
func (c *Client) SynthesizeFact(ctx context.Context, sourceIDs []string, text string, validAt time.Time, invalidAt *time.Time) (*types.Fact, error) {
	return c.facts.Synthesize(ctx, sourceIDs, text, validAt, invalidAt, nil)
}

// CorroborateFact records independent confirmation of a fact.
func (c *Client) CorroborateFact(ctx context.Context, factID, otherID string) (*types.Fact, error) {
	return c.facts.Corroborate(ctx, factID, otherID)
}

// InvalidateFact closes a fact's validity interval.
func (c *Client) InvalidateFact(ctx context.Context, factID string, at time.Time) (*types.Fact, error) {
	return c.facts.Invalidate(ctx, factID, at)
}

// ResolveConflict settles a conflict in favor of keepID.
func (c *Client) ResolveConflict(ctx context.Context, keepID string, supersedeIDs []string, reason string) error {
	return c.facts.ResolveConflict(ctx, keepID, supersedeIDs, reason)
}

// FindConflicts surfaces candidate conflicting assertion pairs.
func (c *Client) FindConflicts(ctx context.Context, entityID, topic string) ([]conflict.Conflict, error) {
	return c.conflicts.FindConflicts(ctx, entityID, topic)
}

// FactsAt returns the facts valid at an instant.
func (c *Client) FactsAt(ctx context.Context, at time.Time, filter temporal.Filter) ([]*types.Fact, error) {
	return c.temporal.FactsAt(ctx, at, filter)
}

// CurrentFacts returns the facts valid now.
func (c *Client) CurrentFacts(ctx context.Context, filter temporal.Filter) ([]*types.Fact, error) {
	return c.temporal.CurrentFacts(ctx, filter)
}

// DiffBetween reports what changed for an entity between two instants.
func (c *Client) DiffBetween(ctx context.Context, entityID string, from, to time.Time) (*temporal.Diff, error) {
	return c.temporal.DiffBetween(ctx, entityID, from, to)
}

// EntityTimeline returns an entity's facts ordered by validity start.
func (c *Client) EntityTimeline(ctx context.Context, entityID string, from, to *time.Time) (*temporal.Timeline, error) {
	return c.temporal.EntityTimeline(ctx, entityID, from, to)
}

// FactsCreatedBetween returns facts whose validity starts inside [from, to).
func (c *Client) FactsCreatedBetween(ctx context.Context, from, to time.Time, filter temporal.Filter) ([]*types.Fact, error) {
	return c.temporal.FactsCreatedBetween(ctx, from, to, filter)
}

// FactsInvalidatedBetween returns facts whose validity ends inside [from, to).
func (c *Client) FactsInvalidatedBetween(ctx context.Context, from, to time.Time, filter temporal.Filter) ([]*types.Fact, error) {
	return c.temporal.FactsInvalidatedBetween(ctx, from, to, filter)
}

// GetEntity retrieves one entity by id.
func (c *Client) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	return c.store.GetEntity(ctx, id)
}

// GetFact retrieves one fact by id.
func (c *Client) GetFact(ctx context.Context, id string) (*types.Fact, error) {
	return c.store.GetFact(ctx, id)
}
