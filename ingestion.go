package chronicle

import (
	"context"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/batch"
	"github.com/chronicle-kb/chronicle/pkg/extraction"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// IngestText extracts candidates from one piece of raw text and persists
// them as resolved entities and facts. Facts carry the source as primary
// provenance when sourceID is non-empty.
func (c *Client) IngestText(ctx context.Context, text string, validAt time.Time, sourceID string) (*types.BatchItemResult, error) {
	factIDs, entityIDs, err := c.ingestOne(ctx, batch.Item{
		ID:       sourceID,
		Text:     text,
		ValidAt:  validAt,
		SourceID: sourceID,
	})
	if err != nil {
		return nil, err
	}
	return &types.BatchItemResult{
		ItemID:    sourceID,
		FactIDs:   factIDs,
		EntityIDs: entityIDs,
	}, nil
}

// IngestBatch processes independent items concurrently. A failing item never
// aborts its siblings; the failure rides on that item's result. Items
// contend on the shared entity namespace, so concurrent creation of the
// same new name can race to duplicate entities; the periodic
// AutoMergeDuplicates pass converges them.
func (c *Client) IngestBatch(ctx context.Context, items []batch.Item) []types.BatchItemResult {
	return c.runner.Run(ctx, items, c.ingestOne)
}

// IngestBatchResumable is IngestBatch with per-item checkpointing: items a
// previous run completed are answered from their checkpoints, and each
// item's outcome is checkpointed as it finishes. A nil manager degrades to
// plain IngestBatch.
func (c *Client) IngestBatchResumable(ctx context.Context, items []batch.Item, checkpoints *batch.CheckpointManager) []types.BatchItemResult {
	return c.runner.RunResumable(ctx, items, c.ingestOne, checkpoints)
}

func (c *Client) ingestOne(ctx context.Context, item batch.Item) ([]string, []string, error) {
	validAt := item.ValidAt
	if validAt.IsZero() {
		validAt = time.Now().UTC()
	}

	candidates, err := c.extractor.Extract(ctx, item.Text, extraction.Options{
		DefaultValidAt: validAt,
		SourceID:       item.SourceID,
	})
	if err != nil {
		return nil, nil, err
	}

	entityIDs := make([]string, 0, len(candidates.Entities))
	seen := map[string]bool{}
	for _, ce := range candidates.Entities {
		var aliases []types.Alias
		for _, a := range ce.Aliases {
			aliases = append(aliases, types.Alias{Text: a, Kind: types.AliasOther, Confidence: 1.0})
		}
		entity, err := c.resolver.ResolveOrCreate(ctx, ce.Name, ce.Kind, aliases, nil)
		if err != nil {
			return nil, nil, err
		}
		if !seen[entity.ID] {
			seen[entity.ID] = true
			entityIDs = append(entityIDs, entity.ID)
		}
	}

	var sources []types.FactSource
	if item.SourceID != "" {
		sources = []types.FactSource{{
			SourceID:   item.SourceID,
			Kind:       types.SourcePrimary,
			Confidence: 1.0,
		}}
	}

	factIDs := make([]string, 0, len(candidates.Facts))
	for _, cf := range candidates.Facts {
		f, err := c.facts.CreateFromCandidate(ctx, cf, validAt, methodOf(c.extractor.Name()), sources)
		if err != nil {
			return nil, nil, err
		}
		if c.embedder != nil && len(f.Embedding) == 0 {
			if embedding, embErr := c.embedder.EmbedSingle(ctx, f.Text); embErr == nil {
				f.Embedding = embedding
				if updErr := c.store.UpdateFact(ctx, f); updErr != nil {
					return nil, nil, updErr
				}
			} else {
				c.logger.Warn("embedding failed during ingest", "fact_id", f.ID, "error", embErr)
			}
		}
		factIDs = append(factIDs, f.ID)
		for _, mention := range f.Mentions {
			if !seen[mention.EntityID] {
				seen[mention.EntityID] = true
				entityIDs = append(entityIDs, mention.EntityID)
			}
		}
	}
	return factIDs, entityIDs, nil
}

func methodOf(name string) types.ExtractionMethod {
	switch types.ExtractionMethod(name) {
	case types.ExtractionManual, types.ExtractionLLM, types.ExtractionRuleBased, types.ExtractionSynthesized:
		return types.ExtractionMethod(name)
	default:
		return types.ExtractionManual
	}
}
