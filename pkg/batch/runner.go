// Package batch runs independent ingest items concurrently. Items contend
// only on the shared entity namespace; a per-item failure or panic is
// attached to that item's result and never aborts the rest of the batch.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/types"
	"github.com/chronicle-kb/chronicle/pkg/utils"
)

// defaultConcurrency bounds worker fan-out when the caller does not.
const defaultConcurrency = 8

// Item is one independent unit of batch work.
type Item struct {
	ID string
	// Text is the raw content to ingest.
	Text string
	// ValidAt is the default validity timestamp for facts extracted from
	// this item.
	ValidAt time.Time
	// SourceID identifies the item's origin for fact provenance.
	SourceID string
}

// ItemFunc processes one item, returning the ids of the facts and entities
// it produced.
type ItemFunc func(ctx context.Context, item Item) (factIDs, entityIDs []string, err error)

// Runner executes batches with bounded concurrency.
type Runner struct {
	semaphore chan struct{}
}

// NewRunner creates a Runner. Non-positive concurrency falls back to the
// default.
func NewRunner(maxConcurrency int) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultConcurrency
	}
	return &Runner{semaphore: make(chan struct{}, maxConcurrency)}
}

// Run processes every item through fn, at most the configured number at a
// time, and returns one result per item in input order. Panics inside fn are
// recovered into that item's result. Context cancellation marks the items
// that have not started yet; items already running finish normally.
func (r *Runner) Run(ctx context.Context, items []Item, fn ItemFunc) []types.BatchItemResult {
	if len(items) == 0 {
		return nil
	}

	results := make([]types.BatchItemResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(index int, item Item) {
			defer wg.Done()
			results[index] = r.runItem(ctx, item, fn)
		}(i, item)
	}
	wg.Wait()
	return results
}

func (r *Runner) runItem(ctx context.Context, item Item, fn ItemFunc) types.BatchItemResult {
	result := types.BatchItemResult{ItemID: item.ID}

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		result.Err = ctx.Err()
		result.Error = ctx.Err().Error()
		return result
	}

	err := func() (err error) {
		defer utils.RecoverAsError(&err)
		result.FactIDs, result.EntityIDs, err = fn(ctx, item)
		return err
	}()
	if err != nil {
		result.Err = err
		result.Error = err.Error()
	}
	return result
}
