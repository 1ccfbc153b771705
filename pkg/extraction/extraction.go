// Package extraction turns raw source text into candidate facts and
// entities. Candidates name entities by surface form; resolution into
// canonical ids happens downstream at ingest time.
package extraction

import (
	"context"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// Options carries per-extraction context.
type Options struct {
	// DefaultValidAt is assigned to candidates that carry no validity
	// timestamp of their own.
	DefaultValidAt time.Time
	// SourceID is an opaque reference to the content being extracted.
	SourceID string
}

// Method proposes candidates from raw text.
type Method interface {
	// Name identifies the method, e.g. "rule_based" or "llm".
	Name() string
	Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error)
}

// Manual wraps caller-authored candidates in the Method interface so
// hand-entered data flows through the same ingest path as automated
// extraction.
type Manual struct {
	candidates types.Candidates
}

// NewManual creates a Manual method returning the given candidates.
func NewManual(candidates types.Candidates) *Manual {
	return &Manual{candidates: candidates}
}

func (m *Manual) Name() string { return string(types.ExtractionManual) }

func (m *Manual) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	out := m.candidates
	return &out, nil
}
