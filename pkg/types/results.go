package types

// QueryResult is the normalized shape handed to the output/serialization
// layer: an ordered list of facts plus a resolved-entity lookup keyed by id,
// sufficient to render any presentation format without re-querying the store.
type QueryResult struct {
	Facts    []*Fact            `json:"facts"`
	Entities map[string]*Entity `json:"entities"`
	Query    string             `json:"query,omitempty"`
	Total    int                `json:"total"`
}

// BatchItemResult records the outcome of one independent item in a batch.
// Partial failure never aborts the remaining items; the failure is attached
// here instead.
type BatchItemResult struct {
	ItemID    string   `json:"item_id"`
	FactIDs   []string `json:"fact_ids,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`
	Err       error    `json:"-"`
	// Error mirrors Err as text for serialization.
	Error string `json:"error,omitempty"`
}
