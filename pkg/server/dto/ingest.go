package dto

import (
	"errors"
	"time"
)

// IngestTextRequest submits one document for extraction and storage.
type IngestTextRequest struct {
	Text     string     `json:"text" binding:"required"`
	ValidAt  *time.Time `json:"valid_at,omitempty"`
	SourceID string     `json:"source_id,omitempty"`
}

// Validate performs validation on IngestTextRequest.
func (r *IngestTextRequest) Validate() error {
	return validateText(r.Text)
}

// IngestItem is one document inside a batch ingest.
type IngestItem struct {
	ID       string     `json:"id,omitempty"`
	Text     string     `json:"text" binding:"required"`
	ValidAt  *time.Time `json:"valid_at,omitempty"`
	SourceID string     `json:"source_id,omitempty"`
}

// IngestBatchRequest submits several documents at once.
type IngestBatchRequest struct {
	Items []IngestItem `json:"items" binding:"required"`
}

// Validate performs validation on IngestBatchRequest.
func (r *IngestBatchRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("items cannot be empty")
	}
	for _, item := range r.Items {
		if err := validateText(item.Text); err != nil {
			return err
		}
	}
	return nil
}

// SearchRequest runs a ranked retrieval query.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// Validate performs validation on SearchRequest.
func (r *SearchRequest) Validate() error {
	return validateText(r.Query)
}

// FactsAtRequest asks for the facts valid at an instant.
type FactsAtRequest struct {
	At       time.Time `json:"at" binding:"required"`
	EntityID string    `json:"entity_id,omitempty"`
	Topic    string    `json:"topic,omitempty"`
	Statuses []string  `json:"statuses,omitempty"`
}

// DiffRequest asks what changed for an entity between two instants.
type DiffRequest struct {
	EntityID string    `json:"entity_id" binding:"required"`
	From     time.Time `json:"from" binding:"required"`
	To       time.Time `json:"to" binding:"required"`
}

// Validate performs validation on DiffRequest.
func (r *DiffRequest) Validate() error {
	if r.EntityID == "" {
		return errors.New("entity_id is required")
	}
	if !r.From.Before(r.To) {
		return errors.New("from must precede to")
	}
	return nil
}
