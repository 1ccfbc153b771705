package dto

import (
	"errors"
	"strings"
	"time"
)

// ResolveRequest asks for an entity by name, optionally creating one when
// nothing matches.
type ResolveRequest struct {
	Name       string                 `json:"name" binding:"required"`
	Kind       string                 `json:"kind,omitempty"`
	Create     bool                   `json:"create,omitempty"`
	Aliases    []AliasInput           `json:"aliases,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate performs validation on ResolveRequest.
func (r *ResolveRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}

// ResolveResponse carries the outcome of a resolution attempt.
type ResolveResponse struct {
	Found      bool        `json:"found"`
	Created    bool        `json:"created,omitempty"`
	Entity     interface{} `json:"entity,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	MatchType  string      `json:"match_type,omitempty"`
}

// MergeRequest folds one entity into another.
type MergeRequest struct {
	KeepID     string `json:"keep_id" binding:"required"`
	AbsorbedID string `json:"absorbed_id" binding:"required"`
}

// SplitEntityInput describes one entity to carve out of a conflated record.
type SplitEntityInput struct {
	Name       string                 `json:"name" binding:"required"`
	Kind       string                 `json:"kind,omitempty"`
	Aliases    []AliasInput           `json:"aliases,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SplitRequest splits a conflated entity into distinct ones.
type SplitRequest struct {
	Entities []SplitEntityInput `json:"entities" binding:"required"`
}

// Validate performs validation on SplitRequest.
func (r *SplitRequest) Validate() error {
	if len(r.Entities) < 2 {
		return errors.New("split requires at least two entities")
	}
	for _, e := range r.Entities {
		if strings.TrimSpace(e.Name) == "" {
			return errors.New("split entity name cannot be empty")
		}
	}
	return nil
}

// DuplicateResponse is one candidate duplicate pair.
type DuplicateResponse struct {
	Entity1ID   string  `json:"entity1_id"`
	Entity1Name string  `json:"entity1_name"`
	Entity2ID   string  `json:"entity2_id"`
	Entity2Name string  `json:"entity2_name"`
	Similarity  float64 `json:"similarity"`
}

// TimelineResponse is an entity's clipped fact history.
type TimelineResponse struct {
	EntityID string      `json:"entity_id"`
	From     *time.Time  `json:"from,omitempty"`
	To       *time.Time  `json:"to,omitempty"`
	Facts    interface{} `json:"facts"`
}
