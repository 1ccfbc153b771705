package dto

import (
	"errors"
	"time"
)

// CreateFactRequest records a new fact directly, mentions already resolved.
type CreateFactRequest struct {
	Text       string                 `json:"text" binding:"required"`
	ValidAt    *time.Time             `json:"valid_at,omitempty"`
	InvalidAt  *time.Time             `json:"invalid_at,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Mentions   []MentionInput         `json:"mentions,omitempty"`
	SourceID   string                 `json:"source_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate performs validation on CreateFactRequest.
func (r *CreateFactRequest) Validate() error {
	return validateText(r.Text)
}

// SupersedeRequest replaces a fact with an updated statement.
type SupersedeRequest struct {
	Text     string         `json:"text" binding:"required"`
	ValidAt  time.Time      `json:"valid_at" binding:"required"`
	Mentions []MentionInput `json:"mentions,omitempty"`
}

// Validate performs validation on SupersedeRequest.
func (r *SupersedeRequest) Validate() error {
	if err := validateText(r.Text); err != nil {
		return err
	}
	if r.ValidAt.IsZero() {
		return errors.New("valid_at is required")
	}
	return nil
}

// SynthesizeRequest derives one fact from several source facts.
type SynthesizeRequest struct {
	SourceIDs []string   `json:"source_ids" binding:"required"`
	Text      string     `json:"text" binding:"required"`
	ValidAt   time.Time  `json:"valid_at" binding:"required"`
	InvalidAt *time.Time `json:"invalid_at,omitempty"`
}

// Validate performs validation on SynthesizeRequest.
func (r *SynthesizeRequest) Validate() error {
	if len(r.SourceIDs) == 0 {
		return errors.New("source_ids cannot be empty")
	}
	if err := validateText(r.Text); err != nil {
		return err
	}
	if r.ValidAt.IsZero() {
		return errors.New("valid_at is required")
	}
	return nil
}

// CorroborateRequest registers independent support for a fact.
type CorroborateRequest struct {
	WitnessID string `json:"witness_id" binding:"required"`
}

// InvalidateRequest closes a fact's validity interval.
type InvalidateRequest struct {
	At time.Time `json:"at" binding:"required"`
}

// ResolveConflictRequest keeps one fact and supersedes its rivals.
type ResolveConflictRequest struct {
	KeepID       string   `json:"keep_id" binding:"required"`
	SupersedeIDs []string `json:"supersede_ids" binding:"required"`
	Reason       string   `json:"reason,omitempty"`
}

// Validate performs validation on ResolveConflictRequest.
func (r *ResolveConflictRequest) Validate() error {
	if r.KeepID == "" {
		return errors.New("keep_id is required")
	}
	if len(r.SupersedeIDs) == 0 {
		return errors.New("supersede_ids cannot be empty")
	}
	return nil
}

// ConflictResponse is one advisory conflict pair.
type ConflictResponse struct {
	Fact1ID    string  `json:"fact1_id"`
	Fact1Text  string  `json:"fact1_text"`
	Fact2ID    string  `json:"fact2_id"`
	Fact2Text  string  `json:"fact2_text"`
	Similarity float64 `json:"similarity"`
}
