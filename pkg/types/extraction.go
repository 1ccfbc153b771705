package types

import "time"

// CandidateMention is an entity occurrence proposed by an extraction method,
// named by surface form rather than id; resolution happens at ingest time.
type CandidateMention struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind,omitempty"`
	Role       string   `json:"role,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// CandidateFact is a fact proposed by an extraction method, before
// resolution and persistence.
type CandidateFact struct {
	Text       string             `json:"text"`
	ValidAt    *time.Time         `json:"valid_at,omitempty"`
	InvalidAt  *time.Time         `json:"invalid_at,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Mentions   []CandidateMention `json:"mentions,omitempty"`
}

// CandidateEntity is an entity proposed by an extraction method.
type CandidateEntity struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Candidates bundles everything one extraction pass proposed from a piece of
// raw text.
type Candidates struct {
	Facts    []CandidateFact   `json:"facts"`
	Entities []CandidateEntity `json:"entities"`
}
