package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// FactStatus tracks a fact's lifecycle state.
type FactStatus string

const (
	// StatusCanonical is the initial state of a newly created fact.
	StatusCanonical FactStatus = "canonical"
	// StatusSuperseded means the fact was replaced; SupersededByID points at
	// the replacement and InvalidAt closes the validity interval.
	StatusSuperseded FactStatus = "superseded"
	// StatusCorroborated means at least two other facts independently confirm
	// this one.
	StatusCorroborated FactStatus = "corroborated"
	// StatusSynthesized marks a fact aggregated from several source facts.
	StatusSynthesized FactStatus = "synthesized"
)

// ExtractionMethod records how a fact entered the store.
type ExtractionMethod string

const (
	ExtractionManual      ExtractionMethod = "manual"
	ExtractionLLM         ExtractionMethod = "llm"
	ExtractionRuleBased   ExtractionMethod = "rule_based"
	ExtractionSynthesized ExtractionMethod = "synthesized"
)

// MentionRole is the grammatical/semantic role of an entity within a fact.
type MentionRole string

const (
	RoleSubject     MentionRole = "subject"
	RoleObject      MentionRole = "object"
	RoleLocation    MentionRole = "location"
	RoleTemporal    MentionRole = "temporal"
	RoleInstrument  MentionRole = "instrument"
	RoleBeneficiary MentionRole = "beneficiary"
	RoleAttribute   MentionRole = "attribute"
	RoleRole        MentionRole = "role"
)

// ParseMentionRole maps an open role tag onto the closed role set,
// defaulting to subject for empty tags and RoleAttribute for unknown ones.
func ParseMentionRole(tag string) MentionRole {
	switch MentionRole(tag) {
	case RoleSubject, RoleObject, RoleLocation, RoleTemporal,
		RoleInstrument, RoleBeneficiary, RoleAttribute, RoleRole:
		return MentionRole(tag)
	case "":
		return RoleSubject
	default:
		return RoleAttribute
	}
}

// SourceKind classifies how a source relates to the fact it backs.
type SourceKind string

const (
	SourcePrimary       SourceKind = "primary"
	SourceSupporting    SourceKind = "supporting"
	SourceContradicting SourceKind = "contradicting"
)

// EntityMention is an occurrence of an entity within a fact's text. A fact
// owns its mentions; they are stored and destroyed with the fact, never
// independently.
type EntityMention struct {
	EntityID    string      `json:"entity_id"`
	MentionText string      `json:"mention_text"`
	Role        MentionRole `json:"role"`
	Confidence  float64     `json:"confidence"`
}

// FactSource links a fact to the raw content it was extracted from. SourceID
// is an opaque reference into the external content store.
type FactSource struct {
	SourceID   string     `json:"source_id"`
	Kind       SourceKind `json:"kind"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Fact is an assertion tagged with the interval [ValidAt, InvalidAt) during
// which it is considered true. A nil InvalidAt means the fact is still true.
type Fact struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	ValidAt   time.Time  `json:"valid_at"`
	InvalidAt *time.Time `json:"invalid_at,omitempty"`
	Status    FactStatus `json:"status"`
	// Confidence is in [0, 1].
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"extraction_method"`
	// SupersededByID is set exactly when Status == StatusSuperseded.
	SupersededByID string `json:"superseded_by_id,omitempty"`
	// DerivedFromIDs is non-empty only when Status == StatusSynthesized.
	DerivedFromIDs []string `json:"derived_from_ids,omitempty"`
	// CorroboratedByIDs has length >= 2 whenever Status == StatusCorroborated.
	CorroboratedByIDs []string               `json:"corroborated_by_ids,omitempty"`
	Mentions          []EntityMention        `json:"mentions,omitempty"`
	Sources           []FactSource           `json:"sources,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Embedding         []float32              `json:"embedding,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Validate checks the fact's structural invariants.
func (f *Fact) Validate() error {
	if f.Text == "" {
		return ErrEmptyText
	}
	if f.InvalidAt != nil && f.InvalidAt.Before(f.ValidAt) {
		return ErrInvalidInterval
	}
	return nil
}

// ValidateForCreate additionally requires an id.
func (f *Fact) ValidateForCreate() error {
	if f.ID == "" {
		return ErrEmptyID
	}
	return f.Validate()
}

// IsValidAt reports whether the instant falls inside [ValidAt, InvalidAt).
// An absent InvalidAt makes the interval open-ended.
func (f *Fact) IsValidAt(at time.Time) bool {
	if at.Before(f.ValidAt) {
		return false
	}
	if f.InvalidAt == nil {
		return true
	}
	return at.Before(*f.InvalidAt)
}

// Duration returns the length of the validity interval, measured to now for
// open-ended facts.
func (f *Fact) Duration(now time.Time) time.Duration {
	end := now
	if f.InvalidAt != nil {
		end = *f.InvalidAt
	}
	if end.Before(f.ValidAt) {
		return 0
	}
	return end.Sub(f.ValidAt)
}

// Overlaps reports whether two validity intervals intersect.
func (f *Fact) Overlaps(other *Fact) bool {
	aEndsAfter := f.InvalidAt == nil || f.InvalidAt.After(other.ValidAt)
	bEndsAfter := other.InvalidAt == nil || other.InvalidAt.After(f.ValidAt)
	return aEndsAfter && bEndsAfter
}

// IsCorroborated reports whether the corroboration set has reached the
// promotion threshold.
func (f *Fact) IsCorroborated() bool {
	return len(f.CorroboratedByIDs) >= 2
}

// ContentDigest derives the dedup key for find-or-create semantics: a stable
// digest of the assertion text and its validity start, so repeat creation of
// the identical (text, valid_at) pair converges on one record.
func ContentDigest(text string, validAt time.Time) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(validAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the fact's own content digest.
func (f *Fact) Digest() string {
	return ContentDigest(f.Text, f.ValidAt)
}
