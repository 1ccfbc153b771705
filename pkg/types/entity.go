package types

import (
	"strings"
	"time"
)

// EntityKind classifies an entity. The set is closed but extensible through
// KindCustom, which carries the source tag in Entity.CustomKind.
type EntityKind string

const (
	KindPerson       EntityKind = "person"
	KindOrganization EntityKind = "organization"
	KindPlace        EntityKind = "place"
	KindProduct      EntityKind = "product"
	KindEvent        EntityKind = "event"
	KindConcept      EntityKind = "concept"
	// KindCustom marks a kind outside the built-in set; the original tag is
	// preserved in Entity.CustomKind.
	KindCustom EntityKind = "custom"
)

// AliasKind classifies how an alternative surface form relates to the
// canonical name.
type AliasKind string

const (
	AliasNickname     AliasKind = "nickname"
	AliasAbbreviation AliasKind = "abbreviation"
	AliasFormal       AliasKind = "formal"
	AliasMaidenName   AliasKind = "maiden_name"
	AliasTradingName  AliasKind = "trading_name"
	AliasEmail        AliasKind = "email"
	AliasOther        AliasKind = "other"
)

// ResolutionStatus tracks an entity's identity lifecycle.
type ResolutionStatus string

const (
	ResolutionUnresolved ResolutionStatus = "unresolved"
	ResolutionResolved   ResolutionStatus = "resolved"
	// ResolutionMerged means the entity was absorbed into another; CanonicalID
	// points at the survivor and no new mention may target this entity.
	ResolutionMerged ResolutionStatus = "merged"
	// ResolutionSplit means the entity was divided into new entities.
	ResolutionSplit ResolutionStatus = "split"
)

// Alias is an alternative surface form registered against an entity.
// Alias text is unique per entity, compared case-insensitively.
type Alias struct {
	Text       string    `json:"text"`
	Kind       AliasKind `json:"kind"`
	Confidence float64   `json:"confidence"`
}

// Entity is a canonical identity that name variants resolve to.
type Entity struct {
	ID            string           `json:"id"`
	CanonicalName string           `json:"canonical_name"`
	Kind          EntityKind       `json:"kind"`
	// CustomKind holds the source tag when Kind == KindCustom.
	CustomKind string           `json:"custom_kind,omitempty"`
	Aliases    []Alias          `json:"aliases,omitempty"`
	Status     ResolutionStatus `json:"resolution_status"`
	// CanonicalID is set exactly when Status == ResolutionMerged and points at
	// the entity that absorbed this one.
	CanonicalID string                 `json:"canonical_id,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Embedding   []float32              `json:"embedding,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Validate checks that the entity carries the fields required for creation.
func (e *Entity) Validate() error {
	if e.CanonicalName == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateForCreate additionally requires an id.
func (e *Entity) ValidateForCreate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	return e.Validate()
}

// HasAlias reports whether text is already registered as an alias,
// compared case-insensitively.
func (e *Entity) HasAlias(text string) bool {
	for _, a := range e.Aliases {
		if strings.EqualFold(a.Text, text) {
			return true
		}
	}
	return false
}

// AddAlias registers an alias unless an equal one (case-insensitive) exists.
// It reports whether the alias was added.
func (e *Entity) AddAlias(alias Alias) bool {
	if alias.Text == "" || e.HasAlias(alias.Text) {
		return false
	}
	e.Aliases = append(e.Aliases, alias)
	return true
}

// AllNames returns the canonical name followed by every alias text.
func (e *Entity) AllNames() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	names = append(names, e.CanonicalName)
	for _, a := range e.Aliases {
		names = append(names, a.Text)
	}
	return names
}

// KindTag returns the effective kind tag, unwrapping custom kinds.
func (e *Entity) KindTag() string {
	if e.Kind == KindCustom && e.CustomKind != "" {
		return e.CustomKind
	}
	return string(e.Kind)
}

// ParseEntityKind maps an open tag onto the closed kind set, routing unknown
// tags through KindCustom so the source vocabulary survives round-trips.
func ParseEntityKind(tag string) (EntityKind, string) {
	switch EntityKind(strings.ToLower(strings.TrimSpace(tag))) {
	case KindPerson, KindOrganization, KindPlace, KindProduct, KindEvent, KindConcept:
		return EntityKind(strings.ToLower(strings.TrimSpace(tag))), ""
	case "":
		return KindConcept, ""
	default:
		return KindCustom, strings.TrimSpace(tag)
	}
}
