package types

import "errors"

// Precondition errors raised by lifecycle operations. All of them are
// detected before any mutation begins, so a caller that receives one can
// assume the store is unchanged. Store-level failures are never mapped onto
// these values; they pass through wrapped so the caller can tell the two
// apart with errors.Is.
var (
	// ErrSelfMerge is returned when a merge names the same entity on both sides.
	ErrSelfMerge = errors.New("cannot merge an entity into itself")
	// ErrAlreadyMerged is returned when the absorbed entity has already been merged away.
	ErrAlreadyMerged = errors.New("entity is already merged")
	// ErrAlreadySuperseded is returned when superseding a fact that is no longer canonical.
	ErrAlreadySuperseded = errors.New("fact is already superseded")
	// ErrSelfCorroboration is returned when a fact is corroborated with itself.
	ErrSelfCorroboration = errors.New("fact cannot corroborate itself")
	// ErrEmptySynthesisSource is returned when synthesis is given no source facts.
	ErrEmptySynthesisSource = errors.New("synthesis requires at least one source fact")
	// ErrEntityNotFound is returned when an entity id does not resolve in the store.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrFactNotFound is returned when a fact id does not resolve in the store.
	ErrFactNotFound = errors.New("fact not found")
	// ErrMergeChainTooDeep is returned when following merge pointers exceeds the
	// step bound, which indicates malformed data (a cycle or a runaway chain).
	ErrMergeChainTooDeep = errors.New("merge pointer chain exceeds hop limit")
)

// Validation errors for inputs.
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrEmptyID         = errors.New("id cannot be empty")
	ErrInvalidInterval = errors.New("invalid_at must not precede valid_at")
	ErrInvalidLimit    = errors.New("limit must be positive")
)
