// Package types defines the core data model for the chronicle temporal
// knowledge store: canonical entities with aliases and merge pointers,
// bitemporal facts with their lifecycle status, entity mentions, fact
// sources, and the shared error values raised by lifecycle operations.
//
// Entities and facts are created once and then mutated only through the
// lifecycle transitions implemented in pkg/resolver and pkg/facts. Nothing
// in this package touches a store; it is plain data plus validation.
package types
