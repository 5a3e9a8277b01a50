package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// ConceptRepository persists the mutable user layer of the store: the
// user-authored concept envelope and the active universe selection.
// Predefined universes are read through PartitionSource instead.
type ConceptRepository interface {
	UserConcepts(ctx context.Context) ([]Concept, error)
	SaveUserConcepts(ctx context.Context, concepts []Concept) error
	ClearUserConcepts(ctx context.Context) error
	UniverseSelection(ctx context.Context) ([]string, error)
	SaveUniverseSelection(ctx context.Context, universes []string) error
}

// PartitionSource loads the read-only base layer, one named universe at a
// time. A load failure for one universe must not poison the others.
type PartitionSource interface {
	LoadUniverse(ctx context.Context, universeID string) ([]Concept, error)
}
