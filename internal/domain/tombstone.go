package domain

import "github.com/google/uuid"

// EntityKind names the syncable entity types. The string values appear in
// the tombstone table and the sync summary and must stay stable.
type EntityKind string

const (
	KindCard  EntityKind = "card"
	KindFact  EntityKind = "fact"
	KindModel EntityKind = "model"
	KindMedia EntityKind = "media"
)

// Kinds lists the syncable entity kinds in wire order.
func Kinds() []EntityKind {
	return []EntityKind{KindModel, KindFact, KindCard, KindMedia}
}

// Tombstone records a deletion so that sync can propagate it. Deleted is
// the epoch-seconds clock of the delete, comparable with Modified clocks.
type Tombstone struct {
	Kind    EntityKind
	ID      uuid.UUID
	Deleted float64
}
