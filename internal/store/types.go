package store

import (
	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// IDTime pairs an entity id with a modification (or deletion) clock.
// Sync summaries are built from lists of these.
type IDTime struct {
	ID   uuid.UUID
	Time float64
}

// QueueItem is the ephemeral projection of a card into a work queue.
// Queue items are rebuilt from the store on demand and never persisted.
type QueueItem struct {
	CardID   uuid.UUID
	FactID   uuid.UUID
	Due      float64
	Priority int
}

// QueueOrder selects the sort applied to a queue query.
type QueueOrder int

const (
	// OrderByDue sorts by effective due time, oldest first.
	OrderByDue QueueOrder = iota
	// OrderByPriorityDue sorts by priority descending, then due.
	OrderByPriorityDue
	// OrderByCreated sorts by creation order (new cards "in order" policy).
	OrderByCreated
	// OrderRandom shuffles (new cards "random" policy, cram decks).
	OrderRandom
	// OrderByInterval sorts by interval ascending (review-early, cram).
	OrderByInterval
)

// QueueQuery is the predicate a queue fill runs against the card table.
// A zero DueBefore/DueAfter means no bound on that side; a zero Limit
// means no limit; an empty Tags list means no tag restriction; AllTypes
// ignores the Type discriminant (cram decks span all three queues).
type QueueQuery struct {
	Type        domain.CardType
	AllTypes    bool
	DueBefore   float64
	DueAfter    float64
	MinPriority int
	Tags        []string
	Order       QueueOrder
	Limit       int
}
