package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// CardStore defines the interface for card persistence and the queue
// projection queries the scheduler fills its work queues from.
type CardStore interface {
	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// Create saves new cards. Must run within a transaction when more
	// than one card is created; use WithTxCardStore and RunInTransaction.
	Create(ctx context.Context, cards ...*domain.Card) error

	// Update persists all scheduling fields of an existing card.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// Delete removes the given cards. Tombstone writes are the caller's
	// responsibility; deletion here is unconditional.
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// QueueItems runs a queue fill query and returns the matching
	// projections in query order.
	QueueItems(ctx context.Context, q QueueQuery) ([]QueueItem, error)

	// CountQueue returns how many cards match the query, ignoring Limit.
	CountQueue(ctx context.Context, q QueueQuery) (int, error)

	// SiblingIDs returns the ids of all cards belonging to the given fact.
	SiblingIDs(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error)

	// SetPriority bulk-updates the priority of the given cards and bumps
	// their modification clocks.
	SetPriority(ctx context.Context, priority int, now float64, ids ...uuid.UUID) error

	// Priorities returns the current priority of the given cards. A nil
	// ids slice returns every card.
	Priorities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)

	// ModifiedSince returns (id, modified) pairs for cards modified
	// strictly after t.
	ModifiedSince(ctx context.Context, t float64) ([]IDTime, error)

	// OrphanCount returns the number of cards referencing a nonexistent
	// fact. Sync asserts this is zero after applying a payload.
	OrphanCount(ctx context.Context) (int, error)

	// WithTxCardStore returns a CardStore bound to the given transaction.
	WithTxCardStore(tx *sql.Tx) CardStore
}
