package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// TombstoneStore defines the interface for the deletion log sync diffs
// against.
type TombstoneStore interface {
	// Add records deletions of the given kind at the given clock.
	Add(ctx context.Context, kind domain.EntityKind, when float64, ids ...uuid.UUID) error

	// Since returns tombstones of the given kind deleted strictly after t.
	Since(ctx context.Context, kind domain.EntityKind, t float64) ([]IDTime, error)

	// Remove drops tombstones for rows that have been reconciled.
	Remove(ctx context.Context, kind domain.EntityKind, ids ...uuid.UUID) error

	// WithTxTombstoneStore returns a TombstoneStore bound to the given
	// transaction.
	WithTxTombstoneStore(tx *sql.Tx) TombstoneStore
}

// DeckStore defines the interface for the singleton deck configuration row.
type DeckStore interface {
	// Get returns the deck row. Returns ErrDeckNotFound if missing.
	Get(ctx context.Context) (*domain.Deck, error)

	// Save persists the deck row in full.
	Save(ctx context.Context, deck *domain.Deck) error

	// WithTxDeckStore returns a DeckStore bound to the given transaction.
	WithTxDeckStore(tx *sql.Tx) DeckStore
}
