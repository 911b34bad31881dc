package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// FactStore defines the interface for fact (and field) persistence.
type FactStore interface {
	// GetByID retrieves a fact with its fields.
	// Returns ErrFactNotFound if the fact does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error)

	// Create saves a new fact and its fields.
	Create(ctx context.Context, fact *domain.Fact) error

	// Update persists a fact's tags, fields and modification clock.
	Update(ctx context.Context, fact *domain.Fact) error

	// Delete removes the given facts and their fields. Cards are the
	// caller's responsibility.
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// ModifiedSince returns (id, modified) pairs for facts modified
	// strictly after t.
	ModifiedSince(ctx context.Context, t float64) ([]IDTime, error)

	// WithTxFactStore returns a FactStore bound to the given transaction.
	WithTxFactStore(tx *sql.Tx) FactStore
}

// TagStore exposes the card-to-tag projection the priority index is
// derived from. A card's tags are its owning fact's tags.
type TagStore interface {
	// CardTags returns the tag list for every card in the store.
	CardTags(ctx context.Context) (map[uuid.UUID][]string, error)

	// CardTagsFor returns the tag lists for the given cards only.
	CardTagsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error)

	// WithTxTagStore returns a TagStore bound to the given transaction.
	WithTxTagStore(tx *sql.Tx) TagStore
}
