package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
)

// ModelStore defines the interface for model persistence, including card
// and field models.
type ModelStore interface {
	// GetByID retrieves a model with its card and field models.
	// Returns ErrModelNotFound if the model does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Model, error)

	// Create saves a new model and its card/field models.
	Create(ctx context.Context, model *domain.Model) error

	// Update replaces a model and its card/field models.
	Update(ctx context.Context, model *domain.Model) error

	// Delete removes the given models and their card/field models.
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// ModifiedSince returns (id, modified) pairs for models modified
	// strictly after t.
	ModifiedSince(ctx context.Context, t float64) ([]IDTime, error)

	// WithTxModelStore returns a ModelStore bound to the given transaction.
	WithTxModelStore(tx *sql.Tx) ModelStore
}
