package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

// PostgresTombstoneStore implements the store.TombstoneStore interface.
// The table is keyed on (kind, entity_id); re-deleting an entity keeps
// the earliest recorded clock.
type PostgresTombstoneStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTombstoneStore creates a new PostgreSQL implementation of
// the TombstoneStore interface. If logger is nil, a default logger will
// be used.
func NewPostgresTombstoneStore(db store.DBTX, logger *slog.Logger) *PostgresTombstoneStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTombstoneStore{
		db:     db,
		logger: logger.With(slog.String("component", "tombstone_store")),
	}
}

var _ store.TombstoneStore = (*PostgresTombstoneStore)(nil)

// WithTxTombstoneStore returns a TombstoneStore bound to the given
// transaction.
func (s *PostgresTombstoneStore) WithTxTombstoneStore(tx *sql.Tx) store.TombstoneStore {
	return &PostgresTombstoneStore{db: tx, logger: s.logger}
}

// Add implements store.TombstoneStore.Add.
func (s *PostgresTombstoneStore) Add(ctx context.Context, kind domain.EntityKind, when float64, ids ...uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tombstones (kind, entity_id, deleted)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, entity_id) DO NOTHING
	`
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, query, string(kind), id, when); err != nil {
			log.Error("failed to add tombstone",
				slog.String("error", err.Error()),
				slog.String("kind", string(kind)),
				slog.String("entity_id", id.String()))
			return MapError(err)
		}
	}
	return nil
}

// Since implements store.TombstoneStore.Since.
func (s *PostgresTombstoneStore) Since(ctx context.Context, kind domain.EntityKind, t float64) ([]store.IDTime, error) {
	return queryIDTimes(ctx, s.db,
		`SELECT entity_id, deleted FROM tombstones WHERE kind = $1 AND deleted > $2 ORDER BY deleted`,
		string(kind), t)
}

// Remove implements store.TombstoneStore.Remove.
func (s *PostgresTombstoneStore) Remove(ctx context.Context, kind domain.EntityKind, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM tombstones WHERE kind = $1 AND entity_id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, string(kind), uuidStrings(ids)); err != nil {
		log.Error("failed to remove tombstones",
			slog.String("error", err.Error()),
			slog.String("kind", string(kind)))
		return MapError(err)
	}
	return nil
}
