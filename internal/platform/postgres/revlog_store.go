package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

const revlogColumns = `id, card_id, time, last_interval, next_interval,
	ease, factor, time_taken, thinking_time`

// PostgresRevlogStore implements the store.RevlogStore interface using a
// PostgreSQL database as the storage backend. The review log is append
// only; rows are never updated.
type PostgresRevlogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRevlogStore creates a new PostgreSQL implementation of the
// RevlogStore interface. If logger is nil, a default logger will be used.
func NewPostgresRevlogStore(db store.DBTX, logger *slog.Logger) *PostgresRevlogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRevlogStore{
		db:     db,
		logger: logger.With(slog.String("component", "revlog_store")),
	}
}

var _ store.RevlogStore = (*PostgresRevlogStore)(nil)

// WithTxRevlogStore returns a RevlogStore bound to the given transaction.
func (s *PostgresRevlogStore) WithTxRevlogStore(tx *sql.Tx) store.RevlogStore {
	return &PostgresRevlogStore{db: tx, logger: s.logger}
}

// Add implements store.RevlogStore.Add.
func (s *PostgresRevlogStore) Add(ctx context.Context, entry *domain.ReviewEntry) error {
	return s.AddMany(ctx, []*domain.ReviewEntry{entry})
}

// AddMany implements store.RevlogStore.AddMany. Duplicate ids are
// skipped so replaying a sync payload is harmless.
func (s *PostgresRevlogStore) AddMany(ctx context.Context, entries []*domain.ReviewEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO revlog (` + revlogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	for _, e := range entries {
		_, err := s.db.ExecContext(ctx, query,
			e.ID, e.CardID, e.Time, e.LastInterval, e.NextInterval,
			int(e.Ease), e.Factor, e.TimeTaken, e.ThinkingTime)
		if err != nil {
			log.Error("failed to add review entry",
				slog.String("error", err.Error()),
				slog.String("entry_id", e.ID.String()))
			return MapError(err)
		}
	}
	return nil
}

// Since implements store.RevlogStore.Since.
func (s *PostgresRevlogStore) Since(ctx context.Context, t float64) ([]*domain.ReviewEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + revlogColumns + ` FROM revlog WHERE time > $1 ORDER BY time`
	rows, err := s.db.QueryContext(ctx, query, t)
	if err != nil {
		log.Error("failed to query review log", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ReviewEntry
	for rows.Next() {
		var e domain.ReviewEntry
		var ease int
		err := rows.Scan(&e.ID, &e.CardID, &e.Time, &e.LastInterval, &e.NextInterval,
			&ease, &e.Factor, &e.TimeTaken, &e.ThinkingTime)
		if err != nil {
			return nil, MapError(err)
		}
		e.Ease = domain.Ease(ease)
		out = append(out, &e)
	}
	return out, MapError(rows.Err())
}

// CountSince implements store.RevlogStore.CountSince.
func (s *PostgresRevlogStore) CountSince(ctx context.Context, t float64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM revlog WHERE time > $1`, t).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}
