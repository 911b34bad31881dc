package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

const statsColumns = `id, stats_type, day, reps, average_time, review_time,
	new_ease_1, new_ease_2, new_ease_3, new_ease_4,
	young_ease_1, young_ease_2, young_ease_3, young_ease_4,
	mature_ease_1, mature_ease_2, mature_ease_3, mature_ease_4`

// PostgresStatsStore implements the store.StatsStore interface using a
// PostgreSQL database as the storage backend. The lifetime row and the
// per-day rows live in one table discriminated by stats_type.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatsStore creates a new PostgreSQL implementation of the
// StatsStore interface. If logger is nil, a default logger will be used.
func NewPostgresStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

var _ store.StatsStore = (*PostgresStatsStore)(nil)

// WithTxStatsStore returns a StatsStore bound to the given transaction.
func (s *PostgresStatsStore) WithTxStatsStore(tx *sql.Tx) store.StatsStore {
	return &PostgresStatsStore{db: tx, logger: s.logger}
}

// Life implements store.StatsStore.Life, creating the lifetime row on
// first use.
func (s *PostgresStatsStore) Life(ctx context.Context) (*domain.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats WHERE stats_type = $1`
	stats, err := scanStats(s.db.QueryRowContext(ctx, query, int(domain.StatsLife)))
	if errors.Is(err, sql.ErrNoRows) {
		stats, err = s.create(ctx, domain.NewStats(domain.StatsLife, time.Time{}))
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the creation race to a concurrent writer.
			stats, err = scanStats(s.db.QueryRowContext(ctx, query, int(domain.StatsLife)))
		}
	}
	if err != nil {
		return nil, MapError(err)
	}
	return stats, nil
}

// Day implements store.StatsStore.Day, creating the row for the given
// calendar day on first use.
func (s *PostgresStatsStore) Day(ctx context.Context, day time.Time) (*domain.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats WHERE stats_type = $1 AND day = $2`
	stats, err := scanStats(s.db.QueryRowContext(ctx, query, int(domain.StatsDay), day))
	if errors.Is(err, sql.ErrNoRows) {
		stats, err = s.create(ctx, domain.NewStats(domain.StatsDay, day))
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the creation race to a concurrent writer.
			stats, err = scanStats(s.db.QueryRowContext(ctx, query, int(domain.StatsDay), day))
		}
	}
	if err != nil {
		return nil, MapError(err)
	}
	return stats, nil
}

// Update implements store.StatsStore.Update.
func (s *PostgresStatsStore) Update(ctx context.Context, stats *domain.Stats) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE stats SET
			reps = $2, average_time = $3, review_time = $4,
			new_ease_1 = $5, new_ease_2 = $6, new_ease_3 = $7, new_ease_4 = $8,
			young_ease_1 = $9, young_ease_2 = $10, young_ease_3 = $11, young_ease_4 = $12,
			mature_ease_1 = $13, mature_ease_2 = $14, mature_ease_3 = $15, mature_ease_4 = $16
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		stats.ID, stats.Reps, stats.AverageTime, stats.ReviewTime,
		stats.NewEase[1], stats.NewEase[2], stats.NewEase[3], stats.NewEase[4],
		stats.YoungEase[1], stats.YoungEase[2], stats.YoungEase[3], stats.YoungEase[4],
		stats.MatureEase[1], stats.MatureEase[2], stats.MatureEase[3], stats.MatureEase[4])
	if err != nil {
		log.Error("failed to update stats",
			slog.String("error", err.Error()),
			slog.String("stats_id", stats.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "stats"); err != nil {
		return store.ErrStatsNotFound
	}
	return nil
}

// DaysSince implements store.StatsStore.DaysSince.
func (s *PostgresStatsStore) DaysSince(ctx context.Context, day time.Time) ([]*domain.Stats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + statsColumns + ` FROM stats WHERE stats_type = $1 AND day >= $2 ORDER BY day`
	rows, err := s.db.QueryContext(ctx, query, int(domain.StatsDay), day)
	if err != nil {
		log.Error("failed to query daily stats", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Stats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, stats)
	}
	return out, MapError(rows.Err())
}

// CountDaysSince implements store.StatsStore.CountDaysSince.
func (s *PostgresStatsStore) CountDaysSince(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM stats WHERE stats_type = $1 AND day >= $2`,
		int(domain.StatsDay), day).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

func (s *PostgresStatsStore) create(ctx context.Context, stats *domain.Stats) (*domain.Stats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO stats (` + statsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.db.ExecContext(ctx, query,
		stats.ID, int(stats.Type), stats.Day,
		stats.Reps, stats.AverageTime, stats.ReviewTime,
		stats.NewEase[1], stats.NewEase[2], stats.NewEase[3], stats.NewEase[4],
		stats.YoungEase[1], stats.YoungEase[2], stats.YoungEase[3], stats.YoungEase[4],
		stats.MatureEase[1], stats.MatureEase[2], stats.MatureEase[3], stats.MatureEase[4])
	if err != nil {
		// The (stats_type, day) unique constraint means another writer
		// created this row between our select and insert.
		if IsUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		log.Error("failed to create stats row",
			slog.String("error", err.Error()),
			slog.String("stats_id", stats.ID.String()))
		return nil, MapError(err)
	}
	return stats, nil
}

func scanStats(row rowScanner) (*domain.Stats, error) {
	var st domain.Stats
	var typ int
	err := row.Scan(
		&st.ID, &typ, &st.Day, &st.Reps, &st.AverageTime, &st.ReviewTime,
		&st.NewEase[1], &st.NewEase[2], &st.NewEase[3], &st.NewEase[4],
		&st.YoungEase[1], &st.YoungEase[2], &st.YoungEase[3], &st.YoungEase[4],
		&st.MatureEase[1], &st.MatureEase[2], &st.MatureEase[3], &st.MatureEase[4],
	)
	if err != nil {
		return nil, err
	}
	st.Type = domain.StatsType(typ)
	return &st, nil
}
