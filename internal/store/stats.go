package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mnemohq/mnemo/internal/domain"
)

// StatsStore defines the interface for review aggregate persistence.
// Life and Day create the row lazily when it does not exist yet.
type StatsStore interface {
	// Life returns the single lifetime stats row, creating it if absent.
	Life(ctx context.Context) (*domain.Stats, error)

	// Day returns the stats row for the given calendar day, creating it
	// if absent.
	Day(ctx context.Context, day time.Time) (*domain.Stats, error)

	// Update persists a stats row.
	Update(ctx context.Context, stats *domain.Stats) error

	// DaysSince returns the per-day rows for days on or after the given
	// day, for sync bundling.
	DaysSince(ctx context.Context, day time.Time) ([]*domain.Stats, error)

	// CountDaysSince returns how many per-day rows exist on or after the
	// given day.
	CountDaysSince(ctx context.Context, day time.Time) (int, error)

	// WithTxStatsStore returns a StatsStore bound to the given transaction.
	WithTxStatsStore(tx *sql.Tx) StatsStore
}

// RevlogStore defines the interface for review history persistence.
type RevlogStore interface {
	// Add appends a review history entry.
	Add(ctx context.Context, entry *domain.ReviewEntry) error

	// Since returns entries recorded strictly after t, oldest first.
	Since(ctx context.Context, t float64) ([]*domain.ReviewEntry, error)

	// CountSince returns how many entries were recorded strictly after t.
	CountSince(ctx context.Context, t float64) (int, error)

	// AddMany appends entries received from the remote peer.
	AddMany(ctx context.Context, entries []*domain.ReviewEntry) error

	// WithTxRevlogStore returns a RevlogStore bound to the given transaction.
	WithTxRevlogStore(tx *sql.Tx) RevlogStore
}
