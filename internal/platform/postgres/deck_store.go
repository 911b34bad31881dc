package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

const deckColumns = `id, created, modified, last_sync,
	hard_interval_min, hard_interval_max, mid_interval_min, mid_interval_max,
	easy_interval_min, easy_interval_max,
	delay0, failed_bonus_days, failed_factor, collapse_time, failed_card_max,
	new_cards_per_day, new_card_order, new_card_spacing,
	leech_threshold, leech_auto_suspend,
	low_priority, med_priority, high_priority, suspended_tag,
	card_count, fact_count, new_count_today, reps_today, day_cutoff`

// PostgresDeckStore implements the store.DeckStore interface for the
// singleton deck configuration row.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeckStore creates a new PostgreSQL implementation of the
// DeckStore interface. If logger is nil, a default logger will be used.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// WithTxDeckStore returns a DeckStore bound to the given transaction.
func (s *PostgresDeckStore) WithTxDeckStore(tx *sql.Tx) store.DeckStore {
	return &PostgresDeckStore{db: tx, logger: s.logger}
}

// Get implements store.DeckStore.Get.
// Returns store.ErrDeckNotFound when no deck row exists yet.
func (s *PostgresDeckStore) Get(ctx context.Context) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + deckColumns + ` FROM deck LIMIT 1`
	var d domain.Deck
	var order, spacing int
	err := s.db.QueryRowContext(ctx, query).Scan(
		&d.ID, &d.Created, &d.Modified, &d.LastSync,
		&d.HardIntervalMin, &d.HardIntervalMax, &d.MidIntervalMin, &d.MidIntervalMax,
		&d.EasyIntervalMin, &d.EasyIntervalMax,
		&d.Delay0, &d.FailedBonusDays, &d.FailedFactor, &d.CollapseTime, &d.FailedCardMax,
		&d.NewCardsPerDay, &order, &spacing,
		&d.LeechThreshold, &d.LeechAutoSuspend,
		&d.LowPriority, &d.MedPriority, &d.HighPriority, &d.SuspendedTag,
		&d.CardCount, &d.FactCount, &d.NewCountToday, &d.RepsToday, &d.DayCutoff,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDeckNotFound
		}
		log.Error("failed to get deck", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	d.NewCardOrder = domain.NewCardOrder(order)
	d.NewCardSpacing = domain.NewCardSpacing(spacing)
	return &d, nil
}

// Save implements store.DeckStore.Save as an upsert keyed on the deck id.
func (s *PostgresDeckStore) Save(ctx context.Context, d *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO deck (` + deckColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		ON CONFLICT (id) DO UPDATE SET
			created = EXCLUDED.created, modified = EXCLUDED.modified,
			last_sync = EXCLUDED.last_sync,
			hard_interval_min = EXCLUDED.hard_interval_min,
			hard_interval_max = EXCLUDED.hard_interval_max,
			mid_interval_min = EXCLUDED.mid_interval_min,
			mid_interval_max = EXCLUDED.mid_interval_max,
			easy_interval_min = EXCLUDED.easy_interval_min,
			easy_interval_max = EXCLUDED.easy_interval_max,
			delay0 = EXCLUDED.delay0,
			failed_bonus_days = EXCLUDED.failed_bonus_days,
			failed_factor = EXCLUDED.failed_factor,
			collapse_time = EXCLUDED.collapse_time,
			failed_card_max = EXCLUDED.failed_card_max,
			new_cards_per_day = EXCLUDED.new_cards_per_day,
			new_card_order = EXCLUDED.new_card_order,
			new_card_spacing = EXCLUDED.new_card_spacing,
			leech_threshold = EXCLUDED.leech_threshold,
			leech_auto_suspend = EXCLUDED.leech_auto_suspend,
			low_priority = EXCLUDED.low_priority,
			med_priority = EXCLUDED.med_priority,
			high_priority = EXCLUDED.high_priority,
			suspended_tag = EXCLUDED.suspended_tag,
			card_count = EXCLUDED.card_count,
			fact_count = EXCLUDED.fact_count,
			new_count_today = EXCLUDED.new_count_today,
			reps_today = EXCLUDED.reps_today,
			day_cutoff = EXCLUDED.day_cutoff
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Created, d.Modified, d.LastSync,
		d.HardIntervalMin, d.HardIntervalMax, d.MidIntervalMin, d.MidIntervalMax,
		d.EasyIntervalMin, d.EasyIntervalMax,
		d.Delay0, d.FailedBonusDays, d.FailedFactor, d.CollapseTime, d.FailedCardMax,
		d.NewCardsPerDay, int(d.NewCardOrder), int(d.NewCardSpacing),
		d.LeechThreshold, d.LeechAutoSuspend,
		d.LowPriority, d.MedPriority, d.HighPriority, d.SuspendedTag,
		d.CardCount, d.FactCount, d.NewCountToday, d.RepsToday, d.DayCutoff)
	if err != nil {
		log.Error("failed to save deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", d.ID.String()))
		return MapError(err)
	}
	return nil
}
