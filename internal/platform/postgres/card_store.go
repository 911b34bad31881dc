package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

// cardColumns is the full scan list shared by every card query.
const cardColumns = `id, fact_id, ordinal, card_type, priority,
	interval, last_interval, due, last_due, combined_due, factor, last_factor,
	reps, successive, yes_count, no_count,
	young_ease_1, young_ease_2, young_ease_3, young_ease_4,
	mature_ease_1, mature_ease_2, mature_ease_3, mature_ease_4,
	space_until, relative_delay, first_answered, review_time, average_time,
	created, modified`

// PostgresCardStore implements the store.CardStore interface using a
// PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTxCardStore returns a CardStore bound to the given transaction.
func (s *PostgresCardStore) WithTxCardStore(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

// GetByID implements store.CardStore.GetByID.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}
	return card, nil
}

// Create implements store.CardStore.Create.
func (s *PostgresCardStore) Create(ctx context.Context, cards ...*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31)
	`
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during create",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, cardArgs(card)...); err != nil {
			log.Error("failed to create card",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return MapError(err)
		}
	}
	return nil
}

// Update implements store.CardStore.Update.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during update",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	query := `
		UPDATE cards SET
			fact_id = $2, ordinal = $3, card_type = $4, priority = $5,
			interval = $6, last_interval = $7, due = $8, last_due = $9,
			combined_due = $10, factor = $11, last_factor = $12,
			reps = $13, successive = $14, yes_count = $15, no_count = $16,
			young_ease_1 = $17, young_ease_2 = $18, young_ease_3 = $19, young_ease_4 = $20,
			mature_ease_1 = $21, mature_ease_2 = $22, mature_ease_3 = $23, mature_ease_4 = $24,
			space_until = $25, relative_delay = $26, first_answered = $27,
			review_time = $28, average_time = $29, created = $30, modified = $31
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, cardArgs(card)...)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "card"); err != nil {
		return store.ErrCardNotFound
	}
	return nil
}

// Delete implements store.CardStore.Delete.
func (s *PostgresCardStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM cards WHERE id = ANY($1::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, uuidStrings(ids)); err != nil {
		log.Error("failed to delete cards",
			slog.String("error", err.Error()),
			slog.Int("count", len(ids)))
		return MapError(err)
	}
	return nil
}

// QueueItems implements store.CardStore.QueueItems.
func (s *PostgresCardStore) QueueItems(ctx context.Context, q store.QueueQuery) ([]store.QueueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildQueueQuery("SELECT c.id, c.fact_id, c.combined_due, c.priority FROM cards c", q, true)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query queue items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var items []store.QueueItem
	for rows.Next() {
		var it store.QueueItem
		if err := rows.Scan(&it.CardID, &it.FactID, &it.Due, &it.Priority); err != nil {
			log.Error("failed to scan queue item", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return items, nil
}

// CountQueue implements store.CardStore.CountQueue.
func (s *PostgresCardStore) CountQueue(ctx context.Context, q store.QueueQuery) (int, error) {
	q.Limit = 0
	query, args := buildQueueQuery("SELECT count(*) FROM cards c", q, false)
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// SiblingIDs implements store.CardStore.SiblingIDs.
func (s *PostgresCardStore) SiblingIDs(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM cards WHERE fact_id = $1 ORDER BY ordinal`, factID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	return ids, MapError(rows.Err())
}

// SetPriority implements store.CardStore.SetPriority. Cards already at
// the target priority are left untouched so their clocks do not move.
func (s *PostgresCardStore) SetPriority(ctx context.Context, priority int, now float64, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE cards SET priority = $1, modified = $2
		WHERE id = ANY($3::uuid[]) AND priority <> $1
	`
	if _, err := s.db.ExecContext(ctx, query, priority, now, uuidStrings(ids)); err != nil {
		log.Error("failed to set card priority",
			slog.String("error", err.Error()),
			slog.Int("priority", priority),
			slog.Int("count", len(ids)))
		return MapError(err)
	}
	return nil
}

// Priorities implements store.CardStore.Priorities.
func (s *PostgresCardStore) Priorities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	query := `SELECT id, priority FROM cards`
	var args []any
	if ids != nil {
		query += ` WHERE id = ANY($1::uuid[])`
		args = append(args, uuidStrings(ids))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var p int
		if err := rows.Scan(&id, &p); err != nil {
			return nil, MapError(err)
		}
		out[id] = p
	}
	return out, MapError(rows.Err())
}

// ModifiedSince implements store.CardStore.ModifiedSince.
func (s *PostgresCardStore) ModifiedSince(ctx context.Context, t float64) ([]store.IDTime, error) {
	return queryIDTimes(ctx, s.db,
		`SELECT id, modified FROM cards WHERE modified > $1 ORDER BY modified`, t)
}

// OrphanCount implements store.CardStore.OrphanCount.
func (s *PostgresCardStore) OrphanCount(ctx context.Context) (int, error) {
	query := `
		SELECT count(*) FROM cards c
		WHERE NOT EXISTS (SELECT 1 FROM facts f WHERE f.id = c.fact_id)
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// buildQueueQuery renders a QueueQuery into SQL. The ordering and limit
// clauses are only emitted when ordered is true.
func buildQueueQuery(selectClause string, q store.QueueQuery, ordered bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.AllTypes {
		conds = append(conds, "c.card_type = "+arg(int(q.Type)))
	}
	if q.MinPriority != 0 {
		conds = append(conds, "c.priority >= "+arg(q.MinPriority))
	}
	if q.DueBefore != 0 {
		conds = append(conds, "c.combined_due < "+arg(q.DueBefore))
	}
	if q.DueAfter != 0 {
		conds = append(conds, "c.combined_due > "+arg(q.DueAfter))
	}
	if len(q.Tags) > 0 {
		lowered := make([]string, len(q.Tags))
		for i, t := range q.Tags {
			lowered[i] = strings.ToLower(strings.TrimSpace(t))
		}
		conds = append(conds, `EXISTS (
			SELECT 1 FROM facts f
			WHERE f.id = c.fact_id
			AND string_to_array(lower(f.tags), ',') && `+arg(lowered)+`::text[])`)
	}

	query := selectClause
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if ordered {
		switch q.Order {
		case store.OrderByPriorityDue:
			query += " ORDER BY c.priority DESC, c.combined_due ASC"
		case store.OrderByCreated:
			query += " ORDER BY c.created ASC"
		case store.OrderRandom:
			query += " ORDER BY random()"
		case store.OrderByInterval:
			query += " ORDER BY c.interval ASC"
		default:
			query += " ORDER BY c.combined_due ASC"
		}
		if q.Limit > 0 {
			query += " LIMIT " + arg(q.Limit)
		}
	}
	return query, args
}

func cardArgs(c *domain.Card) []any {
	return []any{
		c.ID, c.FactID, c.Ordinal, int(c.Type), c.Priority,
		c.Interval, c.LastInterval, c.Due, c.LastDue, c.CombinedDue,
		c.Factor, c.LastFactor,
		c.Reps, c.Successive, c.YesCount, c.NoCount,
		c.YoungEase[1], c.YoungEase[2], c.YoungEase[3], c.YoungEase[4],
		c.MatureEase[1], c.MatureEase[2], c.MatureEase[3], c.MatureEase[4],
		c.SpaceUntil, c.RelativeDelay, c.FirstAnswered,
		c.ReviewTime, c.AverageTime, c.Created, c.Modified,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	var cardType int
	err := row.Scan(
		&c.ID, &c.FactID, &c.Ordinal, &cardType, &c.Priority,
		&c.Interval, &c.LastInterval, &c.Due, &c.LastDue, &c.CombinedDue,
		&c.Factor, &c.LastFactor,
		&c.Reps, &c.Successive, &c.YesCount, &c.NoCount,
		&c.YoungEase[1], &c.YoungEase[2], &c.YoungEase[3], &c.YoungEase[4],
		&c.MatureEase[1], &c.MatureEase[2], &c.MatureEase[3], &c.MatureEase[4],
		&c.SpaceUntil, &c.RelativeDelay, &c.FirstAnswered,
		&c.ReviewTime, &c.AverageTime, &c.Created, &c.Modified,
	)
	if err != nil {
		return nil, err
	}
	c.Type = domain.CardType(cardType)
	return &c, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// queryIDTimes runs a two-column (uuid, float8) query shared by the
// ModifiedSince implementations.
func queryIDTimes(ctx context.Context, db store.DBTX, query string, args ...any) ([]store.IDTime, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.IDTime
	for rows.Next() {
		var it store.IDTime
		if err := rows.Scan(&it.ID, &it.Time); err != nil {
			return nil, MapError(err)
		}
		out = append(out, it)
	}
	return out, MapError(rows.Err())
}
