package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/store"
)

// undoableTables is the allowlist of tables the generic row primitive
// may touch. Table names arrive from code, never from user input, so an
// unknown name is a programming error.
var undoableTables = map[string]bool{
	"cards":  true,
	"facts":  true,
	"fields": true,
	"stats":  true,
	"revlog": true,
	"deck":   true,
}

// PostgresRowStore implements the store.RowStore interface: a generic
// snapshot/restore primitive over the allowlisted tables, keyed by the
// id column each of them carries.
type PostgresRowStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRowStore creates a new PostgreSQL implementation of the
// RowStore interface. If logger is nil, a default logger will be used.
func NewPostgresRowStore(db store.DBTX, logger *slog.Logger) *PostgresRowStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRowStore{
		db:     db,
		logger: logger.With(slog.String("component", "row_store")),
	}
}

var _ store.RowStore = (*PostgresRowStore)(nil)

// WithTxRowStore returns a RowStore bound to the given transaction.
func (s *PostgresRowStore) WithTxRowStore(tx *sql.Tx) store.RowStore {
	return &PostgresRowStore{db: tx, logger: s.logger}
}

// Snapshot implements store.RowStore.Snapshot.
func (s *PostgresRowStore) Snapshot(ctx context.Context, table string, id uuid.UUID) (map[string]any, bool, error) {
	if !undoableTables[table] {
		return nil, false, fmt.Errorf("%w: table %q is not undoable", store.ErrInvalidEntity, table)
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if err != nil {
		log.Error("failed to snapshot row",
			slog.String("error", err.Error()),
			slog.String("table", table),
			slog.String("row_id", id.String()))
		return nil, false, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, false, MapError(err)
		}
		return nil, false, nil
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, MapError(err)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, false, MapError(err)
	}

	values := make(map[string]any, len(cols))
	for i, col := range cols {
		values[col] = vals[i]
	}
	return values, true, nil
}

// Restore implements store.RowStore.Restore by deleting any current row
// and reinserting the captured values.
func (s *PostgresRowStore) Restore(ctx context.Context, table string, id uuid.UUID, values map[string]any) error {
	if !undoableTables[table] {
		return fmt.Errorf("%w: table %q is not undoable", store.ErrInvalidEntity, table)
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.DeleteRow(ctx, table, id); err != nil {
		return err
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to restore row",
			slog.String("error", err.Error()),
			slog.String("table", table),
			slog.String("row_id", id.String()))
		return MapError(err)
	}
	return nil
}

// purgeableTables extends the undoable set with the tables full sync
// replaces wholesale.
var purgeableTables = map[string]bool{
	"cards": true, "facts": true, "fields": true,
	"models": true, "card_models": true, "field_models": true,
	"stats": true, "revlog": true, "tombstones": true, "deck": true,
}

// PurgeTables implements store.RowStore.PurgeTables.
func (s *PostgresRowStore) PurgeTables(ctx context.Context, tables ...string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, table := range tables {
		if !purgeableTables[table] {
			return fmt.Errorf("%w: table %q cannot be purged", store.ErrInvalidEntity, table)
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			log.Error("failed to purge table",
				slog.String("error", err.Error()),
				slog.String("table", table))
			return MapError(err)
		}
	}
	return nil
}

// DeleteRow implements store.RowStore.DeleteRow.
func (s *PostgresRowStore) DeleteRow(ctx context.Context, table string, id uuid.UUID) error {
	if !undoableTables[table] {
		return fmt.Errorf("%w: table %q is not undoable", store.ErrInvalidEntity, table)
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return MapError(err)
	}
	return nil
}
