package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// RowStore is the generic row snapshot/restore primitive the undo log is
// built on. A command captures a row's prior column values with Snapshot
// and reverses the mutation with Restore (or DeleteRow when the row did
// not exist before).
//
// Implementations restrict table to a fixed allowlist; an unknown table
// name is a programming error and returns ErrInvalidEntity.
type RowStore interface {
	// Snapshot returns the row's column values keyed by column name, and
	// whether the row exists.
	Snapshot(ctx context.Context, table string, id uuid.UUID) (map[string]any, bool, error)

	// Restore writes the given column values back, inserting the row if
	// it does not exist.
	Restore(ctx context.Context, table string, id uuid.UUID, values map[string]any) error

	// DeleteRow removes the row if present.
	DeleteRow(ctx context.Context, table string, id uuid.UUID) error

	// PurgeTables empties the given tables. Used by full sync when the
	// local store is replaced wholesale.
	PurgeTables(ctx context.Context, tables ...string) error

	// WithTxRowStore returns a RowStore bound to the given transaction.
	WithTxRowStore(tx *sql.Tx) RowStore
}
