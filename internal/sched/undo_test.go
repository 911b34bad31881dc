package sched

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/store"
)

// memRowStore is an in-memory RowStore backing the undo tests: rows are
// maps of column values keyed by (table, id).
type memRowStore struct {
	rows map[string]map[string]any
}

func newMemRowStore() *memRowStore {
	return &memRowStore{rows: make(map[string]map[string]any)}
}

func rowKey(table string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", table, id)
}

func (s *memRowStore) put(table string, id uuid.UUID, values map[string]any) {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.rows[rowKey(table, id)] = copied
}

func (s *memRowStore) Snapshot(_ context.Context, table string, id uuid.UUID) (map[string]any, bool, error) {
	values, ok := s.rows[rowKey(table, id)]
	if !ok {
		return nil, false, nil
	}
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return copied, true, nil
}

func (s *memRowStore) Restore(_ context.Context, table string, id uuid.UUID, values map[string]any) error {
	s.put(table, id, values)
	return nil
}

func (s *memRowStore) DeleteRow(_ context.Context, table string, id uuid.UUID) error {
	delete(s.rows, rowKey(table, id))
	return nil
}

func (s *memRowStore) PurgeTables(_ context.Context, _ ...string) error { return nil }

func (s *memRowStore) WithTxRowStore(_ *sql.Tx) store.RowStore { return s }

var _ store.RowStore = (*memRowStore)(nil)

func TestUndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rows := newMemRowStore()
	cardID := uuid.New()

	before := map[string]any{"due": 100.0, "interval": 3.0, "factor": 2.5}
	after := map[string]any{"due": 500.0, "interval": 7.5, "factor": 2.65}
	rows.put("cards", cardID, before)

	log := &undoLog{}
	rec := log.begin("Answer Card", cardID)
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, after)
	log.commit(rec)

	// Undo restores the pre-answer values.
	undone, err := log.undo(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, cardID, undone)
	got, ok, err := rows.Snapshot(ctx, "cards", cardID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, got)

	// Redo reproduces the post-answer values exactly.
	redone, err := log.redo(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, cardID, redone)
	got, ok, err = rows.Snapshot(ctx, "cards", cardID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, after, got)
}

func TestUndoDeletesRowThatDidNotExist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rows := newMemRowStore()
	cardID := uuid.New()

	log := &undoLog{}
	rec := log.begin("Add Fact", cardID)
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, map[string]any{"due": 1.0})
	log.commit(rec)

	_, err := log.undo(ctx, rows)
	require.NoError(t, err)
	_, ok, err := rows.Snapshot(ctx, "cards", cardID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoFirstCaptureWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rows := newMemRowStore()
	cardID := uuid.New()
	rows.put("cards", cardID, map[string]any{"due": 1.0})

	log := &undoLog{}
	rec := log.begin("Answer Card", cardID)
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, map[string]any{"due": 2.0})
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, map[string]any{"due": 3.0})
	log.commit(rec)

	_, err := log.undo(ctx, rows)
	require.NoError(t, err)
	got, _, err := rows.Snapshot(ctx, "cards", cardID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["due"])
}

func TestUndoNewActionClearsRedo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rows := newMemRowStore()
	cardID := uuid.New()
	rows.put("cards", cardID, map[string]any{"due": 1.0})

	log := &undoLog{}

	rec := log.begin("Answer Card", cardID)
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, map[string]any{"due": 2.0})
	log.commit(rec)

	_, err := log.undo(ctx, rows)
	require.NoError(t, err)
	assert.True(t, log.canRedo())

	rec = log.begin("Suspend Card", cardID)
	require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
	rows.put("cards", cardID, map[string]any{"due": 9.0})
	log.commit(rec)

	assert.False(t, log.canRedo())
	name, ok := log.undoName()
	assert.True(t, ok)
	assert.Equal(t, "Suspend Card", name)
}

func TestUndoDepthCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rows := newMemRowStore()
	cardID := uuid.New()
	rows.put("cards", cardID, map[string]any{"due": 0.0})

	log := &undoLog{}
	for i := 1; i <= undoLimit+5; i++ {
		rec := log.begin("Answer Card", cardID)
		require.NoError(t, rec.capture(ctx, rows, "cards", cardID))
		rows.put("cards", cardID, map[string]any{"due": float64(i)})
		log.commit(rec)
	}
	assert.Len(t, log.undoStack, undoLimit)

	for {
		if _, err := log.undo(ctx, rows); err != nil {
			break
		}
	}
	// Only the capped window unwinds; older history is gone.
	got, _, err := rows.Snapshot(ctx, "cards", cardID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got["due"])
}

func TestUndoEmptyLog(t *testing.T) {
	t.Parallel()

	log := &undoLog{}
	_, err := log.undo(context.Background(), newMemRowStore())
	assert.ErrorIs(t, err, ErrNothingToUndo)
	assert.False(t, log.canUndo())

	// Reset after a deletion leaves nothing replayable.
	log.reset()
	assert.False(t, log.canUndo())
	assert.False(t, log.canRedo())
}
