package sched

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/store"
)

// undoLimit caps the depth of each undo/redo stack.
const undoLimit = 20

// undoCommand is one reversible store mutation: the prior column values
// of a row (or its prior absence) captured before the mutation ran.
type undoCommand struct {
	table   string
	id      uuid.UUID
	values  map[string]any
	existed bool
}

// undoRow is a named transaction label plus its ordered command list.
type undoRow struct {
	name   string
	cardID uuid.UUID
	cmds   []undoCommand
}

// recorder is the active command buffer for one undoable operation. It
// is created by undoLog.begin and passed explicitly through the mutating
// call; a nil recorder records nothing, which is how undo/redo replays
// avoid re-recording themselves. The row store is passed per capture so
// that snapshots run against the operation's transaction.
type recorder struct {
	row *undoRow
}

// capture snapshots a row's current state before the caller mutates it.
// Capture the same row once per operation; later captures of the same
// row are ignored so the first (pre-mutation) snapshot wins.
func (r *recorder) capture(ctx context.Context, rows store.RowStore, table string, id uuid.UUID) error {
	if r == nil {
		return nil
	}
	for _, cmd := range r.row.cmds {
		if cmd.table == table && cmd.id == id {
			return nil
		}
	}
	values, existed, err := rows.Snapshot(ctx, table, id)
	if err != nil {
		return fmt.Errorf("failed to capture %s row for undo: %w", table, err)
	}
	r.row.cmds = append(r.row.cmds, undoCommand{
		table:   table,
		id:      id,
		values:  values,
		existed: existed,
	})
	return nil
}

// undoLog holds the undo and redo stacks.
type undoLog struct {
	undoStack []*undoRow
	redoStack []*undoRow
}

// begin opens a new undoable operation and returns its recorder. The
// redo stack is cleared: a fresh action invalidates anything redoable.
func (l *undoLog) begin(name string, cardID uuid.UUID) *recorder {
	l.redoStack = nil
	return &recorder{
		row: &undoRow{name: name, cardID: cardID},
	}
}

// commit pushes the recorded row onto the undo stack. Rows that recorded
// no commands are discarded.
func (l *undoLog) commit(r *recorder) {
	if r == nil || len(r.row.cmds) == 0 {
		return
	}
	l.undoStack = append(l.undoStack, r.row)
	if len(l.undoStack) > undoLimit {
		l.undoStack = l.undoStack[len(l.undoStack)-undoLimit:]
	}
}

// reset discards both stacks. Deletions are permanent and clear the
// history rather than recording an inverse.
func (l *undoLog) reset() {
	l.undoStack = nil
	l.redoStack = nil
}

func (l *undoLog) canUndo() bool { return len(l.undoStack) > 0 }
func (l *undoLog) canRedo() bool { return len(l.redoStack) > 0 }

// undoName returns the label of the next undoable operation, if any.
func (l *undoLog) undoName() (string, bool) {
	if len(l.undoStack) == 0 {
		return "", false
	}
	return l.undoStack[len(l.undoStack)-1].name, true
}

// undo pops the newest row, replays its commands and pushes the inverse
// row onto the redo stack. It returns the card id that was active before
// the undone action; callers must re-fetch and reset queues afterwards.
func (l *undoLog) undo(ctx context.Context, rows store.RowStore) (uuid.UUID, error) {
	return shift(ctx, rows, &l.undoStack, &l.redoStack)
}

// redo is the mirror image of undo.
func (l *undoLog) redo(ctx context.Context, rows store.RowStore) (uuid.UUID, error) {
	return shift(ctx, rows, &l.redoStack, &l.undoStack)
}

// shift pops from one stack, replays, and pushes the inverse row onto
// the other. Each command carries the captured prior values, so applying
// them restores the pre-action state; the values found while applying
// become the inverse row's captures.
func shift(ctx context.Context, rows store.RowStore, from, to *[]*undoRow) (uuid.UUID, error) {
	if len(*from) == 0 {
		return uuid.Nil, ErrNothingToUndo
	}
	row := (*from)[len(*from)-1]

	inverse := &undoRow{name: row.name, cardID: row.cardID}
	// Replay in reverse so dependent writes unwind in the right order.
	for i := len(row.cmds) - 1; i >= 0; i-- {
		cmd := row.cmds[i]

		curValues, curExisted, err := rows.Snapshot(ctx, cmd.table, cmd.id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to snapshot %s row during replay: %w", cmd.table, err)
		}

		if cmd.existed {
			if err := rows.Restore(ctx, cmd.table, cmd.id, cmd.values); err != nil {
				return uuid.Nil, fmt.Errorf("failed to restore %s row during replay: %w", cmd.table, err)
			}
		} else {
			if err := rows.DeleteRow(ctx, cmd.table, cmd.id); err != nil {
				return uuid.Nil, fmt.Errorf("failed to delete %s row during replay: %w", cmd.table, err)
			}
		}

		inverse.cmds = append(inverse.cmds, undoCommand{
			table:   cmd.table,
			id:      cmd.id,
			values:  curValues,
			existed: curExisted,
		})
	}

	*from = (*from)[:len(*from)-1]
	*to = append(*to, inverse)
	if len(*to) > undoLimit {
		*to = (*to)[len(*to)-undoLimit:]
	}
	return row.cardID, nil
}
