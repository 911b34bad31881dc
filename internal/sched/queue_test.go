package sched

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mnemohq/mnemo/internal/store"
)

func item(due float64) store.QueueItem {
	return store.QueueItem{CardID: uuid.New(), FactID: uuid.New(), Due: due}
}

func TestQueueDequeOperations(t *testing.T) {
	t.Parallel()

	a, b, c := item(1), item(2), item(3)
	q := newQueue([]store.QueueItem{a, b, c})

	front, ok := q.peekDue()
	assert.True(t, ok)
	assert.Equal(t, a.CardID, front.CardID)
	assert.Equal(t, 3, q.len())

	popped, ok := q.popDue()
	assert.True(t, ok)
	assert.Equal(t, a.CardID, popped.CardID)
	assert.Equal(t, 2, q.len())

	// A popped item can be restored to the head or requeued at the tail.
	q.pushFront(popped)
	front, _ = q.peekDue()
	assert.Equal(t, a.CardID, front.CardID)

	q.pushBack(item(4))
	assert.Equal(t, 4, q.len())

	q.remove(b.CardID)
	assert.Equal(t, 3, q.len())
	for _, it := range q.items {
		assert.NotEqual(t, b.CardID, it.CardID)
	}

	q.items = nil
	_, ok = q.popDue()
	assert.False(t, ok)
	assert.True(t, q.empty())
}

func TestSpacedTableFactSpacing(t *testing.T) {
	t.Parallel()

	table := newSpacedTable()
	factID := uuid.New()

	table.spaceFact(factID, 100)
	assert.True(t, table.isSpaced(factID, 50))
	assert.False(t, table.isSpaced(factID, 100))

	// Once the release time passes the fact is forgotten entirely.
	assert.False(t, table.isSpaced(factID, 50))
}

func TestSpacedTableKeepsLatestRelease(t *testing.T) {
	t.Parallel()

	table := newSpacedTable()
	factID := uuid.New()

	table.spaceFact(factID, 200)
	table.spaceFact(factID, 100)
	assert.True(t, table.isSpaced(factID, 150))
}

func TestSpacedTableGroupRelease(t *testing.T) {
	t.Parallel()

	table := newSpacedTable()
	early := []store.QueueItem{item(1), item(2)}
	late := []store.QueueItem{item(3)}

	table.addGroup(100, early)
	table.addGroup(300, late)
	table.addGroup(50, nil)

	released := table.releasable(200)
	assert.Len(t, released, 2)

	released = table.releasable(200)
	assert.Empty(t, released)

	released = table.releasable(400)
	assert.Len(t, released, 1)

	table.addGroup(500, late)
	table.reset()
	assert.Empty(t, table.releasable(1000))
}
