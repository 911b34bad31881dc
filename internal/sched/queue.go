package sched

import (
	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/store"
)

// queue is a deque of queue items ordered by effective due time, oldest
// at the front. The "removed but maybe requeued" pattern the selection
// algorithm needs is expressed as named operations: peekDue/popDue at the
// front, pushFront to put a popped item back, pushBack to requeue at the
// tail.
type queue struct {
	items []store.QueueItem
}

func newQueue(items []store.QueueItem) *queue {
	return &queue{items: items}
}

func (q *queue) len() int {
	return len(q.items)
}

func (q *queue) empty() bool {
	return len(q.items) == 0
}

// peekDue returns the front item without removing it.
func (q *queue) peekDue() (store.QueueItem, bool) {
	if len(q.items) == 0 {
		return store.QueueItem{}, false
	}
	return q.items[0], true
}

// popDue removes and returns the front item.
func (q *queue) popDue() (store.QueueItem, bool) {
	if len(q.items) == 0 {
		return store.QueueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// pushFront restores an item to the head of the queue.
func (q *queue) pushFront(item store.QueueItem) {
	q.items = append([]store.QueueItem{item}, q.items...)
}

// pushBack requeues an item at the tail.
func (q *queue) pushBack(item store.QueueItem) {
	q.items = append(q.items, item)
}

// remove drops every item with the given card id.
func (q *queue) remove(cardID uuid.UUID) {
	out := q.items[:0]
	for _, it := range q.items {
		if it.CardID != cardID {
			out = append(out, it)
		}
	}
	q.items = out
}

// spacedGroup holds sibling cards released together at a future time so
// that two cards of one fact never appear back to back.
type spacedGroup struct {
	releaseAt float64
	items     []store.QueueItem
}

// spacedTable tracks which facts are currently spaced and which popped
// siblings wait for release.
type spacedTable struct {
	facts  map[uuid.UUID]float64 // fact id -> release time
	groups []spacedGroup
}

func newSpacedTable() *spacedTable {
	return &spacedTable{facts: make(map[uuid.UUID]float64)}
}

// spaceFact holds a fact's remaining siblings back until releaseAt.
func (t *spacedTable) spaceFact(factID uuid.UUID, releaseAt float64) {
	if cur, ok := t.facts[factID]; !ok || releaseAt > cur {
		t.facts[factID] = releaseAt
	}
}

// isSpaced reports whether the fact is held back at the given time.
func (t *spacedTable) isSpaced(factID uuid.UUID, now float64) bool {
	release, ok := t.facts[factID]
	if !ok {
		return false
	}
	if release <= now {
		delete(t.facts, factID)
		return false
	}
	return true
}

// addGroup retains popped new-card siblings as one group released together.
func (t *spacedTable) addGroup(releaseAt float64, items []store.QueueItem) {
	if len(items) == 0 {
		return
	}
	t.groups = append(t.groups, spacedGroup{releaseAt: releaseAt, items: items})
}

// releasable returns and removes the items of every group whose release
// time has passed.
func (t *spacedTable) releasable(now float64) []store.QueueItem {
	var released []store.QueueItem
	remaining := t.groups[:0]
	for _, g := range t.groups {
		if g.releaseAt <= now {
			released = append(released, g.items...)
		} else {
			remaining = append(remaining, g)
		}
	}
	t.groups = remaining
	return released
}

// reset clears all spacing state.
func (t *spacedTable) reset() {
	t.facts = make(map[uuid.UUID]float64)
	t.groups = nil
}
