// Package sched implements the scheduling core: the three work queues and
// the sibling spacing table, card selection, interval and due-date
// computation, tag-derived priorities, leech detection, the undo/redo
// command log and the per-answer stats updates.
//
// The scheduler operates in one of four modes (standard, review-early,
// learn-more, cram). Each mode is a strategy value supplying the queue
// fill, count, selection and requeue behavior it overrides; entering a
// mode is explicit, leaving it happens through the strategy's finish
// transition once its queue is exhausted.
//
// All public operations on one Scheduler are serialized behind a single
// lock, and every mutating operation runs inside one store transaction.
// Store failures during queue fills are logged and treated as empty
// results: selection always returns a card or reports that none is due,
// never an error.
package sched
