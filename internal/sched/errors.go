package sched

import "errors"

var (
	// ErrNothingToUndo is returned by Undo/Redo when the respective stack
	// is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrInvalidEase is returned when an answer carries an ease outside
	// failed/hard/mid/easy.
	ErrInvalidEase = errors.New("invalid ease")

	// ErrWrongMode is returned when an operation is only valid in a mode
	// the scheduler is not in.
	ErrWrongMode = errors.New("operation not valid in current scheduler mode")

	// ErrNoActiveTemplates is returned when a fact's model has no active
	// card templates to generate cards from.
	ErrNoActiveTemplates = errors.New("model has no active card templates")
)
