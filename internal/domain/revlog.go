package domain

import "github.com/google/uuid"

// ReviewEntry is one row of review history, recorded on every answer and
// bundled during sync so both stores agree on what was studied when.
type ReviewEntry struct {
	ID           uuid.UUID
	CardID       uuid.UUID
	Time         float64 // epoch seconds of the answer
	LastInterval float64
	NextInterval float64
	Ease         Ease
	Factor       float64
	TimeTaken    float64 // seconds from question shown to answer graded
	ThinkingTime float64 // seconds from question shown to answer revealed
}
