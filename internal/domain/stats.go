package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatsType distinguishes the single lifetime row from the per-day rows.
type StatsType int

const (
	StatsLife StatsType = 0
	StatsDay  StatsType = 1
)

// Stats is a review aggregate: one global lifetime row plus one row per
// calendar day, created lazily and updated on every answered card.
//
// The ease counters are split by the card's age bracket before the answer
// (new / young / mature) and indexed by ease value; slot 0 is unused but
// persisted, matching the historical row layout.
type Stats struct {
	ID   uuid.UUID
	Type StatsType
	Day  time.Time // date only; zero for the lifetime row

	Reps        int
	AverageTime float64 // rolling average seconds per answer
	ReviewTime  float64 // cumulative seconds

	NewEase    [5]int
	YoungEase  [5]int
	MatureEase [5]int
}

// NewStats creates a zeroed stats row of the given type for the given day.
func NewStats(typ StatsType, day time.Time) *Stats {
	return &Stats{
		ID:   uuid.New(),
		Type: typ,
		Day:  day,
	}
}

// RecordAnswer folds one answered card into the aggregate.
// state is the card's age bracket before the answer.
func (s *Stats) RecordAnswer(state string, ease Ease, answerTime float64) {
	if !ease.Valid() {
		return
	}
	switch state {
	case "new":
		s.NewEase[ease]++
	case "young":
		s.YoungEase[ease]++
	case "mature":
		s.MatureEase[ease]++
	}
	s.Reps++
	s.ReviewTime += answerTime
	// Rolling average over the last answers, weighted toward recency.
	if s.Reps == 1 {
		s.AverageTime = answerTime
	} else {
		s.AverageTime = (s.AverageTime*0.95 + answerTime*0.05)
	}
}

// YesShare returns the fraction of successful answers, or 0 for an empty row.
func (s *Stats) YesShare() float64 {
	var yes, total int
	for e := EaseFailed; e <= EaseEasy; e++ {
		n := s.NewEase[e] + s.YoungEase[e] + s.MatureEase[e]
		total += n
		if e != EaseFailed {
			yes += n
		}
	}
	if total == 0 {
		return 0
	}
	return float64(yes) / float64(total)
}
