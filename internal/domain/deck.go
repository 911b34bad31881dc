package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewCardOrder controls how the new-card queue is sorted.
type NewCardOrder int

const (
	NewCardsRandom  NewCardOrder = 0
	NewCardsInOrder NewCardOrder = 1
)

// NewCardSpacing controls when new cards are interleaved with reviews.
type NewCardSpacing int

const (
	NewCardsDistribute NewCardSpacing = 0
	NewCardsLast       NewCardSpacing = 1
	NewCardsFirst      NewCardSpacing = 2
)

// NoBonusSentinel is the historical "no bonus" marker for the failed-mature
// bonus delay. It is matched literally and never treated as a day count.
const NoBonusSentinel = 600

// Deck is the singleton configuration row: scheduling parameters, tag
// priority rules, per-day counters and the sync watermark. It is
// read-mostly; mutations go through setters that bump Modified so that
// sync can tell which side's configuration is fresher.
type Deck struct {
	ID       uuid.UUID
	Created  float64
	Modified float64
	LastSync float64

	// Interval tiers in days, per ease.
	HardIntervalMin float64
	HardIntervalMax float64
	MidIntervalMin  float64
	MidIntervalMax  float64
	EasyIntervalMin float64
	EasyIntervalMax float64

	// Delay0 is seconds a failed card waits before re-showing.
	// FailedBonusDays pushes failed mature cards to a future day start;
	// NoBonusSentinel disables it. FailedFactor scales a failed card's
	// interval (0 resets it outright).
	Delay0          float64
	FailedBonusDays float64
	FailedFactor    float64

	// CollapseTime, when non-zero, lets waiting failed cards show before
	// their delay expires once nothing else is due.
	CollapseTime float64

	// FailedCardMax bounds how many failed cards may be in play at once;
	// 0 means unlimited.
	FailedCardMax int

	NewCardsPerDay int
	NewCardOrder   NewCardOrder
	NewCardSpacing NewCardSpacing

	LeechThreshold   int
	LeechAutoSuspend bool

	// Tag priority rules: comma separated tag lists per tier.
	LowPriority  string
	MedPriority  string
	HighPriority string
	SuspendedTag string

	// Counters maintained by the scheduler.
	CardCount     int
	FactCount     int
	NewCountToday int
	RepsToday     int
	DayCutoff     float64 // epoch seconds of the next 4am boundary
}

// NewDeck creates a deck with the historical default scheduling parameters.
func NewDeck() *Deck {
	now := float64(time.Now().UnixNano()) / 1e9
	return &Deck{
		ID:       uuid.New(),
		Created:  now,
		Modified: now,

		HardIntervalMin: 0.333,
		HardIntervalMax: 0.5,
		MidIntervalMin:  3.0,
		MidIntervalMax:  5.0,
		EasyIntervalMin: 7.0,
		EasyIntervalMax: 9.0,

		Delay0:          600,
		FailedBonusDays: NoBonusSentinel,
		FailedFactor:    0,

		CollapseTime: 1,

		NewCardsPerDay: 20,
		NewCardOrder:   NewCardsInOrder,
		NewCardSpacing: NewCardsDistribute,

		LeechThreshold:   16,
		LeechAutoSuspend: true,

		SuspendedTag: "Suspended",
	}
}

// SetModified bumps the configuration clock.
func (d *Deck) SetModified(now float64) {
	d.Modified = now
}

// SetLastSync records the sync watermark without touching Modified:
// advancing the watermark is not a user edit.
func (d *Deck) SetLastSync(t float64) {
	d.LastSync = t
}

// SetPriorityTags replaces the three tag-priority rule lists and marks the
// deck modified; the caller must recompute card priorities afterwards.
func (d *Deck) SetPriorityTags(low, med, high string, now float64) {
	d.LowPriority = low
	d.MedPriority = med
	d.HighPriority = high
	d.Modified = now
}

// SetNewCardsPerDay adjusts the daily new-card cap.
func (d *Deck) SetNewCardsPerDay(n int, now float64) {
	d.NewCardsPerDay = n
	d.Modified = now
}

// SetLeechPolicy adjusts the leech threshold and auto-suspend flag.
func (d *Deck) SetLeechPolicy(threshold int, autoSuspend bool, now float64) {
	d.LeechThreshold = threshold
	d.LeechAutoSuspend = autoSuspend
	d.Modified = now
}

// NewCardsLeftToday returns how many new cards may still be introduced.
func (d *Deck) NewCardsLeftToday() int {
	left := d.NewCardsPerDay - d.NewCountToday
	if left < 0 {
		return 0
	}
	return left
}

// PriorityRules derives the tag-to-priority mapping from the deck's rule
// lists: low=1, medium=3, high=4; anything else defaults to 2.
func (d *Deck) PriorityRules() *PriorityRules {
	return &PriorityRules{
		Low:  SplitTags(d.LowPriority),
		Med:  SplitTags(d.MedPriority),
		High: SplitTags(d.HighPriority),
	}
}
