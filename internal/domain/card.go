package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardFactIDEmpty is returned when a card's fact ID is empty or nil.
	ErrCardFactIDEmpty = errors.New("card fact ID cannot be empty")

	// ErrCardTypeInvalid is returned when a card's type is outside failed/review/new.
	ErrCardTypeInvalid = errors.New("card type must be failed, review or new")

	// ErrCardPriorityInvalid is returned when a card's priority is outside -3..4.
	ErrCardPriorityInvalid = errors.New("card priority must be between -3 and 4")
)

// CardType discriminates which work queue a card belongs to.
type CardType int

const (
	CardTypeFailed CardType = 0
	CardTypeReview CardType = 1
	CardTypeNew    CardType = 2
)

// Scheduling constants shared across the scheduler and domain invariants.
const (
	// FactorFloor is the minimum ease factor a card may carry.
	FactorFloor = 1.3

	// InitialFactor is the ease factor assigned to freshly created cards.
	InitialFactor = 2.5

	// MatureThresholdDays is the interval above which a card counts as mature.
	MatureThresholdDays = 21.0

	// MaxScheduleDays caps computed intervals at a 100 year horizon.
	MaxScheduleDays = 36500.0

	// PrioritySuspended marks a card removed from all queues.
	PrioritySuspended = -3

	// PriorityNormal is the default priority for cards with no tag opinion.
	PriorityNormal = 2

	// PriorityMax is the highest tag-derived priority tier.
	PriorityMax = 4
)

// Card is a single reviewable item projected from a fact. The scheduling
// fields mirror the persisted row exactly; CombinedDue is the effective due
// time once sibling spacing has been applied and is what the queues order by.
type Card struct {
	ID      uuid.UUID
	FactID  uuid.UUID
	Ordinal int

	Type         CardType
	Priority     int
	Interval     float64 // days
	LastInterval float64
	Due          float64 // epoch seconds
	LastDue      float64
	CombinedDue  float64
	Factor       float64
	LastFactor   float64

	Reps       int
	Successive int
	YesCount   int
	NoCount    int

	// Ease outcome counters, indexed by ease value. Slot 0 is unused but
	// persisted, matching the historical row layout.
	YoungEase  [5]int
	MatureEase [5]int

	SpaceUntil    float64
	RelativeDelay float64
	FirstAnswered float64
	ReviewTime    float64
	AverageTime   float64

	Created  float64
	Modified float64

	// Transient flags set only during the suspension act itself; never persisted.
	IsLeech      bool
	WasSuspended bool
}

// NewCard creates a card for the given fact and card-model ordinal with
// new-card scheduling state.
func NewCard(factID uuid.UUID, ordinal int) (*Card, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	card := &Card{
		ID:          uuid.New(),
		FactID:      factID,
		Ordinal:     ordinal,
		Type:        CardTypeNew,
		Priority:    PriorityNormal,
		Factor:      InitialFactor,
		LastFactor:  InitialFactor,
		Due:         now,
		CombinedDue: now,
		Created:     now,
		Modified:    now,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// Validate checks the card's identity and invariants.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}
	if c.FactID == uuid.Nil {
		return ErrCardFactIDEmpty
	}
	if c.Type < CardTypeFailed || c.Type > CardTypeNew {
		return ErrCardTypeInvalid
	}
	if c.Priority < PrioritySuspended || c.Priority > PriorityMax {
		return ErrCardPriorityInvalid
	}
	return nil
}

// IsNew reports whether the card has never been answered successfully.
func (c *Card) IsNew() bool {
	return c.Reps == 0
}

// IsRev reports whether the card is in successful-review state.
func (c *Card) IsRev() bool {
	return c.Successive > 0
}

// IsMature reports whether the card's interval has crossed the mature threshold.
func (c *Card) IsMature() bool {
	return c.Interval > MatureThresholdDays
}

// State names the card's age bracket as used by due-date bonuses and stats.
func (c *Card) State() string {
	switch {
	case c.IsNew():
		return "new"
	case c.IsMature():
		return "mature"
	default:
		return "young"
	}
}

// ComputedType derives the queue discriminant from the rep counters.
// The stored Type must always equal this value; UpdateType restores it.
func (c *Card) ComputedType() CardType {
	switch {
	case c.IsRev():
		return CardTypeReview
	case c.IsNew():
		return CardTypeNew
	default:
		return CardTypeFailed
	}
}

// UpdateType recomputes Type from the rep counters.
func (c *Card) UpdateType() {
	c.Type = c.ComputedType()
}

// UpdateFactor applies a factor change and enforces the floor.
func (c *Card) UpdateFactor(delta float64) {
	c.LastFactor = c.Factor
	c.Factor += delta
	if c.Factor < FactorFloor {
		c.Factor = FactorFloor
	}
}

// Touch bumps the modification clock, which drives sync diffing.
func (c *Card) Touch(now float64) {
	c.Modified = now
}

// Suspend removes the card from scheduling and marks the transient flags
// so that the caller can report what happened.
func (c *Card) Suspend(now float64) {
	c.Priority = PrioritySuspended
	c.WasSuspended = true
	c.Modified = now
}

// EaseCount returns the young or mature outcome counter for the given ease.
func (c *Card) EaseCount(mature bool, ease Ease) int {
	if !ease.Valid() {
		return 0
	}
	if mature {
		return c.MatureEase[ease]
	}
	return c.YoungEase[ease]
}

// RecordEase bumps the outcome counters and yes/no totals for an answer
// given against the pre-answer state of the card.
func (c *Card) RecordEase(wasMature bool, ease Ease) {
	if !ease.Valid() {
		return
	}
	if wasMature {
		c.MatureEase[ease]++
	} else {
		c.YoungEase[ease]++
	}
	if ease == EaseFailed {
		c.NoCount++
		c.Successive = 0
	} else {
		c.YesCount++
		c.Successive++
	}
	c.Reps++
}
