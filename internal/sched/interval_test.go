package sched

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/domain"
)

func testDeck() *domain.Deck {
	d := domain.NewDeck()
	d.EasyIntervalMin = 4
	d.EasyIntervalMax = 6
	return d
}

func testCard(t *testing.T) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(uuid.New(), 0)
	require.NoError(t, err)
	return card
}

func TestNextIntervalNewCardEasyTier(t *testing.T) {
	t.Parallel()

	deck := testDeck()
	card := testCard(t)

	// With fuzz exactly in the middle, the seeded interval is the tier
	// midpoint.
	interval := nextInterval(deck, card, 0, domain.EaseEasy, 0.5)
	assert.InDelta(t, 5.0, interval, 1e-9)
}

func TestNextIntervalBounds(t *testing.T) {
	t.Parallel()

	deck := testDeck()

	tests := []struct {
		name     string
		interval float64
		factor   float64
		delay    float64
		ease     domain.Ease
		fuzz     float64
	}{
		{name: "failed resets", interval: 30, factor: 2.5, ease: domain.EaseFailed},
		{name: "huge interval is capped", interval: 36000, factor: 4.0, ease: domain.EaseEasy, fuzz: 0.99},
		{name: "negative delay cannot go below zero", interval: 1, factor: 1.3, delay: -400, ease: domain.EaseHard},
		{name: "on time mid", interval: 10, factor: 2.5, ease: domain.EaseMid, fuzz: 0.2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := testCard(t)
			card.Interval = tt.interval
			card.LastInterval = tt.interval
			card.Factor = tt.factor
			card.Reps = 3
			card.Successive = 3

			got := nextInterval(deck, card, tt.delay, tt.ease, tt.fuzz)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, domain.MaxScheduleDays)
		})
	}
}

func TestNextIntervalFailedUsesFailedFactor(t *testing.T) {
	t.Parallel()

	deck := testDeck()
	deck.FailedFactor = 0.5

	card := testCard(t)
	card.Interval = 40
	card.Reps = 5
	card.Successive = 5

	got := nextInterval(deck, card, 0, domain.EaseFailed, 0)
	assert.InDelta(t, 20.0, got, 1e-9)

	// A zero failed factor resets the interval outright.
	deck.FailedFactor = 0
	got = nextInterval(deck, card, 0, domain.EaseFailed, 0)
	assert.Zero(t, got)
}

func TestNextDueFailedMatureBonus(t *testing.T) {
	t.Parallel()

	const (
		now          = 1_000_000.0
		failedCutoff = 1_050_000.0
	)

	deck := testDeck()
	deck.FailedBonusDays = 2

	due := nextDue(deck, 0, domain.EaseFailed, "mature", now, failedCutoff)
	assert.InDelta(t, failedCutoff+86400, due, 1e-9)
}

func TestNextDueFailedSentinelMeansNoBonus(t *testing.T) {
	t.Parallel()

	const (
		now          = 1_000_000.0
		failedCutoff = 1_050_000.0
	)

	deck := testDeck()
	deck.FailedBonusDays = domain.NoBonusSentinel

	due := nextDue(deck, 0, domain.EaseFailed, "mature", now, failedCutoff)
	assert.InDelta(t, now, due, 1e-9)

	// Young failures never get the bonus regardless of the setting.
	deck.FailedBonusDays = 2
	due = nextDue(deck, 0, domain.EaseFailed, "young", now, failedCutoff)
	assert.InDelta(t, now, due, 1e-9)
}

func TestNextDueSuccessAddsInterval(t *testing.T) {
	t.Parallel()

	const now = 1_000_000.0

	deck := testDeck()
	due := nextDue(deck, 5, domain.EaseEasy, "new", now, now)
	assert.InDelta(t, now+5*86400, due, 1e-9)
}

func TestFactorAdjustmentFloor(t *testing.T) {
	t.Parallel()

	card := testCard(t)
	card.Factor = 1.35

	card.UpdateFactor(factorAdjustment(domain.EaseFailed))
	assert.InDelta(t, domain.FactorFloor, card.Factor, 1e-9)

	// Easy answers grow the factor again.
	card.UpdateFactor(factorAdjustment(domain.EaseEasy))
	assert.InDelta(t, domain.FactorFloor+0.15, card.Factor, 1e-9)
}

func TestAdjustedDelay(t *testing.T) {
	t.Parallel()

	const (
		now          = 1_000_000.0
		failedCutoff = 990_000.0
	)

	card := testCard(t)
	card.Reps = 2
	card.Successive = 2
	card.Due = now - 2*86400
	card.CombinedDue = now - 86400

	// CombinedDue past the failed cutoff: measured against CombinedDue.
	got := adjustedDelay(card, now, failedCutoff)
	assert.InDelta(t, 1.0, got, 1e-9)

	// Within the cutoff window: measured against the raw due time.
	card.CombinedDue = failedCutoff - 1
	got = adjustedDelay(card, now, failedCutoff)
	assert.InDelta(t, 2.0, got, 1e-9)

	// New cards are always on time.
	fresh := testCard(t)
	assert.Zero(t, adjustedDelay(fresh, now, failedCutoff))
}
