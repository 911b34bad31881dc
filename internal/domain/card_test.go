package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardDefaults(t *testing.T) {
	t.Parallel()

	factID := uuid.New()
	card, err := NewCard(factID, 1)
	require.NoError(t, err)

	assert.Equal(t, factID, card.FactID)
	assert.Equal(t, CardTypeNew, card.Type)
	assert.Equal(t, PriorityNormal, card.Priority)
	assert.Equal(t, InitialFactor, card.Factor)
	assert.True(t, card.IsNew())
	assert.Equal(t, "new", card.State())
}

func TestCardValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Card)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Card) {}},
		{name: "missing id", mutate: func(c *Card) { c.ID = uuid.Nil }, wantErr: ErrCardIDEmpty},
		{name: "missing fact", mutate: func(c *Card) { c.FactID = uuid.Nil }, wantErr: ErrCardFactIDEmpty},
		{name: "bad type", mutate: func(c *Card) { c.Type = 7 }, wantErr: ErrCardTypeInvalid},
		{name: "priority too low", mutate: func(c *Card) { c.Priority = -4 }, wantErr: ErrCardPriorityInvalid},
		{name: "priority too high", mutate: func(c *Card) { c.Priority = 5 }, wantErr: ErrCardPriorityInvalid},
		{name: "suspended is valid", mutate: func(c *Card) { c.Priority = PrioritySuspended }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card, err := NewCard(uuid.New(), 0)
			require.NoError(t, err)
			tt.mutate(card)

			err = card.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardComputedType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reps       int
		successive int
		want       CardType
	}{
		{name: "never answered", want: CardTypeNew},
		{name: "in review", reps: 3, successive: 1, want: CardTypeReview},
		{name: "failed", reps: 3, successive: 0, want: CardTypeFailed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card, err := NewCard(uuid.New(), 0)
			require.NoError(t, err)
			card.Reps = tt.reps
			card.Successive = tt.successive

			assert.Equal(t, tt.want, card.ComputedType())
			card.UpdateType()
			assert.Equal(t, card.ComputedType(), card.Type)
		})
	}
}

func TestCardRecordEaseKeepsTypeConsistent(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), 0)
	require.NoError(t, err)

	for _, ease := range []Ease{EaseMid, EaseMid, EaseFailed, EaseHard, EaseEasy} {
		card.RecordEase(card.IsMature(), ease)
		card.UpdateType()
		assert.Equal(t, card.ComputedType(), card.Type)
	}

	assert.Equal(t, 5, card.Reps)
	assert.Equal(t, 4, card.YesCount)
	assert.Equal(t, 1, card.NoCount)
	assert.Equal(t, 2, card.Successive)
	assert.Equal(t, 1, card.YoungEase[EaseFailed])
}

func TestCardMaturity(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), 0)
	require.NoError(t, err)
	card.Reps = 10
	card.Successive = 4

	card.Interval = MatureThresholdDays
	assert.False(t, card.IsMature())
	assert.Equal(t, "young", card.State())

	card.Interval = MatureThresholdDays + 1
	assert.True(t, card.IsMature())
	assert.Equal(t, "mature", card.State())
}

func TestCardUpdateFactorFloor(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), 0)
	require.NoError(t, err)
	card.Factor = 1.4

	card.UpdateFactor(-0.20)
	assert.Equal(t, FactorFloor, card.Factor)
	assert.Equal(t, 1.4, card.LastFactor)
}
