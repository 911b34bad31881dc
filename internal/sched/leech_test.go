package sched

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/domain"
)

func TestIsLeech(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		noCount    int
		successive int
		threshold  int
		want       bool
	}{
		{name: "at threshold", noCount: 16, threshold: 16, want: true},
		{name: "below threshold", noCount: 15, threshold: 16, want: false},
		{name: "periodic retrigger", noCount: 24, threshold: 16, want: true},
		{name: "between retriggers", noCount: 25, threshold: 16, want: false},
		{name: "second retrigger", noCount: 32, threshold: 16, want: true},
		{name: "in review state", noCount: 16, successive: 2, threshold: 16, want: false},
		{name: "disabled threshold", noCount: 100, threshold: 0, want: false},
		{name: "threshold one", noCount: 3, threshold: 1, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card, err := domain.NewCard(uuid.New(), 0)
			require.NoError(t, err)
			card.NoCount = tt.noCount
			card.Successive = tt.successive

			assert.Equal(t, tt.want, isLeech(card, tt.threshold))
		})
	}
}
