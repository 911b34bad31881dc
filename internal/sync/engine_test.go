package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/store"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// Count-only fakes for the full-sync decision: the embedded interface
// satisfies the rest of the surface, which these tests never touch.
type fakeRevlog struct {
	store.RevlogStore
	count int
}

func (f *fakeRevlog) CountSince(_ context.Context, _ float64) (int, error) {
	return f.count, nil
}

type fakeStats struct {
	store.StatsStore
	days int
}

func (f *fakeStats) CountDaysSince(_ context.Context, _ time.Time) (int, error) {
	return f.days, nil
}

func summaryWith(n int) *wire.Summary {
	s := &wire.Summary{}
	for i := 0; i < n; i++ {
		s.Cards = append(s.Cards, wire.IDTime{ID: uuid.New(), Time: float64(i)})
	}
	return s
}

func TestNeedFullSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		lastSync   float64
		localLen   int
		remoteLen  int
		revlogRows int
		statsRows  int
		want       bool
	}{
		{name: "never synced", lastSync: 0, want: true},
		{name: "negative watermark", lastSync: -5, want: true},
		{name: "small recent summaries", lastSync: 1000, localLen: 10, remoteLen: 10, want: false},
		{name: "local summary at limit", lastSync: 1000, localLen: 500, want: false},
		{name: "local summary over limit", lastSync: 1000, localLen: 501, want: true},
		{name: "remote summary over limit", lastSync: 1000, remoteLen: 501, want: true},
		{name: "too much history", lastSync: 1000, revlogRows: 501, want: true},
		{name: "too many stats rows", lastSync: 1000, statsRows: 101, want: true},
		{name: "stats rows at limit", lastSync: 1000, statsRows: 100, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &Engine{st: Stores{
				Revlog: &fakeRevlog{count: tt.revlogRows},
				Stats:  &fakeStats{days: tt.statsRows},
			}}

			got, err := e.NeedFullSync(context.Background(), tt.lastSync,
				summaryWith(tt.localLen), summaryWith(tt.remoteLen))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdjustedLastSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		local  float64
		remote float64
		skew   float64
		want   float64
	}{
		{name: "local older", local: 100, remote: 200, skew: 0, want: 90},
		{name: "remote older", local: 200, remote: 100, skew: 0, want: 90},
		{name: "positive skew widens window", local: 100, remote: 100, skew: 30, want: 60},
		{name: "negative skew widens window too", local: 100, remote: 100, skew: -30, want: 60},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, adjustedLastSync(tt.local, tt.remote, tt.skew), 1e-9)
		})
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	code, err := statusOf(errStatus(StatusTooBusy, errors.New("busy")))
	assert.Equal(t, StatusTooBusy, code)
	var se *SyncError
	assert.ErrorAs(t, err, &se)

	code, err = statusOf(errors.New("plain failure"))
	assert.Equal(t, StatusError, code)
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, StatusError, se.Code)
}
