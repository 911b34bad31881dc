package sched

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
)

// The scheduler opens real transactions around every answer; the nop
// driver satisfies database/sql while the store fakes below hold the
// actual data.
type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return nopConn{}, nil }

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

var nopDB = func() *sql.DB {
	sql.Register("sched-nop", nopDriver{})
	db, err := sql.Open("sched-nop", "")
	if err != nil {
		panic(err)
	}
	return db
}()

// memStores is the shared in-memory data the entity store fakes and the
// row store fake operate on. Values are stored by value so snapshots
// taken for undo are real copies.
type memStores struct {
	cards  map[uuid.UUID]domain.Card
	facts  map[uuid.UUID]domain.Fact
	stats  map[uuid.UUID]domain.Stats
	revlog map[uuid.UUID]domain.ReviewEntry
	decks  map[uuid.UUID]domain.Deck
}

func newMemStores() *memStores {
	return &memStores{
		cards:  make(map[uuid.UUID]domain.Card),
		facts:  make(map[uuid.UUID]domain.Fact),
		stats:  make(map[uuid.UUID]domain.Stats),
		revlog: make(map[uuid.UUID]domain.ReviewEntry),
		decks:  make(map[uuid.UUID]domain.Deck),
	}
}

// The fakes embed their interface and implement only what answering a
// card touches; anything else panics loudly.
type memCards struct {
	store.CardStore
	ms *memStores
}

func (c memCards) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	card, ok := c.ms.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return &card, nil
}

func (c memCards) Update(_ context.Context, card *domain.Card) error {
	if _, ok := c.ms.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	c.ms.cards[card.ID] = *card
	return nil
}

func (c memCards) WithTxCardStore(*sql.Tx) store.CardStore { return c }

type memFacts struct {
	store.FactStore
	ms *memStores
}

func (f memFacts) GetByID(_ context.Context, id uuid.UUID) (*domain.Fact, error) {
	fact, ok := f.ms.facts[id]
	if !ok {
		return nil, store.ErrFactNotFound
	}
	return &fact, nil
}

func (f memFacts) Update(_ context.Context, fact *domain.Fact) error {
	f.ms.facts[fact.ID] = *fact
	return nil
}

func (f memFacts) WithTxFactStore(*sql.Tx) store.FactStore { return f }

type memStats struct {
	store.StatsStore
	ms *memStores
}

func (s memStats) Life(_ context.Context) (*domain.Stats, error) {
	for _, st := range s.ms.stats {
		if st.Type == domain.StatsLife {
			return &st, nil
		}
	}
	st := domain.NewStats(domain.StatsLife, time.Time{})
	s.ms.stats[st.ID] = *st
	return st, nil
}

func (s memStats) Day(_ context.Context, day time.Time) (*domain.Stats, error) {
	for _, st := range s.ms.stats {
		if st.Type == domain.StatsDay && st.Day.Equal(day) {
			return &st, nil
		}
	}
	st := domain.NewStats(domain.StatsDay, day)
	s.ms.stats[st.ID] = *st
	return st, nil
}

func (s memStats) Update(_ context.Context, st *domain.Stats) error {
	s.ms.stats[st.ID] = *st
	return nil
}

func (s memStats) WithTxStatsStore(*sql.Tx) store.StatsStore { return s }

type memRevlog struct {
	store.RevlogStore
	ms *memStores
}

func (r memRevlog) Add(_ context.Context, entry *domain.ReviewEntry) error {
	r.ms.revlog[entry.ID] = *entry
	return nil
}

func (r memRevlog) WithTxRevlogStore(*sql.Tx) store.RevlogStore { return r }

type memDeck struct {
	ms *memStores
}

func (d memDeck) Get(context.Context) (*domain.Deck, error) {
	for _, deck := range d.ms.decks {
		return &deck, nil
	}
	return nil, store.ErrDeckNotFound
}

func (d memDeck) Save(_ context.Context, deck *domain.Deck) error {
	d.ms.decks[deck.ID] = *deck
	return nil
}

func (d memDeck) WithTxDeckStore(*sql.Tx) store.DeckStore { return d }

var _ store.DeckStore = memDeck{}

// memRows is the row store over the same maps, so undo and redo replay
// against the data the entity fakes serve.
type memRows struct {
	ms *memStores
}

func (r memRows) Snapshot(_ context.Context, table string, id uuid.UUID) (map[string]any, bool, error) {
	switch table {
	case "cards":
		if v, ok := r.ms.cards[id]; ok {
			return map[string]any{"row": v}, true, nil
		}
	case "facts":
		if v, ok := r.ms.facts[id]; ok {
			return map[string]any{"row": v}, true, nil
		}
	case "stats":
		if v, ok := r.ms.stats[id]; ok {
			return map[string]any{"row": v}, true, nil
		}
	case "revlog":
		if v, ok := r.ms.revlog[id]; ok {
			return map[string]any{"row": v}, true, nil
		}
	case "deck":
		if v, ok := r.ms.decks[id]; ok {
			return map[string]any{"row": v}, true, nil
		}
	}
	return nil, false, nil
}

func (r memRows) Restore(_ context.Context, _ string, id uuid.UUID, values map[string]any) error {
	switch v := values["row"].(type) {
	case domain.Card:
		r.ms.cards[id] = v
	case domain.Fact:
		r.ms.facts[id] = v
	case domain.Stats:
		r.ms.stats[id] = v
	case domain.ReviewEntry:
		r.ms.revlog[id] = v
	case domain.Deck:
		r.ms.decks[id] = v
	}
	return nil
}

func (r memRows) DeleteRow(_ context.Context, table string, id uuid.UUID) error {
	switch table {
	case "cards":
		delete(r.ms.cards, id)
	case "facts":
		delete(r.ms.facts, id)
	case "stats":
		delete(r.ms.stats, id)
	case "revlog":
		delete(r.ms.revlog, id)
	case "deck":
		delete(r.ms.decks, id)
	}
	return nil
}

func (r memRows) PurgeTables(context.Context, ...string) error { return nil }

func (r memRows) WithTxRowStore(*sql.Tx) store.RowStore { return r }

var _ store.RowStore = memRows{}

// newTestScheduler builds a scheduler over the in-memory stores with a
// fixed clock.
func newTestScheduler(t *testing.T, ms *memStores, now float64) *Scheduler {
	t.Helper()
	ctx := context.Background()

	s, err := New(ctx, Stores{
		DB:     nopDB,
		Cards:  memCards{ms: ms},
		Facts:  memFacts{ms: ms},
		Stats:  memStats{ms: ms},
		Revlog: memRevlog{ms: ms},
		Deck:   memDeck{ms: ms},
		Rows:   memRows{ms: ms},
	}, nil, nil)
	require.NoError(t, err)

	s.now = func() float64 { return now }
	s.refreshCutoffs(now)
	s.deck.DayCutoff = s.dueCutoff
	require.NoError(t, s.st.Deck.Save(ctx, s.deck))
	return s
}

// reviewCard builds a graduated review card due at the given time.
func reviewCard(due, interval, lastInterval float64) *domain.Card {
	created := due - interval*secsPerDay
	return &domain.Card{
		ID:           uuid.New(),
		FactID:       uuid.New(),
		Type:         domain.CardTypeReview,
		Priority:     domain.PriorityNormal,
		Interval:     interval,
		LastInterval: lastInterval,
		Due:          due,
		CombinedDue:  due,
		Factor:       domain.InitialFactor,
		LastFactor:   domain.InitialFactor,
		Reps:         2,
		Successive:   2,
		YesCount:     2,
		Created:      created,
		Modified:     created,
	}
}

var testClock = float64(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).Unix())

func TestAnswerCardEarlyReviewCredit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := newMemStores()

	// Interval 10 reviewed 6 days early with a previous interval of 3:
	// the credited interval is max(3, 10-6) = 4 days, not max against
	// the rolled-over value of 10.
	card := reviewCard(testClock+6*secsPerDay, 10, 3)
	ms.cards[card.ID] = *card

	s := newTestScheduler(t, ms, testClock)
	s.fuzz[card.ID] = 0.5

	require.NoError(t, s.AnswerCard(ctx, card.ID, domain.EaseMid, 4.0, 2.0))

	got := ms.cards[card.ID]
	assert.InDelta(t, 10.0, got.Interval, 1e-9)
	assert.InDelta(t, testClock+10*secsPerDay, got.Due, 1e-6)
	assert.InDelta(t, 10.0, got.LastInterval, 1e-9)
	assert.InDelta(t, domain.InitialFactor, got.Factor, 1e-9)
}

func TestAnswerCardKeepsTypeConsistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := newMemStores()

	card := &domain.Card{
		ID:          uuid.New(),
		FactID:      uuid.New(),
		Type:        domain.CardTypeNew,
		Priority:    domain.PriorityNormal,
		Factor:      domain.InitialFactor,
		LastFactor:  domain.InitialFactor,
		Due:         testClock - 10,
		CombinedDue: testClock - 10,
		Created:     testClock - 10,
		Modified:    testClock - 10,
	}
	ms.cards[card.ID] = *card

	s := newTestScheduler(t, ms, testClock)

	steps := []struct {
		ease domain.Ease
		want domain.CardType
	}{
		{domain.EaseMid, domain.CardTypeReview},
		{domain.EaseFailed, domain.CardTypeFailed},
		{domain.EaseHard, domain.CardTypeReview},
		{domain.EaseEasy, domain.CardTypeReview},
	}
	for _, step := range steps {
		require.NoError(t, s.AnswerCard(ctx, card.ID, step.ease, 3.0, 1.5))
		got := ms.cards[card.ID]
		assert.Equal(t, step.want, got.Type, "after %s", step.ease)
		assert.Equal(t, got.ComputedType(), got.Type, "after %s", step.ease)
	}

	assert.Equal(t, 4, s.deck.RepsToday)
	assert.Equal(t, 1, s.deck.NewCountToday)
}

func TestAnswerUndoRedoRestoresCard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ms := newMemStores()

	card := reviewCard(testClock-2*secsPerDay, 7, 3)
	ms.cards[card.ID] = *card
	before := ms.cards[card.ID]

	s := newTestScheduler(t, ms, testClock)
	require.NoError(t, s.AnswerCard(ctx, card.ID, domain.EaseEasy, 5.0, 3.0))
	after := ms.cards[card.ID]
	require.NotEqual(t, before, after)
	require.Len(t, ms.revlog, 1)

	// Undo restores the exact pre-answer card row and unwinds the
	// history entry and the deck counter.
	undone, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, card.ID, undone)
	assert.Equal(t, before, ms.cards[card.ID])
	assert.Empty(t, ms.revlog)
	assert.Equal(t, 0, s.deck.RepsToday)

	// Redo reproduces the post-answer row exactly.
	redone, err := s.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, card.ID, redone)
	assert.Equal(t, after, ms.cards[card.ID])
	assert.Len(t, ms.revlog, 1)
	assert.Equal(t, 1, s.deck.RepsToday)
}

func TestDayRolloverResetsCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestScheduler(t, newMemStores(), testClock)
	s.deck.NewCountToday = 5
	s.deck.RepsToday = 9

	// Force the cutoff into the past so the next answer-time check rolls
	// the day over.
	s.dueCutoff = testClock - 1
	s.checkDay(ctx, testClock)

	assert.Equal(t, 0, s.deck.NewCountToday)
	assert.Equal(t, 0, s.deck.RepsToday)
	assert.Equal(t, s.dueCutoff, s.deck.DayCutoff)
	assert.Greater(t, s.dueCutoff, testClock)
}

func TestRunExclusiveBlocksSchedulerOperations(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, newMemStores(), testClock)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.RunExclusive(func(Locked) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	go func() {
		s.ResetQueues()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("scheduler operation ran while the exclusive section held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler operation never ran after the exclusive section released")
	}
}
