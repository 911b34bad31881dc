package sched

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
)

// siblingSpacingSecs is how long a fact's remaining cards are held back
// after one of them is answered.
const siblingSpacingSecs = 600.0

// Mode identifies the active scheduling strategy.
type Mode int

const (
	ModeStandard Mode = iota
	ModeReviewEarly
	ModeLearnMore
	ModeCram
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeReviewEarly:
		return "review-early"
	case ModeLearnMore:
		return "learn-more"
	case ModeCram:
		return "cram"
	default:
		return "unknown"
	}
}

// Stores bundles the persistence interfaces the scheduler consumes. DB
// is the connection transactions are opened on; the per-entity stores
// must be backed by the same database.
type Stores struct {
	DB         *sql.DB
	Cards      store.CardStore
	Facts      store.FactStore
	Models     store.ModelStore
	Stats      store.StatsStore
	Revlog     store.RevlogStore
	Tombstones store.TombstoneStore
	Deck       store.DeckStore
	Tags       store.TagStore
	Rows       store.RowStore
}

// Scheduler selects the next card to review, applies answers, maintains
// priorities and leeches, and exposes the undo/redo log. All public
// methods serialize behind one lock: a single logical operation per
// store at a time.
type Scheduler struct {
	mu     sync.Mutex
	st     Stores
	logger *slog.Logger

	deck *domain.Deck

	failedQueue *queue
	revQueue    *queue
	newQueue    *queue
	spaced      *spacedTable

	revCount        int
	newCount        int
	newCountToday   int
	failedSoonCount int
	newCardModulus  int

	dueCutoff    float64
	failedCutoff float64

	mode     Mode
	strategy strategy

	undoLog undoLog

	fuzz map[uuid.UUID]float64
	rng  *rand.Rand

	// now is the clock; injectable for tests.
	now func() float64

	queuesBuilt bool
}

// New creates a scheduler over the given stores, loading the deck row or
// creating it with the configured defaults on first use.
func New(ctx context.Context, st Stores, defaults *domain.Deck, logger *slog.Logger) (*Scheduler, error) {
	if st.DB == nil {
		panic("st.DB cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		st:          st,
		logger:      logger.With(slog.String("component", "scheduler")),
		failedQueue: newQueue(nil),
		revQueue:    newQueue(nil),
		newQueue:    newQueue(nil),
		spaced:      newSpacedTable(),
		fuzz:        make(map[uuid.UUID]float64),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}

	deck, err := st.Deck.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if defaults == nil {
			defaults = domain.NewDeck()
		}
		deck = defaults
		if err := st.Deck.Save(ctx, deck); err != nil {
			return nil, fmt.Errorf("failed to create deck: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	s.deck = deck

	s.mode = ModeStandard
	s.strategy = &standardStrategy{s: s}
	s.refreshCutoffs(s.now())

	// The persisted daily counters go stale if the day rolled while the
	// store was closed.
	if deck.DayCutoff != s.dueCutoff {
		deck.NewCountToday = 0
		deck.RepsToday = 0
		deck.DayCutoff = s.dueCutoff
	}
	return s, nil
}

// Deck returns the deck configuration row. Callers mutate it only
// through its setters and persist via SaveDeck.
func (s *Scheduler) Deck() *domain.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck
}

// SaveDeck persists the deck row and resets queues so changed parameters
// take effect.
func (s *Scheduler) SaveDeck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.st.Deck.Save(ctx, s.deck); err != nil {
		return fmt.Errorf("failed to save deck: %w", err)
	}
	s.resetQueues()
	return nil
}

// Mode returns the active scheduling mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// GetCard returns the next card to review, or nil when nothing is due.
// Store failures are logged and reported as "no card": selection is
// total and never blocks review.
func (s *Scheduler) GetCard(ctx context.Context) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureQueues(ctx)
	id := s.strategy.selectNextCardID(ctx, true)
	if id == uuid.Nil && s.strategy.finish(ctx) {
		s.ensureQueues(ctx)
		id = s.strategy.selectNextCardID(ctx, true)
	}
	if id == uuid.Nil {
		return nil, nil
	}

	card, err := s.st.Cards.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load selected card",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return card, nil
}

// Counts returns the failed/review/new counts for the current queues.
func (s *Scheduler) Counts(ctx context.Context) (failed, review, new int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureQueues(ctx)
	return s.failedQueue.len(), s.revCount, s.newCountToday
}

// AnswerCard grades a review: it recomputes interval, factor and due
// date, updates the aggregate stats and review history, writes an undo
// entry, re-queues the card and runs leech detection. The whole
// operation is one store transaction.
func (s *Scheduler) AnswerCard(ctx context.Context, cardID uuid.UUID, ease domain.Ease, timeTaken, thinkingTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ease.Valid() {
		return ErrInvalidEase
	}

	now := s.now()
	s.checkDay(ctx, now)

	rec := s.undoLog.begin("Answer Card", cardID)
	var (
		answered *domain.Card
		oldState string
		leech    bool
	)

	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		facts := s.st.Facts.WithTxFactStore(tx)
		stats := s.st.Stats.WithTxStatsStore(tx)
		revlog := s.st.Revlog.WithTxRevlogStore(tx)
		decks := s.st.Deck.WithTxDeckStore(tx)
		rows := s.st.Rows.WithTxRowStore(tx)

		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}
		if err := rec.capture(ctx, rows, "cards", card.ID); err != nil {
			return err
		}

		oldState = card.State()
		wasMature := oldState == "mature"

		if s.strategy.rescheduleOnAnswer() {
			delay := adjustedDelay(card, now, s.failedCutoff)
			fuzz := s.fuzzFor(card.ID)

			// nextInterval reads LastInterval for the early-review
			// credit, so it runs before the clocks roll over.
			next := nextInterval(s.deck, card, delay, ease, fuzz)
			card.LastInterval = card.Interval
			card.LastDue = card.Due
			card.Interval = next
			card.UpdateFactor(factorAdjustment(ease))
			card.Due = nextDue(s.deck, card.Interval, ease, oldState, now, s.failedCutoff)
			card.CombinedDue = card.Due
			if card.SpaceUntil > card.Due {
				card.CombinedDue = card.SpaceUntil
			}
			card.RecordEase(wasMature, ease)
			card.UpdateType()
			card.Touch(now)

			// Leech tagging happens here; auto-suspension is its own
			// undo transaction after this one commits.
			if ease == domain.EaseFailed && isLeech(card, s.deck.LeechThreshold) {
				leech = true
				card.IsLeech = true
				fact, err := facts.GetByID(ctx, card.FactID)
				if err != nil {
					return fmt.Errorf("failed to get fact for leech tag: %w", err)
				}
				if err := rec.capture(ctx, rows, "facts", fact.ID); err != nil {
					return err
				}
				fact.AddTag("Leech", now)
				if err := facts.Update(ctx, fact); err != nil {
					return fmt.Errorf("failed to tag leech fact: %w", err)
				}
			}

			if err := cards.Update(ctx, card); err != nil {
				return fmt.Errorf("failed to update card: %w", err)
			}
		}

		// Aggregate stats: lifetime row plus today's row, created lazily.
		life, err := stats.Life(ctx)
		if err != nil {
			return fmt.Errorf("failed to load lifetime stats: %w", err)
		}
		day, err := stats.Day(ctx, dayOf(now))
		if err != nil {
			return fmt.Errorf("failed to load daily stats: %w", err)
		}
		if err := rec.capture(ctx, rows, "stats", life.ID); err != nil {
			return err
		}
		if err := rec.capture(ctx, rows, "stats", day.ID); err != nil {
			return err
		}
		life.RecordAnswer(oldState, ease, timeTaken)
		day.RecordAnswer(oldState, ease, timeTaken)
		if err := stats.Update(ctx, life); err != nil {
			return fmt.Errorf("failed to update lifetime stats: %w", err)
		}
		if err := stats.Update(ctx, day); err != nil {
			return fmt.Errorf("failed to update daily stats: %w", err)
		}

		entry := &domain.ReviewEntry{
			ID:           uuid.New(),
			CardID:       card.ID,
			Time:         now,
			LastInterval: card.LastInterval,
			NextInterval: card.Interval,
			Ease:         ease,
			Factor:       card.Factor,
			TimeTaken:    timeTaken,
			ThinkingTime: thinkingTime,
		}
		if err := rec.capture(ctx, rows, "revlog", entry.ID); err != nil {
			return err
		}
		if err := revlog.Add(ctx, entry); err != nil {
			return fmt.Errorf("failed to record review: %w", err)
		}

		// Deck counters and modification clock.
		if err := rec.capture(ctx, rows, "deck", s.deck.ID); err != nil {
			return err
		}
		if oldState == "new" {
			s.deck.NewCountToday++
		}
		s.deck.RepsToday++
		s.deck.SetModified(now)
		if err := decks.Save(ctx, s.deck); err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}

		answered = card
		return nil
	})
	if err != nil {
		return err
	}

	s.undoLog.commit(rec)
	delete(s.fuzz, cardID)

	s.strategy.requeueAfterAnswer(answered, oldState, ease)
	if err := s.strategy.spaceSiblings(ctx, answered, now); err != nil {
		s.logger.Error("failed to space siblings",
			slog.String("card_id", cardID.String()),
			slog.String("error", err.Error()))
	}

	if leech && s.deck.LeechAutoSuspend {
		if err := s.suspendLocked(ctx, "Suspend Leech", answered.ID); err != nil {
			return fmt.Errorf("failed to auto-suspend leech: %w", err)
		}
	}

	s.logger.Debug("answered card",
		slog.String("card_id", cardID.String()),
		slog.String("ease", ease.String()),
		slog.Float64("interval", answered.Interval),
		slog.Float64("factor", answered.Factor))
	return nil
}

// Undo reverses the newest undoable operation and returns the card id
// that was active before it. Callers must re-fetch the current card:
// queues are reset.
func (s *Scheduler) Undo(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay(ctx, s.undoLog.undo)
}

// Redo re-applies the newest undone operation.
func (s *Scheduler) Redo(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay(ctx, s.undoLog.redo)
}

// CanUndo reports whether an operation is available to undo, and its name.
func (s *Scheduler) CanUndo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undoLog.undoName()
}

func (s *Scheduler) replay(ctx context.Context, shiftFn func(context.Context, store.RowStore) (uuid.UUID, error)) (uuid.UUID, error) {
	var cardID uuid.UUID
	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		cardID, err = shiftFn(ctx, s.st.Rows.WithTxRowStore(tx))
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}

	// Replayed rows may include the deck; reload it so in-memory state
	// matches the store.
	if deck, err := s.st.Deck.Get(ctx); err == nil {
		s.deck = deck
	} else {
		s.logger.Error("failed to reload deck after replay", slog.String("error", err.Error()))
	}
	s.resetQueues()
	return cardID, nil
}

// fuzzFor returns the card's cached fuzz value, generating it on first
// use. The value stays stable until the answer commits.
func (s *Scheduler) fuzzFor(cardID uuid.UUID) float64 {
	if f, ok := s.fuzz[cardID]; ok {
		return f
	}
	f := s.rng.Float64()
	s.fuzz[cardID] = f
	return f
}

// refreshCutoffs recomputes the day boundary cutoffs from the clock.
func (s *Scheduler) refreshCutoffs(now float64) {
	s.dueCutoff = dayCutoff(now)
	s.failedCutoff = s.dueCutoff
}

// checkDay rolls the daily counters when the clock passes the cutoff.
// The new cutoff is persisted with the deck row on the next save.
func (s *Scheduler) checkDay(ctx context.Context, now float64) {
	if now < s.dueCutoff {
		return
	}
	s.refreshCutoffs(now)
	s.deck.NewCountToday = 0
	s.deck.RepsToday = 0
	s.deck.DayCutoff = s.dueCutoff
	s.resetQueues()
}

// ensureQueues builds the queues if they have not been built since the
// last reset.
func (s *Scheduler) ensureQueues(ctx context.Context) {
	if s.queuesBuilt {
		return
	}
	s.rebuild(ctx)
}

// rebuild refills the queues and counts through the active strategy.
// Store errors are logged and leave the queues empty.
func (s *Scheduler) rebuild(ctx context.Context) {
	if err := s.strategy.fillQueues(ctx); err != nil {
		s.logger.Error("failed to fill queues", slog.String("error", err.Error()))
		s.failedQueue = newQueue(nil)
		s.revQueue = newQueue(nil)
		s.newQueue = newQueue(nil)
	}
	if err := s.strategy.rebuildCounts(ctx); err != nil {
		s.logger.Error("failed to rebuild counts", slog.String("error", err.Error()))
		s.revCount, s.newCount, s.newCountToday, s.failedSoonCount = 0, 0, 0, 0
	}
	s.queuesBuilt = true
}

// resetQueues discards queue state; the next selection rebuilds.
func (s *Scheduler) resetQueues() {
	s.queuesBuilt = false
	s.spaced.reset()
}

// ResetQueues discards queue state so the next GetCard rebuilds from the
// store. Sync calls this after applying a payload.
func (s *Scheduler) ResetQueues() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetQueues()
}

// Locked is the restricted scheduler view RunExclusive hands to its
// callback while the operation lock is held.
type Locked struct {
	s *Scheduler
}

// Deck returns the deck row.
func (l Locked) Deck() *domain.Deck { return l.s.deck }

// UpdatePrioritiesFor recomputes tag-derived priorities for the given
// cards.
func (l Locked) UpdatePrioritiesFor(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return l.s.updatePriorities(ctx, ids)
}

// ResetQueues discards queue state so the next selection rebuilds.
func (l Locked) ResetQueues() { l.s.resetQueues() }

// RunExclusive holds the operation lock for the duration of fn. Work
// that spans several store calls, such as a sync round, runs here so
// reviews against the same store block until it finishes instead of
// interleaving with it.
func (s *Scheduler) RunExclusive(fn func(Locked) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(Locked{s: s})
}

// revHead returns the review queue head, skipping spaced facts.
func (s *Scheduler) revHead(now float64) (store.QueueItem, bool) {
	for {
		it, ok := s.revQueue.peekDue()
		if !ok {
			return store.QueueItem{}, false
		}
		if !s.spaced.isSpaced(it.FactID, now) {
			return it, true
		}
		s.revQueue.popDue()
		if s.revCount > 0 {
			s.revCount--
		}
	}
}

// newHead returns the new queue head, merging released sibling groups
// back in and skipping spaced facts.
func (s *Scheduler) newHead(now float64) (store.QueueItem, bool) {
	for _, it := range s.spaced.releasable(now) {
		s.newQueue.pushBack(it)
	}
	for {
		it, ok := s.newQueue.peekDue()
		if !ok {
			return store.QueueItem{}, false
		}
		if !s.spaced.isSpaced(it.FactID, now) {
			return it, true
		}
		s.newQueue.popDue()
	}
}

// timeForNewCard implements the new-card distribution policy.
func (s *Scheduler) timeForNewCard() bool {
	if s.newCountToday <= 0 {
		return false
	}
	switch s.deck.NewCardSpacing {
	case domain.NewCardsLast:
		return false
	case domain.NewCardsFirst:
		return true
	}
	// Force a review when very high priority cards are waiting.
	if it, ok := s.revQueue.peekDue(); ok && it.Priority == domain.PriorityMax {
		return false
	}
	if s.newCardModulus != 0 {
		return s.deck.RepsToday%s.newCardModulus == 0
	}
	return false
}

// updateNewCardModulus derives the interleave ratio of new cards to
// reviews for the distribute policy.
func (s *Scheduler) updateNewCardModulus() {
	s.newCardModulus = 0
	if s.newCountToday == 0 {
		return
	}
	s.newCardModulus = (s.newCountToday + s.revCount) / s.newCountToday
	if s.revCount > 0 && s.newCardModulus < 2 {
		s.newCardModulus = 2
	}
}

// dayCutoff returns the next 4am boundary after now, in epoch seconds.
func dayCutoff(now float64) float64 {
	t := time.Unix(int64(now), 0)
	cut := time.Date(t.Year(), t.Month(), t.Day(), 4, 0, 0, 0, t.Location())
	if !cut.After(t) {
		cut = cut.Add(24 * time.Hour)
	}
	return float64(cut.Unix())
}

// dayOf buckets a clock into its scheduling day, which rolls at 4am.
func dayOf(now float64) time.Time {
	t := time.Unix(int64(now), 0).Add(-4 * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
