package sched

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
)

// ReviewEarly switches to reviewing cards before they are due, oldest
// scheduled first. The mode ends automatically when no early cards
// remain, or explicitly via FinishMode.
func (s *Scheduler) ReviewEarly(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStrategy(&reviewEarlyStrategy{s: s})
}

// LearnMore switches to introducing new cards beyond the daily cap.
func (s *Scheduler) LearnMore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStrategy(&learnMoreStrategy{s: s})
}

// Cram switches to a drill over the matching cards, shortest interval
// first (or shuffled when random is set). Answers are recorded in the
// stats and review history but never reschedule the cards. An empty tag
// list crams the whole collection.
func (s *Scheduler) Cram(ctx context.Context, tags []string, random bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := store.OrderByInterval
	if random {
		order = store.OrderRandom
	}
	s.setStrategy(&cramStrategy{s: s, tags: tags, order: order})
}

// FinishMode returns to standard scheduling.
func (s *Scheduler) FinishMode(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStrategy(&standardStrategy{s: s})
}

func (s *Scheduler) setStrategy(st strategy) {
	s.strategy = st
	s.mode = st.mode()
	s.resetQueues()
	s.logger.Info("scheduling mode changed", slog.String("mode", s.mode.String()))
}

// reviewEarlyStrategy serves review cards whose due date has not yet
// arrived, closest first.
type reviewEarlyStrategy struct {
	s *Scheduler
}

var _ strategy = (*reviewEarlyStrategy)(nil)

func (st *reviewEarlyStrategy) mode() Mode { return ModeReviewEarly }

func (st *reviewEarlyStrategy) cardLimit(q store.QueueQuery) store.QueueQuery {
	q.MinPriority = domain.PriorityLow
	return q
}

func (st *reviewEarlyStrategy) fillQueues(ctx context.Context) error {
	s := st.s

	review, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		Type:     domain.CardTypeReview,
		DueAfter: s.dueCutoff,
		Order:    store.OrderByDue,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill early review queue: %w", err)
	}

	s.failedQueue = newQueue(nil)
	s.revQueue = newQueue(review)
	s.newQueue = newQueue(nil)
	return nil
}

func (st *reviewEarlyStrategy) rebuildCounts(ctx context.Context) error {
	s := st.s
	s.revCount = s.revQueue.len()
	s.newCount = 0
	s.newCountToday = 0
	s.failedSoonCount = 0
	s.newCardModulus = 0
	return nil
}

func (st *reviewEarlyStrategy) selectNextCardID(ctx context.Context, check bool) uuid.UUID {
	s := st.s
	if it, ok := s.revHead(s.now()); ok {
		return it.CardID
	}
	if check {
		s.refreshCutoffs(s.now())
		s.rebuild(ctx)
		return st.selectNextCardID(ctx, false)
	}
	return uuid.Nil
}

func (st *reviewEarlyStrategy) rescheduleOnAnswer() bool { return true }

func (st *reviewEarlyStrategy) requeueAfterAnswer(card *domain.Card, oldState string, ease domain.Ease) {
	s := st.s
	s.revQueue.remove(card.ID)
	if s.revCount > 0 {
		s.revCount--
	}
}

func (st *reviewEarlyStrategy) spaceSiblings(ctx context.Context, card *domain.Card, now float64) error {
	st.s.spaced.spaceFact(card.FactID, now+siblingSpacingSecs)
	return nil
}

func (st *reviewEarlyStrategy) finish(ctx context.Context) bool {
	if !st.s.revQueue.empty() {
		return false
	}
	st.s.setStrategy(&standardStrategy{s: st.s})
	return true
}

// learnMoreStrategy serves new cards only, ignoring the daily cap.
type learnMoreStrategy struct {
	s *Scheduler
}

var _ strategy = (*learnMoreStrategy)(nil)

func (st *learnMoreStrategy) mode() Mode { return ModeLearnMore }

func (st *learnMoreStrategy) cardLimit(q store.QueueQuery) store.QueueQuery {
	q.MinPriority = domain.PriorityLow
	return q
}

func (st *learnMoreStrategy) fillQueues(ctx context.Context) error {
	s := st.s

	newOrder := store.OrderByCreated
	if s.deck.NewCardOrder == domain.NewCardsRandom {
		newOrder = store.OrderRandom
	}
	newItems, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		Type:  domain.CardTypeNew,
		Order: newOrder,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill new queue: %w", err)
	}

	s.failedQueue = newQueue(nil)
	s.revQueue = newQueue(nil)
	s.newQueue = newQueue(newItems)
	return nil
}

func (st *learnMoreStrategy) rebuildCounts(ctx context.Context) error {
	s := st.s
	s.newCount = s.newQueue.len()
	s.newCountToday = s.newCount
	s.revCount = 0
	s.failedSoonCount = 0
	s.newCardModulus = 0
	return nil
}

func (st *learnMoreStrategy) selectNextCardID(ctx context.Context, check bool) uuid.UUID {
	s := st.s
	if it, ok := s.newHead(s.now()); ok {
		return it.CardID
	}
	if check {
		s.refreshCutoffs(s.now())
		s.rebuild(ctx)
		return st.selectNextCardID(ctx, false)
	}
	return uuid.Nil
}

func (st *learnMoreStrategy) rescheduleOnAnswer() bool { return true }

func (st *learnMoreStrategy) requeueAfterAnswer(card *domain.Card, oldState string, ease domain.Ease) {
	s := st.s
	s.newQueue.remove(card.ID)
	s.failedQueue.remove(card.ID)
	if oldState == "new" {
		if s.newCount > 0 {
			s.newCount--
		}
		if s.newCountToday > 0 {
			s.newCountToday--
		}
	}
	if card.Type == domain.CardTypeFailed && card.Priority != domain.PrioritySuspended {
		s.failedQueue.pushBack(store.QueueItem{
			CardID:   card.ID,
			FactID:   card.FactID,
			Due:      card.Due,
			Priority: card.Priority,
		})
	}
}

func (st *learnMoreStrategy) spaceSiblings(ctx context.Context, card *domain.Card, now float64) error {
	s := st.s
	s.spaced.spaceFact(card.FactID, now+siblingSpacingSecs)

	var group []store.QueueItem
	kept := s.newQueue.items[:0]
	for _, it := range s.newQueue.items {
		if it.FactID == card.FactID {
			group = append(group, it)
		} else {
			kept = append(kept, it)
		}
	}
	s.newQueue.items = kept
	s.spaced.addGroup(now+siblingSpacingSecs, group)
	return nil
}

func (st *learnMoreStrategy) finish(ctx context.Context) bool {
	if !st.s.newQueue.empty() {
		return false
	}
	st.s.setStrategy(&standardStrategy{s: st.s})
	return true
}

// cramStrategy drills a tag-filtered slice of the collection without
// touching the permanent schedule. Failed cards cycle back through the
// failed queue after the usual failure delay.
type cramStrategy struct {
	s     *Scheduler
	tags  []string
	order store.QueueOrder
}

var _ strategy = (*cramStrategy)(nil)

func (st *cramStrategy) mode() Mode { return ModeCram }

func (st *cramStrategy) cardLimit(q store.QueueQuery) store.QueueQuery {
	q.MinPriority = domain.PriorityLow
	q.Tags = st.tags
	return q
}

func (st *cramStrategy) fillQueues(ctx context.Context) error {
	s := st.s

	items, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		AllTypes: true,
		Order:    st.order,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill cram queue: %w", err)
	}

	s.failedQueue = newQueue(nil)
	s.revQueue = newQueue(items)
	s.newQueue = newQueue(nil)
	return nil
}

func (st *cramStrategy) rebuildCounts(ctx context.Context) error {
	s := st.s
	s.revCount = s.revQueue.len()
	s.newCount = 0
	s.newCountToday = 0
	s.failedSoonCount = 0
	s.newCardModulus = 0
	return nil
}

func (st *cramStrategy) selectNextCardID(ctx context.Context, check bool) uuid.UUID {
	s := st.s
	now := s.now()
	d := s.deck

	if it, ok := s.failedQueue.peekDue(); ok && d.Delay0 != 0 && it.Due+d.Delay0 <= now {
		return it.CardID
	}
	if it, ok := s.revHead(now); ok {
		return it.CardID
	}
	if check {
		s.refreshCutoffs(now)
		s.rebuild(ctx)
		return st.selectNextCardID(ctx, false)
	}
	// Nothing left but waiting failed cards; show them early.
	if it, ok := s.failedQueue.peekDue(); ok {
		return it.CardID
	}
	return uuid.Nil
}

func (st *cramStrategy) rescheduleOnAnswer() bool { return false }

func (st *cramStrategy) requeueAfterAnswer(card *domain.Card, oldState string, ease domain.Ease) {
	s := st.s

	s.failedQueue.remove(card.ID)
	inRev := false
	for _, it := range s.revQueue.items {
		if it.CardID == card.ID {
			inRev = true
			break
		}
	}
	s.revQueue.remove(card.ID)
	if inRev && s.revCount > 0 {
		s.revCount--
	}

	if ease == domain.EaseFailed {
		s.failedQueue.pushBack(store.QueueItem{
			CardID:   card.ID,
			FactID:   card.FactID,
			Due:      s.now(),
			Priority: card.Priority,
		})
	}
}

func (st *cramStrategy) spaceSiblings(ctx context.Context, card *domain.Card, now float64) error {
	st.s.spaced.spaceFact(card.FactID, now+siblingSpacingSecs)
	return nil
}

func (st *cramStrategy) finish(ctx context.Context) bool {
	if !st.s.revQueue.empty() || !st.s.failedQueue.empty() {
		return false
	}
	st.s.setStrategy(&standardStrategy{s: st.s})
	return true
}
