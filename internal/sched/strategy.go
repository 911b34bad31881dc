package sched

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
)

// strategy supplies the operations a scheduling mode overrides. The
// reflection-free replacement for per-mode method swapping: the active
// mode is a value dispatched through ordinary virtual calls.
type strategy interface {
	mode() Mode

	// fillQueues loads the work queues from the store.
	fillQueues(ctx context.Context) error

	// rebuildCounts refreshes the counters selection consults.
	rebuildCounts(ctx context.Context) error

	// selectNextCardID runs the selection algorithm. check allows one
	// cutoff-refresh-and-rebuild retry. Returns uuid.Nil for "no card".
	selectNextCardID(ctx context.Context, check bool) uuid.UUID

	// cardLimit restricts a queue query to the mode's card subset.
	cardLimit(q store.QueueQuery) store.QueueQuery

	// rescheduleOnAnswer reports whether answers permanently reschedule
	// the card. Cram reviews leave scheduling untouched.
	rescheduleOnAnswer() bool

	// requeueAfterAnswer moves the answered card out of (or back into)
	// the queues and adjusts counts.
	requeueAfterAnswer(card *domain.Card, oldState string, ease domain.Ease)

	// spaceSiblings holds the answered card's siblings back.
	spaceSiblings(ctx context.Context, card *domain.Card, now float64) error

	// finish transitions back to standard mode when the mode's queue is
	// exhausted. It reports whether a transition happened; standard mode
	// has none.
	finish(ctx context.Context) bool
}

// standardStrategy is the initial mode: failed and due reviews plus the
// daily allotment of new cards.
type standardStrategy struct {
	s *Scheduler
}

var _ strategy = (*standardStrategy)(nil)

func (st *standardStrategy) mode() Mode { return ModeStandard }

func (st *standardStrategy) cardLimit(q store.QueueQuery) store.QueueQuery {
	// Standard mode reviews everything above suspension.
	q.MinPriority = domain.PriorityLow
	return q
}

func (st *standardStrategy) fillQueues(ctx context.Context) error {
	s := st.s

	failed, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		Type:      domain.CardTypeFailed,
		DueBefore: s.failedCutoff,
		Order:     store.OrderByDue,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill failed queue: %w", err)
	}

	review, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		Type:      domain.CardTypeReview,
		DueBefore: s.dueCutoff,
		Order:     store.OrderByPriorityDue,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill review queue: %w", err)
	}

	newOrder := store.OrderByCreated
	if s.deck.NewCardOrder == domain.NewCardsRandom {
		newOrder = store.OrderRandom
	}
	newItems, err := s.st.Cards.QueueItems(ctx, st.cardLimit(store.QueueQuery{
		Type:      domain.CardTypeNew,
		DueBefore: s.dueCutoff,
		Order:     newOrder,
	}))
	if err != nil {
		return fmt.Errorf("failed to fill new queue: %w", err)
	}

	s.failedQueue = newQueue(failed)
	s.revQueue = newQueue(review)
	s.newQueue = newQueue(newItems)
	return nil
}

func (st *standardStrategy) rebuildCounts(ctx context.Context) error {
	s := st.s

	s.revCount = s.revQueue.len()
	s.newCount = s.newQueue.len()

	s.newCountToday = s.newCount
	if left := s.deck.NewCardsLeftToday(); s.newCountToday > left {
		s.newCountToday = left
	}

	soon, err := s.st.Cards.CountQueue(ctx, st.cardLimit(store.QueueQuery{
		Type:      domain.CardTypeFailed,
		DueBefore: s.now() + s.deck.Delay0,
	}))
	if err != nil {
		return fmt.Errorf("failed to count failed-soon cards: %w", err)
	}
	s.failedSoonCount = soon

	s.updateNewCardModulus()
	return nil
}

// selectNextCardID implements the standard selection order: overdue
// failed cards, the failed-cap override, distributed new cards, due
// reviews, remaining new cards, one rebuild retry, collapsed failed
// cards, then "no card".
func (st *standardStrategy) selectNextCardID(ctx context.Context, check bool) uuid.UUID {
	s := st.s
	now := s.now()
	d := s.deck

	// Failed card whose post-failure delay has passed.
	if it, ok := s.failedQueue.peekDue(); ok && d.Delay0 != 0 && it.Due+d.Delay0 <= now {
		return it.CardID
	}

	// Too many failed cards in play: show the oldest regardless of delay.
	if d.FailedCardMax != 0 && s.failedSoonCount >= d.FailedCardMax {
		if it, ok := s.failedQueue.peekDue(); ok {
			return it.CardID
		}
	}

	// Distribution timing says a new card is up.
	if s.timeForNewCard() {
		if it, ok := s.newHead(now); ok {
			return it.CardID
		}
	}

	// Due review.
	if it, ok := s.revHead(now); ok {
		return it.CardID
	}

	// New cards remaining for today.
	if s.newCountToday > 0 {
		if it, ok := s.newHead(now); ok {
			return it.CardID
		}
	}

	// Day may have rolled over; rebuild once and retry.
	if check {
		s.refreshCutoffs(now)
		s.rebuild(ctx)
		return st.selectNextCardID(ctx, false)
	}

	// Show waiting failed cards early rather than nothing.
	if d.CollapseTime != 0 || d.Delay0 == 0 {
		if it, ok := s.failedQueue.peekDue(); ok {
			return it.CardID
		}
	}

	return uuid.Nil
}

func (st *standardStrategy) rescheduleOnAnswer() bool { return true }

func (st *standardStrategy) requeueAfterAnswer(card *domain.Card, oldState string, ease domain.Ease) {
	s := st.s

	s.failedQueue.remove(card.ID)
	s.revQueue.remove(card.ID)
	s.newQueue.remove(card.ID)

	switch oldState {
	case "new":
		if s.newCountToday > 0 {
			s.newCountToday--
		}
		if s.newCount > 0 {
			s.newCount--
		}
	default:
		if s.revCount > 0 && card.Type != domain.CardTypeFailed {
			s.revCount--
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

func (st *standardStrategy) spaceSiblings(ctx context.Context, card *domain.Card, now float64) error {
	s := st.s
	s.spaced.spaceFact(card.FactID, now+siblingSpacingSecs)

	// New-card siblings beyond the one just shown leave the queue as a
	// group and come back together, so two cards of one fact never show
	// back to back.
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

func (st *standardStrategy) finish(ctx context.Context) bool { return false }
