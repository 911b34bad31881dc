package sched

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
)

// AddFact persists a fact and generates one card per active template of
// its model. Card priorities are derived from the fact's tags. The
// operation is undoable as a unit.
func (s *Scheduler) AddFact(ctx context.Context, fact *domain.Fact) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fact.Validate(); err != nil {
		return nil, err
	}

	model, err := s.st.Models.GetByID(ctx, fact.ModelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	active := model.ActiveCardModels()
	if len(active) == 0 {
		return nil, ErrNoActiveTemplates
	}

	now := s.now()
	priority := s.deck.PriorityRules().CardPriority(fact.TagList())
	rec := s.undoLog.begin("Add Fact", uuid.Nil)
	var created []*domain.Card

	err = store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		facts := s.st.Facts.WithTxFactStore(tx)
		cards := s.st.Cards.WithTxCardStore(tx)
		decks := s.st.Deck.WithTxDeckStore(tx)
		rows := s.st.Rows.WithTxRowStore(tx)

		if err := rec.capture(ctx, rows, "facts", fact.ID); err != nil {
			return err
		}
		for _, f := range fact.Fields {
			if err := rec.capture(ctx, rows, "fields", f.ID); err != nil {
				return err
			}
		}
		fact.Modified = now
		if err := facts.Create(ctx, fact); err != nil {
			return fmt.Errorf("failed to create fact: %w", err)
		}

		created = created[:0]
		for _, cm := range active {
			card, err := domain.NewCard(fact.ID, cm.Ordinal)
			if err != nil {
				return err
			}
			card.Priority = priority
			card.Due = now
			card.CombinedDue = now
			card.Created = now
			card.Modified = now
			if err := rec.capture(ctx, rows, "cards", card.ID); err != nil {
				return err
			}
			created = append(created, card)
		}
		if err := cards.Create(ctx, created...); err != nil {
			return fmt.Errorf("failed to create cards: %w", err)
		}

		if err := rec.capture(ctx, rows, "deck", s.deck.ID); err != nil {
			return err
		}
		s.deck.FactCount++
		s.deck.CardCount += len(created)
		s.deck.SetModified(now)
		if err := decks.Save(ctx, s.deck); err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.undoLog.commit(rec)
	s.resetQueues()
	return created, nil
}

// DeleteCards removes cards and records tombstones so the deletions
// propagate on the next sync. Deletions are permanent: the undo history
// is cleared.
func (s *Scheduler) DeleteCards(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	now := s.now()
	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		tombstones := s.st.Tombstones.WithTxTombstoneStore(tx)
		decks := s.st.Deck.WithTxDeckStore(tx)

		if err := cards.Delete(ctx, ids...); err != nil {
			return fmt.Errorf("failed to delete cards: %w", err)
		}
		if err := tombstones.Add(ctx, domain.KindCard, now, ids...); err != nil {
			return fmt.Errorf("failed to record card tombstones: %w", err)
		}

		s.deck.CardCount -= len(ids)
		if s.deck.CardCount < 0 {
			s.deck.CardCount = 0
		}
		s.deck.SetModified(now)
		if err := decks.Save(ctx, s.deck); err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(s.fuzz, id)
	}
	s.undoLog.reset()
	s.resetQueues()
	return nil
}

// DeleteFacts removes facts together with all their cards, recording
// tombstones for both. Clears the undo history.
func (s *Scheduler) DeleteFacts(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	now := s.now()
	var cardIDs []uuid.UUID
	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		facts := s.st.Facts.WithTxFactStore(tx)
		tombstones := s.st.Tombstones.WithTxTombstoneStore(tx)
		decks := s.st.Deck.WithTxDeckStore(tx)

		cardIDs = cardIDs[:0]
		for _, factID := range ids {
			siblings, err := cards.SiblingIDs(ctx, factID)
			if err != nil {
				return fmt.Errorf("failed to list fact cards: %w", err)
			}
			cardIDs = append(cardIDs, siblings...)
		}

		if len(cardIDs) > 0 {
			if err := cards.Delete(ctx, cardIDs...); err != nil {
				return fmt.Errorf("failed to delete cards: %w", err)
			}
			if err := tombstones.Add(ctx, domain.KindCard, now, cardIDs...); err != nil {
				return fmt.Errorf("failed to record card tombstones: %w", err)
			}
		}
		if err := facts.Delete(ctx, ids...); err != nil {
			return fmt.Errorf("failed to delete facts: %w", err)
		}
		if err := tombstones.Add(ctx, domain.KindFact, now, ids...); err != nil {
			return fmt.Errorf("failed to record fact tombstones: %w", err)
		}

		s.deck.FactCount -= len(ids)
		if s.deck.FactCount < 0 {
			s.deck.FactCount = 0
		}
		s.deck.CardCount -= len(cardIDs)
		if s.deck.CardCount < 0 {
			s.deck.CardCount = 0
		}
		s.deck.SetModified(now)
		if err := decks.Save(ctx, s.deck); err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range cardIDs {
		delete(s.fuzz, id)
	}
	s.undoLog.reset()
	s.resetQueues()
	return nil
}

// SuspendCards removes cards from all queues until unsuspended. Undoable.
func (s *Scheduler) SuspendCards(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspendLocked(ctx, "Suspend Card", ids...)
}

func (s *Scheduler) suspendLocked(ctx context.Context, name string, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	now := s.now()
	rec := s.undoLog.begin(name, ids[0])
	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		rows := s.st.Rows.WithTxRowStore(tx)

		for _, id := range ids {
			if err := rec.capture(ctx, rows, "cards", id); err != nil {
				return err
			}
		}
		if err := cards.SetPriority(ctx, domain.PrioritySuspended, now, ids...); err != nil {
			return fmt.Errorf("failed to suspend cards: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.undoLog.commit(rec)
	s.resetQueues()
	return nil
}

// UnsuspendCards restores suspended cards, recomputing each card's
// priority from its fact's tags. Undoable.
func (s *Scheduler) UnsuspendCards(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	now := s.now()
	rules := s.deck.PriorityRules()
	rec := s.undoLog.begin("Unsuspend Card", ids[0])
	err := store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		tags := s.st.Tags.WithTxTagStore(tx)
		rows := s.st.Rows.WithTxRowStore(tx)

		cardTags, err := tags.CardTagsFor(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load card tags: %w", err)
		}

		byPriority := make(map[int][]uuid.UUID)
		for _, id := range ids {
			if err := rec.capture(ctx, rows, "cards", id); err != nil {
				return err
			}
			p := rules.CardPriority(cardTags[id])
			byPriority[p] = append(byPriority[p], id)
		}
		for p, group := range byPriority {
			if err := cards.SetPriority(ctx, p, now, group...); err != nil {
				return fmt.Errorf("failed to unsuspend cards: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.undoLog.commit(rec)
	s.resetQueues()
	return nil
}

// SetPriorityTags replaces the deck's tag priority rules and recomputes
// every card's priority under the new rules.
func (s *Scheduler) SetPriorityTags(ctx context.Context, low, med, high string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deck.SetPriorityTags(low, med, high, s.now())
	if err := s.st.Deck.Save(ctx, s.deck); err != nil {
		return fmt.Errorf("failed to save deck: %w", err)
	}
	return s.updatePriorities(ctx, nil)
}

// UpdateAllPriorities recomputes every card's priority from the deck's
// tag rules. Suspended cards keep their suspension.
func (s *Scheduler) UpdateAllPriorities(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePriorities(ctx, nil)
}

// UpdatePrioritiesFor recomputes priorities for the given cards only,
// for use after tag edits or an applied sync payload.
func (s *Scheduler) UpdatePrioritiesFor(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	return s.updatePriorities(ctx, ids)
}

// updatePriorities writes tag-derived priorities for the given cards
// (all cards when ids is nil), skipping suspended cards and cards whose
// priority already matches. Derived state; not undoable.
func (s *Scheduler) updatePriorities(ctx context.Context, ids []uuid.UUID) error {
	rules := s.deck.PriorityRules()
	now := s.now()

	var (
		cardTags map[uuid.UUID][]string
		err      error
	)
	if ids == nil {
		cardTags, err = s.st.Tags.CardTags(ctx)
	} else {
		cardTags, err = s.st.Tags.CardTagsFor(ctx, ids)
	}
	if err != nil {
		return fmt.Errorf("failed to load card tags: %w", err)
	}

	current, err := s.st.Cards.Priorities(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load card priorities: %w", err)
	}

	byPriority := make(map[int][]uuid.UUID)
	for id, have := range current {
		if have == domain.PrioritySuspended {
			continue
		}
		want := rules.CardPriority(cardTags[id])
		if want == have {
			continue
		}
		byPriority[want] = append(byPriority[want], id)
	}
	if len(byPriority) == 0 {
		return nil
	}

	err = store.RunInTransaction(ctx, s.st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.st.Cards.WithTxCardStore(tx)
		for p, group := range byPriority {
			if err := cards.SetPriority(ctx, p, now, group...); err != nil {
				return fmt.Errorf("failed to set priority %d: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.resetQueues()
	return nil
}
