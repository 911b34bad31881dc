package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// GenPayload converts a diff into the outgoing bundle: full rows for
// everything we edited, our tombstones, and the ids we want back. Rows
// the remote deleted are removed from the local store here; that
// deletion is final and does not produce new tombstones. When
// bundleDeck is set (our deck is the more recently modified one) the
// payload additionally carries deck configuration, stats and review
// history.
func GenPayload(ctx context.Context, st Stores, deck *domain.Deck, diffs Diffs, bundleDeck bool, lastSync float64) (*wire.Payload, error) {
	p := &wire.Payload{DeckModified: deck.Modified}

	cardDiff := diffs[domain.KindCard]
	factDiff := diffs[domain.KindFact]
	modelDiff := diffs[domain.KindModel]
	mediaDiff := diffs[domain.KindMedia]

	for _, id := range cardDiff.LocalEdited {
		card, err := st.Cards.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to bundle card: %w", err)
		}
		p.AddedCards = append(p.AddedCards, wire.Card(*card))
	}
	for _, id := range factDiff.LocalEdited {
		fact, err := st.Facts.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to bundle fact: %w", err)
		}
		p.AddedFacts = append(p.AddedFacts, wire.FromFact(fact))
	}
	for _, id := range modelDiff.LocalEdited {
		model, err := st.Models.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to bundle model: %w", err)
		}
		p.AddedModels = append(p.AddedModels, wire.FromModel(model))
	}

	p.MissingCards = cardDiff.RemoteEdited
	p.MissingFacts = factDiff.RemoteEdited
	p.MissingModels = modelDiff.RemoteEdited

	var err error
	if p.DeletedCards, err = tombstonesFor(ctx, st, domain.KindCard, cardDiff.LocalDeleted, lastSync); err != nil {
		return nil, err
	}
	if p.DeletedFacts, err = tombstonesFor(ctx, st, domain.KindFact, factDiff.LocalDeleted, lastSync); err != nil {
		return nil, err
	}
	if p.DeletedModels, err = tombstonesFor(ctx, st, domain.KindModel, modelDiff.LocalDeleted, lastSync); err != nil {
		return nil, err
	}
	if p.DeletedMedia, err = tombstonesFor(ctx, st, domain.KindMedia, mediaDiff.LocalDeleted, lastSync); err != nil {
		return nil, err
	}

	// Apply remote deletions locally before the round trip.
	if len(cardDiff.RemoteDeleted) > 0 {
		if err := st.Cards.Delete(ctx, cardDiff.RemoteDeleted...); err != nil {
			return nil, fmt.Errorf("failed to apply remote card deletions: %w", err)
		}
	}
	if len(factDiff.RemoteDeleted) > 0 {
		if err := st.Facts.Delete(ctx, factDiff.RemoteDeleted...); err != nil {
			return nil, fmt.Errorf("failed to apply remote fact deletions: %w", err)
		}
	}
	if len(modelDiff.RemoteDeleted) > 0 {
		if err := st.Models.Delete(ctx, modelDiff.RemoteDeleted...); err != nil {
			return nil, fmt.Errorf("failed to apply remote model deletions: %w", err)
		}
	}

	if bundleDeck {
		bundle, err := buildDeckBundle(ctx, st, deck, lastSync)
		if err != nil {
			return nil, err
		}
		p.Deck = bundle.Deck
		p.Stats = bundle.Stats
		p.History = bundle.History
	}
	return p, nil
}

type deckBundle struct {
	Deck    *wire.Deck
	Stats   []wire.Stats
	History []wire.History
}

// buildDeckBundle gathers deck configuration, the lifetime stats row,
// daily stats rows since lastSync−1day, and review history since
// lastSync.
func buildDeckBundle(ctx context.Context, st Stores, deck *domain.Deck, lastSync float64) (*deckBundle, error) {
	wd := wire.FromDeck(deck)
	b := &deckBundle{Deck: &wd}

	life, err := st.Stats.Life(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lifetime stats: %w", err)
	}
	b.Stats = append(b.Stats, wire.Stats(*life))

	days, err := st.Stats.DaysSince(ctx, statsDayFloor(lastSync))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}
	for _, d := range days {
		b.Stats = append(b.Stats, wire.Stats(*d))
	}

	history, err := st.Revlog.Since(ctx, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to load review history: %w", err)
	}
	for _, h := range history {
		b.History = append(b.History, wire.History(*h))
	}
	return b, nil
}

// ApplyPayloadReply folds the remote reply into the local store: upsert
// everything the remote returned, drop the tombstones those rows
// reconcile, apply the remote deletions, and apply the deck bundle when
// present. It returns the ids of newly applied cards so the caller can
// recompute their priorities. The orphan invariant is checked last.
func ApplyPayloadReply(ctx context.Context, st Stores, deck *domain.Deck, reply *wire.Payload) ([]uuid.UUID, error) {
	var addedCardIDs []uuid.UUID

	err := store.RunInTransaction(ctx, st.DB, func(ctx context.Context, tx *sql.Tx) error {
		cards := st.Cards.WithTxCardStore(tx)
		facts := st.Facts.WithTxFactStore(tx)
		models := st.Models.WithTxModelStore(tx)
		stats := st.Stats.WithTxStatsStore(tx)
		revlog := st.Revlog.WithTxRevlogStore(tx)
		tombstones := st.Tombstones.WithTxTombstoneStore(tx)
		decks := st.Deck.WithTxDeckStore(tx)

		for _, wm := range reply.AddedModels {
			model := wm.ToModel()
			if err := models.Update(ctx, model); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("failed to apply model: %w", err)
				}
				if err := models.Create(ctx, model); err != nil {
					return fmt.Errorf("failed to apply model: %w", err)
				}
			}
			if err := tombstones.Remove(ctx, domain.KindModel, model.ID); err != nil {
				return err
			}
		}

		for _, wf := range reply.AddedFacts {
			fact := wf.ToFact()
			if err := facts.Update(ctx, fact); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("failed to apply fact: %w", err)
				}
				if err := facts.Create(ctx, fact); err != nil {
					return fmt.Errorf("failed to apply fact: %w", err)
				}
			}
			if err := tombstones.Remove(ctx, domain.KindFact, fact.ID); err != nil {
				return err
			}
		}

		for _, wc := range reply.AddedCards {
			card := domain.Card(wc)
			if err := cards.Update(ctx, &card); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("failed to apply card: %w", err)
				}
				if err := cards.Create(ctx, &card); err != nil {
					return fmt.Errorf("failed to apply card: %w", err)
				}
			}
			if err := tombstones.Remove(ctx, domain.KindCard, card.ID); err != nil {
				return err
			}
			addedCardIDs = append(addedCardIDs, card.ID)
		}

		if ids := idTimeIDs(reply.DeletedCards); len(ids) > 0 {
			if err := cards.Delete(ctx, ids...); err != nil {
				return fmt.Errorf("failed to apply card deletions: %w", err)
			}
		}
		if ids := idTimeIDs(reply.DeletedFacts); len(ids) > 0 {
			if err := facts.Delete(ctx, ids...); err != nil {
				return fmt.Errorf("failed to apply fact deletions: %w", err)
			}
		}
		if ids := idTimeIDs(reply.DeletedModels); len(ids) > 0 {
			if err := models.Delete(ctx, ids...); err != nil {
				return fmt.Errorf("failed to apply model deletions: %w", err)
			}
		}

		if reply.Deck != nil {
			reply.Deck.ApplyTo(deck)
			if err := decks.Save(ctx, deck); err != nil {
				return fmt.Errorf("failed to apply deck configuration: %w", err)
			}
			if err := applyStats(ctx, stats, reply.Stats); err != nil {
				return err
			}
			if len(reply.History) > 0 {
				entries := make([]*domain.ReviewEntry, len(reply.History))
				for i, h := range reply.History {
					e := domain.ReviewEntry(h)
					entries[i] = &e
				}
				if err := revlog.AddMany(ctx, entries); err != nil {
					return fmt.Errorf("failed to apply review history: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orphans, err := st.Cards.OrphanCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check orphan invariant: %w", err)
	}
	if orphans > 0 {
		return nil, fmt.Errorf("%w: %d cards reference missing facts after sync",
			store.ErrInvalidEntity, orphans)
	}
	return addedCardIDs, nil
}

// applyStats copies remote aggregate counters onto the matching local
// rows, creating day rows as needed. Local row identity is kept.
func applyStats(ctx context.Context, stats store.StatsStore, in []wire.Stats) error {
	for _, ws := range in {
		var (
			row *domain.Stats
			err error
		)
		if domain.StatsType(ws.Type) == domain.StatsLife {
			row, err = stats.Life(ctx)
		} else {
			row, err = stats.Day(ctx, ws.Day)
		}
		if err != nil {
			return fmt.Errorf("failed to load stats row: %w", err)
		}
		row.Reps = ws.Reps
		row.AverageTime = ws.AverageTime
		row.ReviewTime = ws.ReviewTime
		row.NewEase = ws.NewEase
		row.YoungEase = ws.YoungEase
		row.MatureEase = ws.MatureEase
		if err := stats.Update(ctx, row); err != nil {
			return fmt.Errorf("failed to apply stats row: %w", err)
		}
	}
	return nil
}

// tombstonesFor returns the (id, deletedTime) pairs for the given ids,
// drawn from the tombstone log since the watermark.
func tombstonesFor(ctx context.Context, st Stores, kind domain.EntityKind, ids []uuid.UUID, lastSync float64) ([]wire.IDTime, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := st.Tombstones.Since(ctx, kind, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tombstones: %w", kind, err)
	}
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []wire.IDTime
	for _, t := range all {
		if want[t.ID] {
			out = append(out, wire.IDTime{ID: t.ID, Time: t.Time})
		}
	}
	return out, nil
}

func idTimeIDs(in []wire.IDTime) []uuid.UUID {
	out := make([]uuid.UUID, len(in))
	for i, it := range in {
		out[i] = it.ID
	}
	return out
}

// statsDayFloor buckets lastSync−1day into its calendar day for the
// daily stats bundle cutoff.
func statsDayFloor(lastSync float64) time.Time {
	t := time.Unix(int64(lastSync), 0).Add(-24 * time.Hour).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
