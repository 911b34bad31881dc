package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// allRows is the watermark that matches every row: modification clocks
// are positive epoch seconds, so everything is strictly after it.
const allRows = -1

// purgedOnFullSync lists the tables a full download replaces. Order
// matters only for readability; there are no foreign keys between them.
var purgedOnFullSync = []string{
	"cards", "facts", "fields",
	"models", "card_models", "field_models",
	"stats", "revlog", "tombstones", "deck",
}

// BuildFullDump serializes the entire local store for a full upload.
func BuildFullDump(ctx context.Context, st Stores, deck *domain.Deck) (*wire.FullDump, error) {
	dump := &wire.FullDump{Deck: wire.FromDeck(deck)}

	modelIDs, err := st.Models.ModifiedSince(ctx, allRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	for _, it := range modelIDs {
		model, err := st.Models.GetByID(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to dump model: %w", err)
		}
		dump.Models = append(dump.Models, wire.FromModel(model))
	}

	factIDs, err := st.Facts.ModifiedSince(ctx, allRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	for _, it := range factIDs {
		fact, err := st.Facts.GetByID(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to dump fact: %w", err)
		}
		dump.Facts = append(dump.Facts, wire.FromFact(fact))
	}

	cardIDs, err := st.Cards.ModifiedSince(ctx, allRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	for _, it := range cardIDs {
		card, err := st.Cards.GetByID(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to dump card: %w", err)
		}
		dump.Cards = append(dump.Cards, wire.Card(*card))
	}

	life, err := st.Stats.Life(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dump lifetime stats: %w", err)
	}
	dump.Stats = append(dump.Stats, wire.Stats(*life))
	days, err := st.Stats.DaysSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to dump daily stats: %w", err)
	}
	for _, d := range days {
		dump.Stats = append(dump.Stats, wire.Stats(*d))
	}

	history, err := st.Revlog.Since(ctx, allRows)
	if err != nil {
		return nil, fmt.Errorf("failed to dump review history: %w", err)
	}
	for _, h := range history {
		dump.History = append(dump.History, wire.History(*h))
	}
	return dump, nil
}

// ApplyFullDump replaces the local store wholesale with the downloaded
// dump. The local deck row keeps its identity; everything else,
// tombstones included, is dropped and rebuilt from the dump.
func ApplyFullDump(ctx context.Context, st Stores, deck *domain.Deck, dump *wire.FullDump) error {
	return store.RunInTransaction(ctx, st.DB, func(ctx context.Context, tx *sql.Tx) error {
		rows := st.Rows.WithTxRowStore(tx)
		cards := st.Cards.WithTxCardStore(tx)
		facts := st.Facts.WithTxFactStore(tx)
		models := st.Models.WithTxModelStore(tx)
		stats := st.Stats.WithTxStatsStore(tx)
		revlog := st.Revlog.WithTxRevlogStore(tx)
		decks := st.Deck.WithTxDeckStore(tx)

		if err := rows.PurgeTables(ctx, purgedOnFullSync...); err != nil {
			return err
		}

		dump.Deck.ApplyTo(deck)
		if err := decks.Save(ctx, deck); err != nil {
			return fmt.Errorf("failed to restore deck: %w", err)
		}

		for _, wm := range dump.Models {
			if err := models.Create(ctx, wm.ToModel()); err != nil {
				return fmt.Errorf("failed to restore model: %w", err)
			}
		}
		for _, wf := range dump.Facts {
			if err := facts.Create(ctx, wf.ToFact()); err != nil {
				return fmt.Errorf("failed to restore fact: %w", err)
			}
		}
		if len(dump.Cards) > 0 {
			restored := make([]*domain.Card, len(dump.Cards))
			for i, wc := range dump.Cards {
				card := domain.Card(wc)
				restored[i] = &card
			}
			if err := cards.Create(ctx, restored...); err != nil {
				return fmt.Errorf("failed to restore cards: %w", err)
			}
		}
		if err := applyStats(ctx, stats, dump.Stats); err != nil {
			return err
		}
		if len(dump.History) > 0 {
			entries := make([]*domain.ReviewEntry, len(dump.History))
			for i, h := range dump.History {
				e := domain.ReviewEntry(h)
				entries[i] = &e
			}
			if err := revlog.AddMany(ctx, entries); err != nil {
				return fmt.Errorf("failed to restore review history: %w", err)
			}
		}
		return nil
	})
}
