package sync

import (
	"context"
	"fmt"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// BuildReply assembles the serving side's answer to an incoming
// payload: full rows for every id the peer asked for, plus the deck
// bundle when this side's deck is fresher than the peer's. Ids that no
// longer exist are skipped; the peer's next summary reconciles them.
func BuildReply(ctx context.Context, st Stores, deck *domain.Deck, in *wire.Payload, lastSync float64) (*wire.Payload, error) {
	reply := &wire.Payload{DeckModified: deck.Modified}

	for _, id := range in.MissingModels {
		model, err := st.Models.GetByID(ctx, id)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to bundle model: %w", err)
		}
		reply.AddedModels = append(reply.AddedModels, wire.FromModel(model))
	}
	for _, id := range in.MissingFacts {
		fact, err := st.Facts.GetByID(ctx, id)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to bundle fact: %w", err)
		}
		reply.AddedFacts = append(reply.AddedFacts, wire.FromFact(fact))
	}
	for _, id := range in.MissingCards {
		card, err := st.Cards.GetByID(ctx, id)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to bundle card: %w", err)
		}
		reply.AddedCards = append(reply.AddedCards, wire.Card(*card))
	}

	if deck.Modified > in.DeckModified {
		bundle, err := buildDeckBundle(ctx, st, deck, lastSync)
		if err != nil {
			return nil, err
		}
		reply.Deck = bundle.Deck
		reply.Stats = bundle.Stats
		reply.History = bundle.History
	}
	return reply, nil
}
