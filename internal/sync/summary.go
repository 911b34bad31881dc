package sync

import (
	"context"
	"fmt"

	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/store"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// BuildSummary assembles the change manifest since lastSync from the
// given stores: per entity kind, the ids modified after the watermark
// and the ids tombstoned after it. Media rows are not stored locally,
// so only their deletions appear.
func BuildSummary(ctx context.Context, st Stores, lastSync float64) (*wire.Summary, error) {
	sum := &wire.Summary{}

	cards, err := st.Cards.ModifiedSince(ctx, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified cards: %w", err)
	}
	sum.Cards = toWireIDTimes(cards)

	facts, err := st.Facts.ModifiedSince(ctx, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified facts: %w", err)
	}
	sum.Facts = toWireIDTimes(facts)

	models, err := st.Models.ModifiedSince(ctx, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified models: %w", err)
	}
	sum.Models = toWireIDTimes(models)

	for _, kind := range domain.Kinds() {
		deleted, err := st.Tombstones.Since(ctx, kind, lastSync)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s tombstones: %w", kind, err)
		}
		switch kind {
		case domain.KindCard:
			sum.DelCards = toWireIDTimes(deleted)
		case domain.KindFact:
			sum.DelFacts = toWireIDTimes(deleted)
		case domain.KindModel:
			sum.DelModels = toWireIDTimes(deleted)
		case domain.KindMedia:
			sum.DelMedia = toWireIDTimes(deleted)
		}
	}
	return sum, nil
}

// summaryLists pairs each entity kind with its live and deleted lists.
func summaryLists(s *wire.Summary) map[domain.EntityKind][2][]wire.IDTime {
	return map[domain.EntityKind][2][]wire.IDTime{
		domain.KindCard:  {s.Cards, s.DelCards},
		domain.KindFact:  {s.Facts, s.DelFacts},
		domain.KindModel: {s.Models, s.DelModels},
		domain.KindMedia: {s.Media, s.DelMedia},
	}
}

// maxListLen returns the longest list in the summary.
func maxListLen(s *wire.Summary) int {
	max := 0
	for _, lists := range summaryLists(s) {
		for _, l := range lists {
			if len(l) > max {
				max = len(l)
			}
		}
	}
	return max
}

func toWireIDTimes(in []store.IDTime) []wire.IDTime {
	out := make([]wire.IDTime, len(in))
	for i, it := range in {
		out[i] = wire.IDTime{ID: it.ID, Time: it.Time}
	}
	return out
}
