package sched

import "github.com/mnemohq/mnemo/internal/domain"

// isLeech reports whether the card has failed often enough to count as a
// leech. The predicate re-triggers periodically rather than once: after
// the threshold is first reached, every threshold/2 further failures
// flag the card again, as long as it is not currently in review-success
// state.
func isLeech(card *domain.Card, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	if card.Successive != 0 {
		return false
	}
	if card.NoCount < threshold {
		return false
	}
	half := threshold / 2
	if half < 1 {
		half = 1
	}
	return (threshold-card.NoCount)%half == 0
}
