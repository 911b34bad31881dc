package sched

import (
	"math"

	"github.com/mnemohq/mnemo/internal/domain"
)

// easyBonus is the extra growth multiplier applied to easy answers on
// graduated cards.
const easyBonus = 1.3

const secsPerDay = 86400.0

// nextInterval computes the card's next interval in days.
//
// delay is the adjusted delay: how many days late (positive) or early
// (negative) the review happened relative to its due date. fuzz is the
// card's cached random value in [0,1); it must be stable across repeated
// calls for the same answer so that recomputing the schedule is
// deterministic within one review.
func nextInterval(d *domain.Deck, card *domain.Card, delay float64, ease domain.Ease, fuzz float64) float64 {
	interval := card.Interval
	factor := card.Factor

	// Reviewed early on a review card: credit the unused part of the old
	// interval, then treat the review as on time.
	if delay < 0 && card.IsRev() {
		interval = math.Max(card.LastInterval, card.Interval+delay)
		if interval < d.MidIntervalMin {
			interval = 0
		}
		delay = 0
	}

	switch {
	case ease == domain.EaseFailed:
		interval *= d.FailedFactor
		if interval < d.HardIntervalMin {
			interval = 0
		}

	case interval == 0:
		// First successful review: seed from the matching ease tier.
		switch ease {
		case domain.EaseHard:
			interval = d.HardIntervalMin + fuzz*(d.HardIntervalMax-d.HardIntervalMin)
		case domain.EaseMid:
			interval = d.MidIntervalMin + fuzz*(d.MidIntervalMax-d.MidIntervalMin)
		case domain.EaseEasy:
			interval = d.EasyIntervalMin + fuzz*(d.EasyIntervalMax-d.EasyIntervalMin)
		}

	default:
		// Graduated review. Small intervals get boosted toward the middle
		// of the mid tier before scaling.
		if interval < d.HardIntervalMax && interval > 0.166 {
			mid := (d.MidIntervalMin + d.MidIntervalMax) / 2.0
			interval = mid / factor
		}
		switch ease {
		case domain.EaseHard:
			interval = (interval + delay/4) * 1.2
		case domain.EaseMid:
			interval = (interval + delay/2) * factor
		case domain.EaseEasy:
			interval = (interval + delay) * factor * easyBonus
		}
		interval *= 0.95 + fuzz*0.10
	}

	if interval > domain.MaxScheduleDays {
		interval = domain.MaxScheduleDays
	}
	if interval < 0 {
		interval = 0
	}
	return interval
}

// nextDue computes the epoch-seconds due time for a card whose interval
// has already been updated for this answer.
//
// Failed mature cards can be pushed to the start of a future day via the
// bonus delay, so failures land ahead of that day's normally waiting
// cards. The literal 600 is the historical "no bonus" sentinel and is
// matched exactly.
func nextDue(d *domain.Deck, interval float64, ease domain.Ease, oldState string, now, failedCutoff float64) float64 {
	if ease == domain.EaseFailed {
		if oldState == "mature" && d.FailedBonusDays > 0 && d.FailedBonusDays != domain.NoBonusSentinel {
			return failedCutoff + (d.FailedBonusDays-1)*secsPerDay
		}
		return now
	}
	return now + interval*secsPerDay
}

// factorAdjustment returns the ease-factor delta for an answer, mirroring
// the young/mature-independent adjustment table.
func factorAdjustment(ease domain.Ease) float64 {
	switch ease {
	case domain.EaseFailed:
		return -0.20
	case domain.EaseHard:
		return -0.15
	case domain.EaseEasy:
		return 0.15
	default:
		return 0
	}
}

// adjustedDelay returns how many days late (positive) or early (negative)
// a review happened. New cards are always on time.
func adjustedDelay(card *domain.Card, now, failedCutoff float64) float64 {
	if card.IsNew() {
		return 0
	}
	if card.CombinedDue <= failedCutoff {
		return (now - card.Due) / secsPerDay
	}
	return (now - card.CombinedDue) / secsPerDay
}
