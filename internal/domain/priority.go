package domain

import "strings"

// Tag-derived priority tiers.
const (
	PriorityLow  = 1
	PriorityMed  = 3
	PriorityHigh = 4
)

// PriorityRules maps tag membership to scheduling priority. Tags in none
// of the lists carry the no-opinion default of 2.
type PriorityRules struct {
	Low  []string
	Med  []string
	High []string
}

// TagPriority returns the priority tier of a single tag.
func (r *PriorityRules) TagPriority(tag string) int {
	if containsFold(r.High, tag) {
		return PriorityHigh
	}
	if containsFold(r.Med, tag) {
		return PriorityMed
	}
	if containsFold(r.Low, tag) {
		return PriorityLow
	}
	return PriorityNormal
}

// CardPriority derives a card's priority from its fact's tags: the maximum
// tag priority wins when it exceeds the default; otherwise a single low
// tag demotes the card; otherwise the no-opinion default applies.
func (r *PriorityRules) CardPriority(tags []string) int {
	max, min := PriorityNormal, PriorityNormal
	for _, tag := range tags {
		p := r.TagPriority(tag)
		if p > max {
			max = p
		}
		if p < min {
			min = p
		}
	}
	if max > PriorityNormal {
		return max
	}
	if min == PriorityLow {
		return PriorityLow
	}
	return PriorityNormal
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
