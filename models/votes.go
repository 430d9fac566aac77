package models

import (
	"sort"
	"strings"
)

// Dimension names one community-voting widget.
type Dimension string

const (
	DimensionLongevity  Dimension = "longevity"
	DimensionSillage    Dimension = "sillage"
	DimensionPriceValue Dimension = "price_value"
	DimensionSeason     Dimension = "season"
	DimensionDayNight   Dimension = "day_night"
)

// Dimensions lists every attachment in persisted order.
var Dimensions = []Dimension{
	DimensionLongevity,
	DimensionSillage,
	DimensionPriceValue,
	DimensionSeason,
	DimensionDayNight,
}

var vocabularies = map[Dimension][]string{
	DimensionLongevity:  {"very_weak", "weak", "moderate", "long_lasting", "eternal"},
	DimensionSillage:    {"intimate", "moderate", "strong", "enormous"},
	DimensionPriceValue: {"way_overpriced", "overpriced", "ok", "good_value", "great_value"},
	DimensionSeason:     {"winter", "spring", "summer", "fall"},
	DimensionDayNight:   {"day", "night"},
}

// Labels returns the predeclared label set for dim in display order.
func (d Dimension) Labels() []string {
	return vocabularies[d]
}

// Accepts reports whether label belongs to the dimension's vocabulary.
func (d Dimension) Accepts(label string) bool {
	for _, l := range vocabularies[d] {
		if l == label {
			return true
		}
	}
	return false
}

// ParseDimension resolves a query-string name such as "longevity" or "price".
func ParseDimension(name string) (Dimension, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "longevity":
		return DimensionLongevity, true
	case "sillage":
		return DimensionSillage, true
	case "price", "price_value":
		return DimensionPriceValue, true
	case "season":
		return DimensionSeason, true
	case "day_night", "daynight", "time":
		return DimensionDayNight, true
	}
	return "", false
}

// VoteDistribution maps a dimension label to its non-negative vote count.
type VoteDistribution map[string]int

// Empty reports whether the distribution carries no votes.
func (v VoteDistribution) Empty() bool {
	return v.Total() == 0
}

// Total sums every count.
func (v VoteDistribution) Total() int {
	total := 0
	for _, n := range v {
		if n > 0 {
			total += n
		}
	}
	return total
}

// Share returns the fraction of votes cast for label.
func (v VoteDistribution) Share(label string) float64 {
	total := v.Total()
	if total == 0 {
		return 0
	}
	return float64(v[label]) / float64(total)
}

// Filter keeps only labels in dim's vocabulary with positive counts. It returns nil when
// nothing survives.
func (v VoteDistribution) Filter(dim Dimension) VoteDistribution {
	var out VoteDistribution
	for label, n := range v {
		if n <= 0 || !dim.Accepts(label) {
			continue
		}
		if out == nil {
			out = make(VoteDistribution)
		}
		out[label] = n
	}
	return out
}

// Top returns the label with the highest count. Ties resolve to the label that sorts first.
func (v VoteDistribution) Top() (string, int) {
	labels := make([]string, 0, len(v))
	for label := range v {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best, bestCount := "", 0
	for _, label := range labels {
		if v[label] > bestCount {
			best, bestCount = label, v[label]
		}
	}
	return best, bestCount
}

// SplitWhenToWear separates a combined "when to wear" distribution into its season and
// day/night halves. Labels outside the six-label set are dropped.
func SplitWhenToWear(v VoteDistribution) (season, dayNight VoteDistribution) {
	return v.Filter(DimensionSeason), v.Filter(DimensionDayNight)
}
