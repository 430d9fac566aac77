package catalog

import (
	"sort"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// seasonPercent is the share of the top season count, in percent, a label needs to also
// count as dominant.
const seasonPercent = 65

// Dominant returns the dominant labels of d for dim, in vocabulary order.
//
// Longevity, sillage and price value have a single dominant label, the one with the
// highest count. Season admits every label reaching 65% of the top count. Day and night are
// both dominant whenever they received any vote.
func Dominant(dim models.Dimension, d models.VoteDistribution) []string {
	d = d.Filter(dim)
	if d.Empty() {
		return nil
	}

	switch dim {
	case models.DimensionSeason:
		_, top := d.Top()
		var out []string
		for _, label := range dim.Labels() {
			if n := d[label]; n > 0 && n*100 >= top*seasonPercent {
				out = append(out, label)
			}
		}
		return out
	case models.DimensionDayNight:
		var out []string
		for _, label := range dim.Labels() {
			if d[label] > 0 {
				out = append(out, label)
			}
		}
		return out
	}

	label, _ := d.Top()
	return []string{label}
}

// IsDominant reports whether label is among the dominant labels of d.
func IsDominant(dim models.Dimension, d models.VoteDistribution, label string) bool {
	for _, l := range Dominant(dim, d) {
		if l == label {
			return true
		}
	}
	return false
}

// ratioFilter keeps records whose label has a non-zero share of dim's votes and orders them
// by that share, highest first.
type ratioFilter struct {
	dim      models.Dimension
	label    string
	dominant bool
}

func (f ratioFilter) apply(records []*models.Perfume) []*models.Perfume {
	out := records[:0:0]
	for _, rec := range records {
		d := rec.Distribution(f.dim)
		if d.Share(f.label) <= 0 {
			continue
		}
		if f.dominant && !IsDominant(f.dim, d, f.label) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distribution(f.dim).Share(f.label) > out[j].Distribution(f.dim).Share(f.label)
	})
	return out
}
