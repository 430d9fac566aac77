// Package votes turns the site's community-voting widgets into label/count distributions.
package votes

import (
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// Widget headings as the site renders them.
const (
	HeadingLongevity  = "LONGEVITY"
	HeadingSillage    = "SILLAGE"
	HeadingPriceValue = "PRICE VALUE"
	HeadingSeason     = "SEASON"
	HeadingWhenToWear = "WHEN TO WEAR"
	HeadingGender     = "GENDER"
	HeadingAge        = "AGE"
)

var knownHeadings = map[string]struct{}{
	HeadingLongevity:  {},
	HeadingSillage:    {},
	HeadingPriceValue: {},
	HeadingSeason:     {},
	HeadingWhenToWear: {},
	HeadingGender:     {},
	HeadingAge:        {},
}

var controlLines = map[string]struct{}{
	"NO VOTE":     {},
	"SHOW VOTES":  {},
	"HIDE LABELS": {},
	"SHOW ALL":    {},
}

// ParseCount reads a vote count such as "120", "1,204", "1.2k" or "3m". Fractions are
// truncated.
func ParseCount(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	mult := 1.0
	switch {
	case len(s) > 1 && strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case len(s) > 1 && strings.HasSuffix(s, "m"):
		mult, s = 1e6, strings.TrimSuffix(s, "m")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f * mult), true
}

// NormalizeLabel turns a display label into its persisted key ("Long lasting" → "long_lasting").
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.Join(strings.Fields(label), " ")), " ", "_")
}

// ParseSection parses the text of a widget box titled heading. Lines before the heading are
// ignored and parsing stops at the next different known heading, so neighbouring widgets
// sharing the box never bleed in. It returns nil when no pair was found.
func ParseSection(text, heading string) models.VoteDistribution {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return ParseLines(lines, heading)
}

// ParseLines pairs each label line with the next count line. A label followed by another
// label is replaced by it; a count with no pending label is ignored; a zero count drops
// the pending label.
func ParseLines(lines []string, heading string) models.VoteDistribution {
	heading = strings.ToUpper(strings.TrimSpace(heading))

	var out models.VoteDistribution
	started := false
	pending := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if upper == heading {
			started = true
			continue
		}
		if !started {
			continue
		}
		if _, ok := knownHeadings[upper]; ok {
			break
		}
		if _, ok := controlLines[upper]; ok {
			continue
		}

		if count, ok := ParseCount(line); ok {
			if pending != "" && count > 0 {
				if out == nil {
					out = make(models.VoteDistribution)
				}
				out[NormalizeLabel(pending)] = count
			}
			pending = ""
			continue
		}
		if line[0] >= '0' && line[0] <= '9' || line[0] == '.' {
			// Numeric-looking junk such as "4.2/5"; not a label.
			continue
		}
		pending = line
	}
	return out
}
