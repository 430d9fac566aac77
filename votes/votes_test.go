package votes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

func TestParseLinesStopsAtNextHeading(t *testing.T) {
	lines := []string{"LONGEVITY", "long lasting", "120", "moderate", "40", "SILLAGE", "strong", "99"}
	got := ParseLines(lines, HeadingLongevity)
	want := models.VoteDistribution{"long_lasting": 120, "moderate": 40}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("distribution (-want +got):\n%s", diff)
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		heading string
		want    models.VoteDistribution
	}{
		{
			name:    "heading mid-box",
			lines:   []string{"GENDER", "female", "10", "SILLAGE", "intimate", "5", "strong", "1.2k"},
			heading: HeadingSillage,
			want:    models.VoteDistribution{"intimate": 5, "strong": 1200},
		},
		{
			name:    "control lines skipped",
			lines:   []string{"PRICE VALUE", "SHOW VOTES", "way overpriced", "NO VOTE", "12", "great value", "3"},
			heading: HeadingPriceValue,
			want:    models.VoteDistribution{"way_overpriced": 12, "great_value": 3},
		},
		{
			name:    "label without count discarded",
			lines:   []string{"LONGEVITY", "eternal", "weak", "7"},
			heading: HeadingLongevity,
			want:    models.VoteDistribution{"weak": 7},
		},
		{
			name:    "orphan count ignored",
			lines:   []string{"LONGEVITY", "42", "moderate", "8"},
			heading: HeadingLongevity,
			want:    models.VoteDistribution{"moderate": 8},
		},
		{
			name:    "zero count drops label",
			lines:   []string{"SILLAGE", "enormous", "0", "12", "moderate", "2"},
			heading: HeadingSillage,
			want:    models.VoteDistribution{"moderate": 2},
		},
		{
			name:    "numeric junk keeps pending label",
			lines:   []string{"LONGEVITY", "moderate", "4.2/5", "30"},
			heading: HeadingLongevity,
			want:    models.VoteDistribution{"moderate": 30},
		},
		{
			name:    "heading absent",
			lines:   []string{"moderate", "30"},
			heading: HeadingLongevity,
			want:    nil,
		},
		{
			name:    "case-insensitive heading",
			lines:   []string{"When to Wear", "Winter", "2m", "day", "15"},
			heading: HeadingWhenToWear,
			want:    models.VoteDistribution{"winter": 2000000, "day": 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLines(tt.lines, tt.heading)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("distribution (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"120", 120, true},
		{"1,204", 1204, true},
		{"1.2k", 1200, true},
		{"2.5K", 2500, true},
		{"3m", 3000000, true},
		{"0", 0, true},
		{"ok", 0, false},
		{"k", 0, false},
		{"moderate", 0, false},
		{"-4", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCount(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("  Long   lasting "); got != "long_lasting" {
		t.Fatalf("NormalizeLabel = %q", got)
	}
}

type fakeLocator struct {
	boxes map[string]string
	err   error
	calls []string
}

func (f *fakeLocator) LocateSection(_ context.Context, label string) (string, bool, error) {
	f.calls = append(f.calls, label)
	if f.err != nil {
		return "", false, f.err
	}
	text, ok := f.boxes[label]
	return text, ok, nil
}

func box(lines ...string) string {
	return strings.Join(lines, "\n")
}

func TestExtractAll(t *testing.T) {
	loc := &fakeLocator{boxes: map[string]string{
		HeadingLongevity:  box("LONGEVITY", "very weak", "3", "long lasting", "120", "SILLAGE", "strong", "9"),
		HeadingSillage:    box("SILLAGE", "intimate", "4", "strong", "9", "loud", "50"),
		HeadingWhenToWear: box("WHEN TO WEAR", "winter", "50", "spring", "1.1k", "summer", "0", "fall", "30", "day", "70", "night", "20", "evening", "5"),
	}}
	rec := &models.Perfume{URL: "u"}
	NewExtractor(loc, nil).ExtractAll(context.Background(), rec)

	want := &models.Perfume{
		URL:       "u",
		Longevity: models.VoteDistribution{"very_weak": 3, "long_lasting": 120},
		Sillage:   models.VoteDistribution{"intimate": 4, "strong": 9},
		Season:    models.VoteDistribution{"winter": 50, "spring": 1100, "fall": 30},
		DayNight:  models.VoteDistribution{"day": 70, "night": 20},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record (-want +got):\n%s", diff)
	}
	for _, label := range loc.calls {
		if label == HeadingSeason {
			t.Fatalf("season widget should not be read when when-to-wear has votes")
		}
	}
}

func TestExtractAllSeasonFallback(t *testing.T) {
	loc := &fakeLocator{boxes: map[string]string{
		HeadingSeason: box("SEASON", "winter", "8", "night", "2"),
	}}
	rec := &models.Perfume{URL: "u"}
	NewExtractor(loc, nil).ExtractAll(context.Background(), rec)

	if diff := cmp.Diff(models.VoteDistribution{"winter": 8}, rec.Season); diff != "" {
		t.Fatalf("season (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.VoteDistribution{"night": 2}, rec.DayNight); diff != "" {
		t.Fatalf("day/night (-want +got):\n%s", diff)
	}
	if rec.Longevity != nil || rec.PriceValue != nil {
		t.Fatalf("missing widgets must stay absent, got %+v", rec)
	}
}

func TestDistributionLocatorErrorIsAbsence(t *testing.T) {
	loc := &fakeLocator{err: errors.New("target closed")}
	if got := NewExtractor(loc, nil).Distribution(context.Background(), HeadingLongevity); got != nil {
		t.Fatalf("expected nil distribution, got %v", got)
	}
}
