// Package models defines data structures for the scraper.
package models

import "time"

// Gender is the audience classification parsed from a perfume title.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMen     Gender = "Men"
	GenderWomen   Gender = "Women"
	GenderUnisex  Gender = "Unisex"
)

// Perfume is one product record. URL is the merge key across runs and never changes
// once assigned.
type Perfume struct {
	URL         string            `json:"url"`
	Name        string            `json:"name,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	Category    string            `json:"category,omitempty"`
	Gender      Gender            `json:"gender,omitempty"`
	ReleaseYear int               `json:"release_year,omitempty"`
	TopNotes    []string          `json:"top_notes,omitempty"`
	MiddleNotes []string          `json:"middle_notes,omitempty"`
	BaseNotes   []string          `json:"base_notes,omitempty"`
	Accords     []string          `json:"main_accords,omitempty"`
	Description string            `json:"description,omitempty"`
	Rating      float64           `json:"rating,omitempty"`
	Votes       int               `json:"votes,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	ImageLocal  string            `json:"image_local,omitempty"`
	NoteImages  map[string]string `json:"note_images,omitempty"`

	Longevity  VoteDistribution `json:"longevity,omitempty"`
	Sillage    VoteDistribution `json:"sillage,omitempty"`
	PriceValue VoteDistribution `json:"price_value,omitempty"`
	Season     VoteDistribution `json:"season,omitempty"`
	DayNight   VoteDistribution `json:"day_night,omitempty"`

	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
}

// HasNotes reports whether any pyramid tier is populated.
func (p *Perfume) HasNotes() bool {
	return len(p.TopNotes) > 0 || len(p.MiddleNotes) > 0 || len(p.BaseNotes) > 0
}

// Distribution returns the attachment for dim, or nil when absent.
func (p *Perfume) Distribution(dim Dimension) VoteDistribution {
	switch dim {
	case DimensionLongevity:
		return p.Longevity
	case DimensionSillage:
		return p.Sillage
	case DimensionPriceValue:
		return p.PriceValue
	case DimensionSeason:
		return p.Season
	case DimensionDayNight:
		return p.DayNight
	}
	return nil
}

// SetDistribution stores d under dim. Empty distributions clear the field so that absence
// is always represented by omission.
func (p *Perfume) SetDistribution(dim Dimension, d VoteDistribution) {
	if d.Empty() {
		d = nil
	}
	switch dim {
	case DimensionLongevity:
		p.Longevity = d
	case DimensionSillage:
		p.Sillage = d
	case DimensionPriceValue:
		p.PriceValue = d
	case DimensionSeason:
		p.Season = d
	case DimensionDayNight:
		p.DayNight = d
	}
}

// MissingCore lists the core fields absent from the record, for completeness logging.
func (p *Perfume) MissingCore() []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Brand == "" {
		missing = append(missing, "brand")
	}
	if !p.HasNotes() {
		missing = append(missing, "notes")
	}
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if p.Rating == 0 {
		missing = append(missing, "rating")
	}
	return missing
}

// MissingVotes lists the vote dimensions (and accords) absent from the record.
func (p *Perfume) MissingVotes() []string {
	var missing []string
	for _, dim := range Dimensions {
		if p.Distribution(dim).Empty() {
			missing = append(missing, string(dim))
		}
	}
	if len(p.Accords) == 0 {
		missing = append(missing, "main_accords")
	}
	return missing
}

// Target is one brand group to resolve and extract.
type Target struct {
	Brand    string
	Category string
	Limit    int
}

// ItemFailure names an item that exhausted its retry budget.
type ItemFailure struct {
	URL   string
	Brand string
	Kind  string
	Err   string
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	StartTime       time.Time
	EndTime         time.Time
	Succeeded       []string
	Failed          []ItemFailure
	Skipped         int
	GroupsSucceeded []string
	GroupsEmpty     []string
	ErrorsByType    map[string]int
	RetryCount      int
	RestartCount    int
	Checkpoints     int
	DatasetSize     int
	Aborted         bool
}
