// Package catalog is the read-side model over a persisted dataset: filtering, ranking,
// pagination, listings and completeness audits. It never writes the dataset.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const (
	DefaultLimit = 24
	MaxLimit     = 1000
)

// ErrInvalidQuery wraps every rejected query parameter.
var ErrInvalidQuery = errors.New("invalid query")

// Query selects, orders and pages records. Zero values mean "no filter".
type Query struct {
	Search   string
	Brand    string
	Category string
	Gender   string
	Note     string
	Accord   string

	// Label filters. Season also accepts "day" and "night".
	Price     string
	Longevity string
	Sillage   string
	Season    string
	// Dominant restricts label filters to records where the label is dominant.
	Dominant bool

	Sort  string // rating, votes, name, brand or year
	Order string // asc or desc
	Page  int
	Limit int
}

// Page is one page of query results.
type Page struct {
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Perfumes []*models.Perfume `json:"perfumes"`
}

// Count pairs a name with the number of records carrying it.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarises the dataset.
type Stats struct {
	TotalPerfumes int     `json:"total_perfumes"`
	TotalBrands   int     `json:"total_brands"`
	TotalNotes    int     `json:"total_notes"`
	AvgRating     float64 `json:"avg_rating"`
}

// Catalog is an immutable view over a set of records.
type Catalog struct {
	records []*models.Perfume
}

// New wraps records. The slice is not copied and must not be modified afterwards.
func New(records []*models.Perfume) *Catalog {
	return &Catalog{records: records}
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns every record in dataset order.
func (c *Catalog) Records() []*models.Perfume {
	return c.records
}

var sortKeys = map[string]func(a, b *models.Perfume) int{
	"rating": func(a, b *models.Perfume) int { return cmpFloat(a.Rating, b.Rating) },
	"votes":  func(a, b *models.Perfume) int { return a.Votes - b.Votes },
	"name":   func(a, b *models.Perfume) int { return strings.Compare(a.Name, b.Name) },
	"brand":  func(a, b *models.Perfume) int { return strings.Compare(a.Brand, b.Brand) },
	"year":   func(a, b *models.Perfume) int { return a.ReleaseYear - b.ReleaseYear },
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// normalize fills defaults and rejects out-of-range values.
func (q *Query) normalize() ([]ratioFilter, error) {
	if q.Sort == "" {
		q.Sort = "rating"
	}
	if _, ok := sortKeys[q.Sort]; !ok {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}
	q.Order = strings.ToLower(q.Order)
	if q.Order == "" {
		q.Order = "desc"
	}
	if q.Order != "asc" && q.Order != "desc" {
		return nil, fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxLimit)
	}

	var filters []ratioFilter
	add := func(dim models.Dimension, label string) error {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			return nil
		}
		if !dim.Accepts(label) {
			return fmt.Errorf("%w: unknown %s %q", ErrInvalidQuery, dim, label)
		}
		filters = append(filters, ratioFilter{dim: dim, label: label, dominant: q.Dominant})
		return nil
	}
	if err := add(models.DimensionPriceValue, q.Price); err != nil {
		return nil, err
	}
	if err := add(models.DimensionLongevity, q.Longevity); err != nil {
		return nil, err
	}
	if err := add(models.DimensionSillage, q.Sillage); err != nil {
		return nil, err
	}
	seasonDim := models.DimensionSeason
	if models.DimensionDayNight.Accepts(strings.ToLower(strings.TrimSpace(q.Season))) {
		seasonDim = models.DimensionDayNight
	}
	if err := add(seasonDim, q.Season); err != nil {
		return nil, err
	}
	return filters, nil
}

// Query applies q. Label filters order the result by share and replace the sort key; the
// last one given wins, in the order price, longevity, sillage, season.
func (c *Catalog) Query(q Query) (Page, error) {
	filters, err := q.normalize()
	if err != nil {
		return Page{}, err
	}

	out := make([]*models.Perfume, 0, len(c.records))
	for _, rec := range c.records {
		if q.matches(rec) {
			out = append(out, rec)
		}
	}
	for _, f := range filters {
		out = f.apply(out)
	}
	if len(filters) == 0 {
		key := sortKeys[q.Sort]
		desc := q.Order == "desc"
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return key(out[i], out[j]) > 0
			}
			return key(out[i], out[j]) < 0
		})
	}

	page := Page{Total: len(out), Page: q.Page, Limit: q.Limit, Perfumes: []*models.Perfume{}}
	// Compare in pages, not offsets: (Page-1)*Limit overflows for huge page numbers.
	if q.Page-1 < (len(out)+q.Limit-1)/q.Limit {
		start := (q.Page - 1) * q.Limit
		end := min(start+q.Limit, len(out))
		page.Perfumes = out[start:end]
	}
	return page, nil
}

func (q *Query) matches(rec *models.Perfume) bool {
	if s := strings.ToLower(q.Search); s != "" {
		if !strings.Contains(strings.ToLower(rec.Name), s) && !strings.Contains(strings.ToLower(rec.Brand), s) {
			return false
		}
	}
	if q.Brand != "" && !strings.EqualFold(rec.Brand, q.Brand) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(rec.Category, q.Category) {
		return false
	}
	if q.Gender != "" && !strings.EqualFold(string(rec.Gender), q.Gender) {
		return false
	}
	if n := strings.ToLower(q.Note); n != "" && !containsFold(allNotes(rec), n) {
		return false
	}
	if a := strings.ToLower(q.Accord); a != "" && !containsFold(rec.Accords, a) {
		return false
	}
	return true
}

// containsFold reports whether any item contains the lower-cased needle.
func containsFold(items []string, needle string) bool {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), needle) {
			return true
		}
	}
	return false
}

func allNotes(rec *models.Perfume) []string {
	notes := make([]string, 0, len(rec.TopNotes)+len(rec.MiddleNotes)+len(rec.BaseNotes))
	notes = append(notes, rec.TopNotes...)
	notes = append(notes, rec.MiddleNotes...)
	return append(notes, rec.BaseNotes...)
}

// Brands lists brands with their record counts, by name.
func (c *Catalog) Brands() []Count {
	counts := make(map[string]int)
	for _, rec := range c.records {
		counts[rec.Brand]++
	}
	out := toCounts(counts)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Accords lists accords with their record counts, most common first.
func (c *Catalog) Accords() []Count {
	counts := make(map[string]int)
	for _, rec := range c.records {
		for _, a := range rec.Accords {
			if a != "" {
				counts[a]++
			}
		}
	}
	out := toCounts(counts)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func toCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	return out
}

// Notes lists every distinct note across all tiers, sorted.
func (c *Catalog) Notes() []string {
	seen := make(map[string]struct{})
	for _, rec := range c.records {
		for _, n := range allNotes(rec) {
			if n != "" {
				seen[n] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Stats computes dataset totals. AvgRating covers rated records only, rounded to two
// decimals.
func (c *Catalog) Stats() Stats {
	brands := make(map[string]struct{})
	var sum float64
	var rated int
	for _, rec := range c.records {
		brands[rec.Brand] = struct{}{}
		if rec.Rating > 0 {
			sum += rec.Rating
			rated++
		}
	}
	stats := Stats{
		TotalPerfumes: len(c.records),
		TotalBrands:   len(brands),
		TotalNotes:    len(c.Notes()),
	}
	if rated > 0 {
		stats.AvgRating = math.Round(sum/float64(rated)*100) / 100
	}
	return stats
}
