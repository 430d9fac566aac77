package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const (
	shortDescription = 80

	// Descriptions cut by the old 500-character limit land in this window.
	truncatedMin = 490
	truncatedMax = 510
)

// AuditFields are the vote-derived fields counted per record, in report order.
var AuditFields = []string{
	string(models.DimensionLongevity),
	string(models.DimensionSillage),
	string(models.DimensionPriceValue),
	"main_accords",
	string(models.DimensionSeason),
	string(models.DimensionDayNight),
}

// VoteGap names a record and the vote fields it lacks.
type VoteGap struct {
	Label   string
	Missing []string
}

// AuditReport holds completeness statistics re-derived from a dataset.
type AuditReport struct {
	Total      int
	TotalNotes int

	MissingImageFile []string
	MissingImageURL  []string
	MissingNotes     []string
	MissingAnyVote   []VoteGap
	MissingURL       []string
	BadURL           []string
	NoDescription    []string
	ShortDescription []string

	// MissingByField counts records lacking each of AuditFields.
	MissingByField map[string]int
}

// HealthCheck is one line of the overall score: records passing a check.
type HealthCheck struct {
	Name    string
	Passing int
}

// Health summarises the report as passing counts.
func (r *AuditReport) Health() []HealthCheck {
	return []HealthCheck{
		{"Has local image", r.Total - len(r.MissingImageFile)},
		{"Has image URL", r.Total - len(r.MissingImageURL)},
		{"Has notes", r.Total - len(r.MissingNotes)},
		{"Has all vote data", r.Total - len(r.MissingAnyVote)},
		{"Has URL", r.Total - len(r.MissingURL)},
		{"Has description", r.Total - len(r.NoDescription)},
	}
}

// Audit checks every record. Relative image paths resolve against baseDir; item URLs
// must start with "<baseURL>/perfume/".
func Audit(records []*models.Perfume, baseDir, baseURL string) *AuditReport {
	report := &AuditReport{
		Total:          len(records),
		TotalNotes:     len(New(records).Notes()),
		MissingByField: make(map[string]int, len(AuditFields)),
	}
	for _, f := range AuditFields {
		report.MissingByField[f] = 0
	}
	itemPrefix := strings.TrimSuffix(baseURL, "/") + "/perfume/"

	for _, rec := range records {
		label := Label(rec)

		switch {
		case rec.ImageLocal == "":
			report.MissingImageFile = append(report.MissingImageFile, label)
		case !fileExists(resolve(baseDir, rec.ImageLocal)):
			report.MissingImageFile = append(report.MissingImageFile, fmt.Sprintf("%s [file missing: %s]", label, rec.ImageLocal))
		}
		if rec.ImageURL == "" {
			report.MissingImageURL = append(report.MissingImageURL, label)
		}
		if !rec.HasNotes() {
			report.MissingNotes = append(report.MissingNotes, label)
		}

		if missing := missingVoteFields(rec); len(missing) > 0 {
			report.MissingAnyVote = append(report.MissingAnyVote, VoteGap{Label: label, Missing: missing})
			for _, f := range missing {
				report.MissingByField[f]++
			}
		}

		switch {
		case rec.URL == "":
			report.MissingURL = append(report.MissingURL, label)
		case !strings.HasPrefix(rec.URL, itemPrefix):
			report.BadURL = append(report.BadURL, fmt.Sprintf("%s [%s]", label, rec.URL))
		}

		n := len([]rune(rec.Description))
		switch {
		case n == 0:
			report.NoDescription = append(report.NoDescription, label)
		case n < shortDescription:
			report.ShortDescription = append(report.ShortDescription, fmt.Sprintf("%s (%d chars)", label, n))
		}
	}
	return report
}

// Label identifies a record in reports.
func Label(rec *models.Perfume) string {
	brand, name := rec.Brand, rec.Name
	if brand == "" {
		brand = "?"
	}
	if name == "" {
		name = "?"
	}
	return brand + " - " + name
}

func missingVoteFields(rec *models.Perfume) []string {
	var missing []string
	for _, f := range AuditFields {
		if f == "main_accords" {
			if len(rec.Accords) == 0 {
				missing = append(missing, f)
			}
			continue
		}
		if rec.Distribution(models.Dimension(f)).Empty() {
			missing = append(missing, f)
		}
	}
	return missing
}

// NeedsRefresh reports whether rec is worth extracting again: a vote field is missing or
// the description looks cut at the old length limit.
func NeedsRefresh(rec *models.Perfume) bool {
	if len(missingVoteFields(rec)) > 0 {
		return true
	}
	n := len([]rune(rec.Description))
	return n >= truncatedMin && n <= truncatedMax
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
