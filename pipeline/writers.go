package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// CSVWriter writes a flat CSV snapshot of the dataset.
type CSVWriter struct {
	path string
	mu   sync.Mutex
}

var csvHeader = []string{
	"url", "name", "brand", "category", "gender", "release_year", "rating", "votes",
	"top_notes", "middle_notes", "base_notes", "main_accords",
	"longevity", "sillage", "price_value", "season", "day_night",
	"image_url", "image_local", "description", "scraped_at",
}

// NewCSVWriter prepares a CSV writer for filename, creating its directory.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &CSVWriter{path: filename}, nil
}

// Write replaces the file with header plus one row per record.
func (cw *CSVWriter) Write(records []*models.Perfume) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	return atomicWrite(cw.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, rec := range records {
			if err := writer.Write(csvRow(rec)); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		return nil
	})
}

func csvRow(rec *models.Perfume) []string {
	year := ""
	if rec.ReleaseYear > 0 {
		year = strconv.Itoa(rec.ReleaseYear)
	}
	scraped := ""
	if rec.ScrapedAt != nil {
		scraped = rec.ScrapedAt.Format(time.RFC3339)
	}
	return []string{
		rec.URL,
		rec.Name,
		rec.Brand,
		rec.Category,
		string(rec.Gender),
		year,
		strconv.FormatFloat(rec.Rating, 'f', -1, 64),
		strconv.Itoa(rec.Votes),
		strings.Join(rec.TopNotes, "; "),
		strings.Join(rec.MiddleNotes, "; "),
		strings.Join(rec.BaseNotes, "; "),
		strings.Join(rec.Accords, "; "),
		formatDistribution(models.DimensionLongevity, rec.Longevity),
		formatDistribution(models.DimensionSillage, rec.Sillage),
		formatDistribution(models.DimensionPriceValue, rec.PriceValue),
		formatDistribution(models.DimensionSeason, rec.Season),
		formatDistribution(models.DimensionDayNight, rec.DayNight),
		rec.ImageURL,
		rec.ImageLocal,
		rec.Description,
		scraped,
	}
}

// formatDistribution renders "label:count" pairs in vocabulary order.
func formatDistribution(dim models.Dimension, d models.VoteDistribution) string {
	var parts []string
	for _, label := range dim.Labels() {
		if n, ok := d[label]; ok {
			parts = append(parts, label+":"+strconv.Itoa(n))
		}
	}
	return strings.Join(parts, "|")
}

// Close is a no-op; every Write leaves a complete file behind.
func (cw *CSVWriter) Close() error {
	return nil
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	return validateNonEmpty(cw.path, "csv")
}

// JSONWriter writes the dataset as one indented JSON array.
type JSONWriter struct {
	path string
	mu   sync.Mutex
}

// NewJSONWriter prepares a JSON writer for filename, creating its directory.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &JSONWriter{path: filename}, nil
}

// Write atomically replaces the file with records.
func (jw *JSONWriter) Write(records []*models.Perfume) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if records == nil {
		records = []*models.Perfume{}
	}
	return atomicWrite(jw.path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return fmt.Errorf("encode json records: %w", err)
		}
		return nil
	})
}

// Close is a no-op; every Write leaves a complete file behind.
func (jw *JSONWriter) Close() error {
	return nil
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateNonEmpty(jw.path, "json")
}

// atomicWrite writes through a temp file in the target directory, syncs it and renames it
// over filename, so readers only ever see a complete snapshot.
func atomicWrite(filename string, fill func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	buffer := bufio.NewWriter(tmp)
	if err := fill(buffer); err != nil {
		cleanup()
		return err
	}
	if err := buffer.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flush %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}

func validateNonEmpty(filename, kind string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// CSVPath derives the CSV sibling of a JSON output path.
func CSVPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".csv"
}

// NewWriter builds the writer for format: "json", or "dual" for JSON plus a CSV sibling.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json", "":
		return NewJSONWriter(filename)
	case "dual":
		return NewDualWriter(CSVPath(filename), filename)
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}
