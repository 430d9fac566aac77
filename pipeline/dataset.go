package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// Dataset is the in-memory collection, keyed by URL and kept in insertion order.
type Dataset struct {
	index   map[string]int
	records []*models.Perfume
}

// NewDataset returns an empty collection.
func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Get looks a record up by URL.
func (d *Dataset) Get(url string) (*models.Perfume, bool) {
	i, ok := d.index[url]
	if !ok {
		return nil, false
	}
	return d.records[i], true
}

// Records returns the records in insertion order. The slice is never nil.
func (d *Dataset) Records() []*models.Perfume {
	out := make([]*models.Perfume, len(d.records))
	copy(out, d.records)
	return out
}

// Upsert adds rec, or merges it into the record sharing its URL. It reports whether the
// record was new.
func (d *Dataset) Upsert(rec *models.Perfume, refresh bool, now time.Time) (bool, error) {
	stamp := now
	if existing, ok := d.Get(rec.URL); ok {
		if err := Merge(existing, rec, refresh); err != nil {
			return false, err
		}
		existing.ScrapedAt = &stamp
		return false, nil
	}
	rec.ScrapedAt = &stamp
	d.index[rec.URL] = len(d.records)
	d.records = append(d.records, rec)
	return true, nil
}

// Decode reads a persisted dataset. Records without a URL are dropped, repeated URLs are
// merged into their first occurrence and every record is normalised.
func Decode(r io.Reader) (*Dataset, error) {
	var raw []*models.Perfume
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return NewDataset(), nil
		}
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	d := NewDataset()
	for _, rec := range raw {
		if rec == nil || strings.TrimSpace(rec.URL) == "" {
			continue
		}
		Normalize(rec)
		if existing, ok := d.Get(rec.URL); ok {
			if err := Merge(existing, rec, false); err != nil {
				return nil, fmt.Errorf("merge duplicate %s: %w", rec.URL, err)
			}
			continue
		}
		d.index[rec.URL] = len(d.records)
		d.records = append(d.records, rec)
	}
	return d, nil
}

// LoadDataset reads the dataset at path. A missing file is an empty dataset.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDataset(), nil
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Normalize brings a record in line with the current vote layout. Older datasets kept
// day/night votes inside the season map; those move to day_night. Every distribution is
// then filtered to its vocabulary, so unknown labels and empty maps disappear.
func Normalize(rec *models.Perfume) {
	if legacy := rec.Season.Filter(models.DimensionDayNight); !legacy.Empty() && rec.DayNight.Empty() {
		rec.DayNight = legacy
	}
	for _, dim := range models.Dimensions {
		rec.SetDistribution(dim, rec.Distribution(dim).Filter(dim))
	}
}
