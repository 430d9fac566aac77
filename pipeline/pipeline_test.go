package pipeline

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-perfumes/config"
	"github.com/aluiziolira/go-scrape-perfumes/models"
)

type collectingWriter struct {
	mu        sync.Mutex
	snapshots [][]*models.Perfume
	failAt    int
	closed    bool
}

func (c *collectingWriter) Write(records []*models.Perfume) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.snapshots)+1 == c.failAt {
		return errors.New("disk full")
	}
	c.snapshots = append(c.snapshots, records)
	return nil
}

func (c *collectingWriter) Close() error {
	c.closed = true
	return nil
}

func (c *collectingWriter) Validate() error {
	if len(c.snapshots) == 0 {
		return errors.New("no snapshots")
	}
	return nil
}

func perfume(i int) *models.Perfume {
	return &models.Perfume{
		URL:  "https://www.fragrantica.com/perfume/Brand/Item-" + string(rune('a'+i)) + ".html",
		Name: "Item " + string(rune('A'+i)),
	}
}

func TestPipelineCheckpointsEveryN(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CheckpointEvery = 5

	writer := &collectingWriter{}
	p := NewPipeline(nil, writer, cfg)

	for i := 0; i < 12; i++ {
		if err := p.Process(perfume(i)); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}
	if got := p.Checkpoints(); got != 2 {
		t.Fatalf("checkpoints after 12 records = %d, want 2", got)
	}
	if n := len(writer.snapshots[0]); n != 5 {
		t.Fatalf("first checkpoint has %d records, want 5", n)
	}
	if n := len(writer.snapshots[1]); n != 10 {
		t.Fatalf("second checkpoint has %d records, want 10", n)
	}

	if err := p.Checkpoint(); err != nil {
		t.Fatalf("final checkpoint: %v", err)
	}
	if n := len(writer.snapshots[2]); n != 12 {
		t.Fatalf("final checkpoint has %d records, want 12", n)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(perfume(13)); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelinePersistenceFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CheckpointEvery = 1

	writer := &collectingWriter{failAt: 2}
	p := NewPipeline(nil, writer, cfg)

	if err := p.Process(perfume(0)); err != nil {
		t.Fatalf("first process: %v", err)
	}
	err := p.Process(perfume(1))
	var persistence ErrPersistence
	if !errors.As(err, &persistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("error should wrap cause: %v", err)
	}
	if len(writer.snapshots) != 1 {
		t.Fatalf("earlier checkpoint should remain the only snapshot")
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(nil, &collectingWriter{}, cfg)

	if err := p.Process(&models.Perfume{URL: "https://x/perfume/a.html"}); err != nil {
		t.Fatalf("invalid record should be dropped, not fail: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("dataset size = %d, want 0", p.Len())
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 {
		t.Fatalf("validation errors = %v", validation)
	}
}

func TestPipelineMergeIsIdempotent(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(nil, &collectingWriter{}, cfg)

	full := samplePerfume()
	full.Description = "A long description of the fragrance that was captured on the first pass."
	if err := p.Process(full); err != nil {
		t.Fatalf("process: %v", err)
	}

	sparse := &models.Perfume{URL: full.URL, Name: "Aventus", Rating: 4.1, Votes: 20000}
	if err := p.Process(sparse); err != nil {
		t.Fatalf("process sparse: %v", err)
	}

	got, ok := p.Dataset().Get(full.URL)
	if !ok {
		t.Fatalf("record missing")
	}
	if got.Description == "" || got.Longevity == nil || len(got.TopNotes) != 2 {
		t.Fatalf("populated fields were cleared: %+v", got)
	}
	if got.Rating != 4.33 || got.Votes != 12345 {
		t.Fatalf("rating overwritten outside refresh: %v/%d", got.Rating, got.Votes)
	}
	if p.Len() != 1 {
		t.Fatalf("dataset size = %d, want 1", p.Len())
	}
}

func TestMergeRefreshTakesRicherData(t *testing.T) {
	dst := samplePerfume()
	dst.Description = "Short one, cut at the limit of the old scraper."
	src := &models.Perfume{
		URL:         dst.URL,
		Name:        "Aventus",
		Description: dst.Description + " Now with the full text that the live node exposes.",
		TopNotes:    []string{"Pineapple"},
		BaseNotes:   []string{"Musk", "Oakmoss", "Ambergris"},
		Longevity:   models.VoteDistribution{"long_lasting": 300},
		Sillage:     models.VoteDistribution{"strong": 10},
		Rating:      4.35,
		Votes:       13000,
	}

	if err := Merge(dst, src, true); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if dst.Description != src.Description {
		t.Fatalf("longer description not taken")
	}
	if diff := cmp.Diff([]string{"Pineapple", "Bergamot"}, dst.TopNotes); diff != "" {
		t.Fatalf("shorter top notes replaced existing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Musk", "Oakmoss", "Ambergris"}, dst.BaseNotes); diff != "" {
		t.Fatalf("base notes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.VoteDistribution{"long_lasting": 300}, dst.Longevity); diff != "" {
		t.Fatalf("longevity (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.VoteDistribution{"strong": 10}, dst.Sillage); diff != "" {
		t.Fatalf("sillage should be filled (-want +got):\n%s", diff)
	}
	if dst.Rating != 4.35 || dst.Votes != 13000 {
		t.Fatalf("rating with more votes not taken: %v/%d", dst.Rating, dst.Votes)
	}
}

func TestMergeKeepsDistributionWhole(t *testing.T) {
	dst := &models.Perfume{URL: "u", Longevity: models.VoteDistribution{"moderate": 5}}
	src := &models.Perfume{URL: "u", Longevity: models.VoteDistribution{"moderate": 7, "eternal": 2}}
	if err := Merge(dst, src, false); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff(models.VoteDistribution{"moderate": 5}, dst.Longevity); diff != "" {
		t.Fatalf("distribution mixed across passes (-want +got):\n%s", diff)
	}
}

func TestMergeURLMismatch(t *testing.T) {
	if err := Merge(&models.Perfume{URL: "a"}, &models.Perfume{URL: "b"}, false); err == nil {
		t.Fatalf("expected url mismatch error")
	}
}

func TestDecodeNormalizesLegacySeason(t *testing.T) {
	input := `[
	  {"url": "https://x/perfume/a.html", "name": "A",
	   "season": {"winter": 10, "summer": 0, "day": 7, "night": 3},
	   "longevity": {"moderate": 4, "unknown": 9}},
	  {"url": "https://x/perfume/a.html", "name": "A", "brand": "Brand"},
	  {"url": "", "name": "orphan"},
	  {"url": "https://x/perfume/b.html", "name": "B", "sillage": {"strong": 0}}
	]`

	d, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("dataset size = %d, want 2", d.Len())
	}

	a, _ := d.Get("https://x/perfume/a.html")
	if diff := cmp.Diff(models.VoteDistribution{"winter": 10}, a.Season); diff != "" {
		t.Fatalf("season (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.VoteDistribution{"day": 7, "night": 3}, a.DayNight); diff != "" {
		t.Fatalf("day/night (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(models.VoteDistribution{"moderate": 4}, a.Longevity); diff != "" {
		t.Fatalf("longevity (-want +got):\n%s", diff)
	}
	if a.Brand != "Brand" {
		t.Fatalf("duplicate entry not merged: brand = %q", a.Brand)
	}

	b, _ := d.Get("https://x/perfume/b.html")
	if b.Sillage != nil {
		t.Fatalf("zero-total distribution should be dropped, got %v", b.Sillage)
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	d, err := LoadDataset(t.TempDir() + "/missing.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Len() != 0 {
		t.Fatalf("expected empty dataset")
	}
}

func TestUpsertStampsScrapedAt(t *testing.T) {
	d := NewDataset()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	added, err := d.Upsert(&models.Perfume{URL: "u", Name: "A"}, false, now)
	if err != nil || !added {
		t.Fatalf("upsert = (%v, %v)", added, err)
	}
	later := now.Add(time.Hour)
	if _, err := d.Upsert(&models.Perfume{URL: "u", Name: "A"}, false, later); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	rec, _ := d.Get("u")
	if !rec.ScrapedAt.Equal(later) {
		t.Fatalf("scraped_at = %v, want %v", rec.ScrapedAt, later)
	}
}
