package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

func samplePerfume() *models.Perfume {
	scraped := time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC)
	return &models.Perfume{
		URL:         "https://www.fragrantica.com/perfume/Creed/Aventus-9828.html",
		Name:        "Aventus",
		Brand:       "Creed",
		Category:    "niche",
		Gender:      models.GenderMen,
		ReleaseYear: 2010,
		TopNotes:    []string{"Pineapple", "Bergamot"},
		BaseNotes:   []string{"Musk"},
		Accords:     []string{"fruity", "leather & smoke"},
		Rating:      4.33,
		Votes:       12345,
		Longevity:   models.VoteDistribution{"long_lasting": 120, "moderate": 40},
		ScrapedAt:   &scraped,
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "perfumes.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	// A second snapshot replaces the first rather than appending.
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("rewrite csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "url" || records[0][1] != "name" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[8] != "Pineapple; Bergamot" {
		t.Fatalf("top notes column = %q", row[8])
	}
	if row[12] != "moderate:40|long_lasting:120" {
		t.Fatalf("longevity column = %q", row[12])
	}
	if row[20] != "2025-11-04T13:09:13Z" {
		t.Fatalf("scraped_at column = %q", row[20])
	}
}

func TestJSONWriterWritesArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perfumes.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("write json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("records=%d, want 1", len(decoded))
	}
	rec := decoded[0]
	for _, absent := range []string{"middle_notes", "sillage", "season", "day_night", "image_local", "note_images"} {
		if _, ok := rec[absent]; ok {
			t.Fatalf("absent field %q should be omitted", absent)
		}
	}
	if rec["main_accords"].([]any)[1] != "leather & smoke" {
		t.Fatalf("accords = %v", rec["main_accords"])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestJSONWriterEmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfumes.json")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(nil); err != nil {
		t.Fatalf("write json: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("empty dataset = %q, want []", data)
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "perfumes.json")

	writer, err := NewWriter("dual", jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "perfumes.csv")); err != nil {
		t.Fatalf("csv sibling missing: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDualWriterMirrorFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "perfumes.json")
	csvPath := filepath.Join(dir, "perfumes.csv")
	// A directory in the mirror's place makes the CSV rename fail.
	if err := os.Mkdir(csvPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("mirror failure should not fail the write: %v", err)
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Fatalf("json dataset missing: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("expected validation to report the stale mirror")
	}

	if err := os.Remove(csvPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := writer.Write([]*models.Perfume{samplePerfume()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate after recovery: %v", err)
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestCSVPath(t *testing.T) {
	if got := CSVPath("output/perfumes.json"); got != "output/perfumes.csv" {
		t.Fatalf("CSVPath = %q", got)
	}
}
