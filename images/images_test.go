package images

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const imageURL = "https://fimgs.net/mdimg/perfume/375x500.9828.jpg"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Creed_Aventus", "Creed_Aventus"},
		{"Dolce&Gabbana_Light Blue", "DolceGabbana_Light_Blue"},
		{`  Acqua di Parma_Colonia: "Intensa"  `, "Acqua_di_Parma_Colonia_Intensa"},
		{"A/B\\C|D?E*F<G>H", "ABCDEFGH"},
		{"Tom Ford_Oud   Wood", "Tom_Ford_Oud_Wood"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	got := Sanitize(strings.Repeat("é", 100))
	if n := len([]rune(got)); n != 80 {
		t.Fatalf("rune length = %d, want 80", n)
	}
}

func newTestDownloader(t *testing.T) (*Downloader, *httpmock.MockTransport) {
	t.Helper()
	d, err := NewDownloader(filepath.Join(t.TempDir(), "perfume_images"), "test-agent", 0)
	if err != nil {
		t.Fatalf("new downloader: %v", err)
	}
	transport := httpmock.NewMockTransport()
	d.WithTransport(transport)
	return d, transport
}

func TestFetchStoresImage(t *testing.T) {
	d, transport := newTestDownloader(t)
	transport.RegisterResponder("GET", imageURL, httpmock.NewBytesResponder(200, []byte("\x89PNG fake")))

	rec := &models.Perfume{Name: "Aventus", Brand: "Creed", ImageURL: imageURL}
	path, err := d.Fetch(context.Background(), rec)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if filepath.Base(path) != "Creed_Aventus.png" {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "\x89PNG fake" {
		t.Fatalf("content = %q", data)
	}

	// A second fetch finds the file and makes no request.
	if _, err := d.Fetch(context.Background(), rec); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := transport.GetTotalCallCount(); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
}

func TestFetchHTTPError(t *testing.T) {
	d, transport := newTestDownloader(t)
	transport.RegisterResponder("GET", imageURL, httpmock.NewStringResponder(404, "not found"))

	rec := &models.Perfume{Name: "Aventus", Brand: "Creed", ImageURL: imageURL}
	if _, err := d.Fetch(context.Background(), rec); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := os.Stat(filepath.Join(d.dir, "Creed_Aventus.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no file should be written on failure")
	}
}

func TestFetchNoImage(t *testing.T) {
	d, _ := newTestDownloader(t)
	if _, err := d.Fetch(context.Background(), &models.Perfume{Name: "Aventus"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}
