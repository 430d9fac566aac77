// Package images stores product images next to the dataset.
package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const maxNameLen = 80

var (
	// ErrNoImage is returned for records without an image URL or a name to file it under.
	ErrNoImage = errors.New("images: record has no image")

	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*&]`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// Sanitize turns s into a file name stem: reserved characters are dropped, whitespace runs
// become underscores and the result is capped at 80 characters.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), "_")
	if r := []rune(s); len(r) > maxNameLen {
		s = string(r[:maxNameLen])
	}
	return s
}

// FileName is the stored name of rec's image.
func FileName(rec *models.Perfume) string {
	return Sanitize(rec.Brand+"_"+rec.Name) + ".png"
}

// Downloader fetches product images into a directory, one file per record.
type Downloader struct {
	dir       string
	collector *colly.Collector
	logger    *slog.Logger
}

// NewDownloader prepares dir and a collector that identifies as userAgent.
func NewDownloader(dir, userAgent string, timeout time.Duration) (*Downloader, error) {
	if dir == "" {
		return nil, fmt.Errorf("image dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %q: %w", dir, err)
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}

	return &Downloader{
		dir:       dir,
		collector: collector,
		logger:    slog.Default(),
	}, nil
}

// WithTransport swaps the HTTP transport used for downloads.
func (d *Downloader) WithTransport(rt http.RoundTripper) {
	d.collector.WithTransport(rt)
}

// Fetch stores rec's image and returns its local path. An image already on disk is not
// downloaded again.
func (d *Downloader) Fetch(ctx context.Context, rec *models.Perfume) (string, error) {
	if rec == nil || rec.ImageURL == "" || rec.Name == "" {
		return "", ErrNoImage
	}
	path := filepath.Join(d.dir, FileName(rec))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := d.collector.Clone()
	var saveErr error
	c.OnResponse(func(r *colly.Response) {
		if len(r.Body) == 0 {
			saveErr = fmt.Errorf("empty body")
			return
		}
		saveErr = r.Save(path)
	})

	if err := c.Visit(rec.ImageURL); err != nil {
		return "", fmt.Errorf("download %s: %w", rec.ImageURL, err)
	}
	if saveErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("save %s: %w", path, saveErr)
	}

	d.logger.Debug("image stored", slog.String("url", rec.ImageURL), slog.String("path", path))
	return path, nil
}
