package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (".env" when none are given) without
// overriding variables already set in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set to something non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration ("30s", "2m").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables on c.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SCRAPER_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := EnvString("SCRAPER_BROWSER_BIN"); ok {
		c.BrowserBin = v
	}
	if v, ok := EnvString("SCRAPER_PROXY"); ok {
		c.ProxyURL = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_IMAGE_DIR"); ok {
		c.ImageDir = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("SCRAPER_LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SCRAPER_MAX_RETRIES", &c.MaxRetries},
		{"SCRAPER_FAILURE_THRESHOLD", &c.FailureThreshold},
		{"SCRAPER_CHECKPOINT_EVERY", &c.CheckpointEvery},
		{"SCRAPER_ITEMS_PER_BRAND", &c.ItemsPerBrand},
		{"SCRAPER_MIN_CONTENT_BYTES", &c.MinContentBytes},
	}
	for _, e := range ints {
		v, ok, err := EnvInt(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SCRAPER_PAGE_TIMEOUT", &c.PageTimeout},
		{"SCRAPER_TRANSIENT_COOLDOWN", &c.TransientCooldown},
		{"SCRAPER_BLOCKED_COOLDOWN", &c.BlockedCooldown},
		{"SCRAPER_RATE_LIMIT_COOLDOWN", &c.RateLimitCooldown},
		{"SCRAPER_DELAY", &c.Delay},
		{"SCRAPER_RANDOM_DELAY", &c.RandomDelay},
	}
	for _, e := range durations {
		v, ok, err := EnvDuration(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"SCRAPER_HEADLESS", &c.Headless},
		{"SCRAPER_DOWNLOAD_IMAGES", &c.DownloadImages},
		{"SCRAPER_VERBOSE", &c.Verbose},
	}
	for _, e := range bools {
		v, ok, err := EnvBool(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}
	return nil
}
