package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL    string
	Headless   bool
	BrowserBin string
	ProxyURL   string
	UserAgent  string

	// Render protocol.
	PageTimeout     time.Duration
	ReadyFallback   time.Duration
	ScrollSteps     int
	ScrollPause     time.Duration
	SectionPause    time.Duration
	SettlePause     time.Duration
	VotePause       time.Duration
	MinContentBytes int

	// Resilience.
	MaxRetries        int
	TransientCooldown time.Duration
	BlockedCooldown   time.Duration
	RetryBackoffMax   time.Duration
	FailureThreshold  int
	RateLimitCooldown time.Duration
	Delay             time.Duration
	RandomDelay       time.Duration

	// Batch.
	CheckpointEvery int
	ItemsPerBrand   int
	DedupeMaxSize   int
	Refresh         bool

	OutputFile     string
	OutputFormat   string // json or dual
	ImageDir       string
	DownloadImages bool

	Verbose     bool
	MetricsAddr string
	ListenAddr  string
}

// DefaultConfig returns conservative defaults for the target site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://www.fragrantica.com",
		Headless:   true,
		BrowserBin: "",
		ProxyURL:   "",
		UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",

		PageTimeout:     20 * time.Second,
		ReadyFallback:   3 * time.Second,
		ScrollSteps:     20,
		ScrollPause:     350 * time.Millisecond,
		SectionPause:    1200 * time.Millisecond,
		SettlePause:     1500 * time.Millisecond,
		VotePause:       2500 * time.Millisecond,
		MinContentBytes: 5000,

		MaxRetries:        2,
		TransientCooldown: 5 * time.Second,
		BlockedCooldown:   30 * time.Second,
		RetryBackoffMax:   2 * time.Minute,
		FailureThreshold:  3,
		RateLimitCooldown: 120 * time.Second,
		Delay:             8 * time.Second,
		RandomDelay:       7 * time.Second,

		CheckpointEvery: 5,
		ItemsPerBrand:   15,
		DedupeMaxSize:   100000,
		Refresh:         false,

		OutputFile:     "output/perfumes.json",
		OutputFormat:   "json",
		ImageDir:       "perfume_images",
		DownloadImages: false,

		Verbose:     false,
		MetricsAddr: "",
		ListenAddr:  ":8000",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive")
	}
	if c.ReadyFallback < 0 {
		return fmt.Errorf("ready fallback cannot be negative")
	}
	if c.ScrollSteps <= 0 {
		return fmt.Errorf("scroll steps must be positive")
	}
	if c.ScrollPause < 0 || c.SectionPause < 0 || c.SettlePause < 0 || c.VotePause < 0 {
		return fmt.Errorf("render pauses cannot be negative")
	}
	if c.MinContentBytes < 0 {
		return fmt.Errorf("min content bytes cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.TransientCooldown < 0 {
		return fmt.Errorf("transient cooldown cannot be negative")
	}
	if c.BlockedCooldown < 0 {
		return fmt.Errorf("blocked cooldown cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.BlockedCooldown > c.RetryBackoffMax {
		return fmt.Errorf("blocked cooldown (%s) cannot exceed retry backoff max (%s)", c.BlockedCooldown, c.RetryBackoffMax)
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be positive")
	}
	if c.RateLimitCooldown < 0 {
		return fmt.Errorf("rate limit cooldown cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint interval must be positive")
	}
	if c.ItemsPerBrand <= 0 {
		return fmt.Errorf("items per brand must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.DownloadImages && c.ImageDir == "" {
		return fmt.Errorf("image dir cannot be empty when image downloads are enabled")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
