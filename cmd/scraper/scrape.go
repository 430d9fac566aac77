package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-perfumes/browser"
	"github.com/aluiziolira/go-scrape-perfumes/catalog"
	"github.com/aluiziolira/go-scrape-perfumes/config"
	"github.com/aluiziolira/go-scrape-perfumes/images"
	"github.com/aluiziolira/go-scrape-perfumes/models"
	"github.com/aluiziolira/go-scrape-perfumes/pipeline"
	"github.com/aluiziolira/go-scrape-perfumes/scraper"
)

// batchFlags are shared by every command that drives the browser.
type batchFlags struct {
	headless        bool
	browserBin      string
	proxy           string
	maxRetries      int
	delay           time.Duration
	randomDelay     time.Duration
	checkpointEvery int
	images          bool
	metricsAddr     string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.BoolVar(&f.headless, "headless", defaults.Headless, "Run the browser without a window")
	flags.StringVar(&f.browserBin, "browser-bin", defaults.BrowserBin, "Browser binary (downloaded automatically when empty)")
	flags.StringVar(&f.proxy, "proxy", defaults.ProxyURL, "Proxy URL for the browser")
	flags.IntVar(&f.maxRetries, "max-retries", defaults.MaxRetries, "Retries per item after the first attempt")
	flags.DurationVar(&f.delay, "delay", defaults.Delay, "Pause between items")
	flags.DurationVar(&f.randomDelay, "random-delay", defaults.RandomDelay, "Random jitter added to the pause between items")
	flags.IntVar(&f.checkpointEvery, "checkpoint-every", defaults.CheckpointEvery, "Rewrite the dataset after this many accepted records")
	flags.BoolVar(&f.images, "images", defaults.DownloadImages, "Download product images")
	flags.StringVar(&f.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
}

func (f *batchFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Headless = f.headless
	}
	if flags.Changed("browser-bin") {
		cfg.BrowserBin = f.browserBin
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = f.proxy
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if flags.Changed("delay") {
		cfg.Delay = f.delay
	}
	if flags.Changed("random-delay") {
		cfg.RandomDelay = f.randomDelay
	}
	if flags.Changed("checkpoint-every") {
		cfg.CheckpointEvery = f.checkpointEvery
	}
	if flags.Changed("images") {
		cfg.DownloadImages = f.images
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
}

var scrapeFlags struct {
	batchFlags
	designer []string
	niche    []string
	perBrand int
	refresh  bool
}

var refreshFlags struct {
	batchFlags
	urls []string
	all  bool
}

func init() {
	defaults := config.DefaultConfig()

	scrapeFlags.register(scrapeCmd)
	scrapeCmd.Flags().StringSliceVar(&scrapeFlags.designer, "designer", defaultDesignerBrands, "Designer brands to scrape")
	scrapeCmd.Flags().StringSliceVar(&scrapeFlags.niche, "niche", defaultNicheBrands, "Niche brands to scrape")
	scrapeCmd.Flags().IntVar(&scrapeFlags.perBrand, "per-brand", defaults.ItemsPerBrand, "Most popular items to take per brand")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.refresh, "refresh", false, "Let new extractions overwrite stored values instead of only filling gaps")
	rootCmd.AddCommand(scrapeCmd)

	refreshFlags.register(refreshCmd)
	refreshCmd.Flags().StringSliceVar(&refreshFlags.urls, "url", nil, "Item URLs to re-extract (default: records with missing votes or a truncated description)")
	refreshCmd.Flags().BoolVar(&refreshFlags.all, "all", false, "Re-extract every stored record")
	rootCmd.AddCommand(refreshCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--designer a,b] [--niche c,d]",
	Short: "Scrapes the most popular perfumes of each brand into the dataset.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		scrapeFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("per-brand") {
			cfg.ItemsPerBrand = scrapeFlags.perBrand
		}
		if scrapeFlags.refresh {
			cfg.Refresh = true
		}
		logger, err := setup(cfg)
		if err != nil {
			return err
		}

		targets := buildTargets(scrapeFlags.designer, scrapeFlags.niche, cfg.ItemsPerBrand)
		if len(targets) == 0 {
			return errors.New("no brands to scrape")
		}
		logger.Info("starting scrape",
			slog.String("base_url", cfg.BaseURL),
			slog.Int("brands", len(targets)),
			slog.Int("per_brand", cfg.ItemsPerBrand),
			slog.String("output", cfg.OutputFile),
		)

		return runBatch(cmd.Context(), cfg, logger, func(ctx context.Context, s *scraper.Scraper, p *pipeline.Pipeline) (*models.ScraperResult, error) {
			return s.Run(ctx, targets, p)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [--url <item-url>]...",
	Short: "Re-extracts stored records to fill missing votes and truncated descriptions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		refreshFlags.apply(cmd, cfg)
		cfg.Refresh = true
		logger, err := setup(cfg)
		if err != nil {
			return err
		}

		dataset, err := pipeline.LoadDataset(cfg.OutputFile)
		if err != nil {
			return err
		}
		items := refreshSelection(dataset, refreshFlags.urls, refreshFlags.all)
		if len(items) == 0 {
			logger.Info("nothing to refresh", slog.Int("records", dataset.Len()))
			return nil
		}
		logger.Info("starting refresh", slog.Int("items", len(items)), slog.String("output", cfg.OutputFile))

		return runBatch(cmd.Context(), cfg, logger, func(ctx context.Context, s *scraper.Scraper, p *pipeline.Pipeline) (*models.ScraperResult, error) {
			return s.Refresh(ctx, items, p)
		})
	},
}

// refreshSelection picks the records to re-extract. Explicit URLs win; unknown ones are
// extracted as new items.
func refreshSelection(dataset *pipeline.Dataset, urls []string, all bool) []*models.Perfume {
	if len(urls) > 0 {
		items := make([]*models.Perfume, 0, len(urls))
		for _, u := range urls {
			if rec, ok := dataset.Get(u); ok {
				items = append(items, rec)
				continue
			}
			items = append(items, &models.Perfume{URL: u})
		}
		return items
	}

	var items []*models.Perfume
	for _, rec := range dataset.Records() {
		if all || catalog.NeedsRefresh(rec) {
			items = append(items, rec)
		}
	}
	return items
}

type batchFunc func(ctx context.Context, s *scraper.Scraper, p *pipeline.Pipeline) (*models.ScraperResult, error)

// runBatch wires the dataset, writer, browser session and scraper, runs fn and reports the
// outcome. The dataset on disk is merged into, never replaced.
func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn batchFunc) error {
	dataset, err := pipeline.LoadDataset(cfg.OutputFile)
	if err != nil {
		return err
	}
	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	p := pipeline.NewPipeline(dataset, writer, cfg)

	session := browser.NewController(cfg, logger)
	defer func() {
		if err := session.Release(); err != nil {
			logger.Error("release browser", slog.Any("error", err))
		}
	}()

	opts := []scraper.Option{scraper.WithLogger(logger)}
	if cfg.DownloadImages {
		downloader, err := images.NewDownloader(cfg.ImageDir, cfg.UserAgent, cfg.PageTimeout)
		if err != nil {
			return fmt.Errorf("image downloader: %w", err)
		}
		opts = append(opts, scraper.WithImages(downloader))
	}
	s, err := scraper.NewScraper(cfg, session, opts...)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	stopMetrics := startMetricsServer(cfg.MetricsAddr, s.Metrics.Registry, logger)
	defer stopMetrics()

	result, runErr := fn(ctx, s, p)
	closeErr := p.Close()

	printSummary(os.Stdout, result, cfg.OutputFile, p.GetMetrics())

	if runErr != nil {
		return fmt.Errorf("scraping failed: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", closeErr)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// startMetricsServer exposes registry on addr and returns its shutdown func. An empty addr
// disables it.
func startMetricsServer(addr string, registry *prometheus.Registry, logger *slog.Logger) func() {
	if addr == "" || registry == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
