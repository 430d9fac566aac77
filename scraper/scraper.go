package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-perfumes/browser"
	"github.com/aluiziolira/go-scrape-perfumes/config"
	"github.com/aluiziolira/go-scrape-perfumes/models"
	"github.com/aluiziolira/go-scrape-perfumes/parser"
	"github.com/aluiziolira/go-scrape-perfumes/pipeline"
	"github.com/aluiziolira/go-scrape-perfumes/votes"
)

// Session is the browser surface the scraper drives. *browser.Controller implements it.
type Session interface {
	Acquire(ctx context.Context) error
	Render(ctx context.Context, url string) (*browser.Rendered, error)
	RenderListing(ctx context.Context, url string) (*browser.Rendered, error)
	LocateSection(ctx context.Context, label string) (string, bool, error)
	Restart(ctx context.Context) error
	Release() error
}

// ImageFetcher stores a record's product image locally and returns the path.
type ImageFetcher interface {
	Fetch(ctx context.Context, rec *models.Perfume) (string, error)
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithSleeper replaces wall-clock sleeping, mainly for tests.
func WithSleeper(sleep Sleeper) Option {
	return func(s *Scraper) { s.sleep = sleep }
}

// WithJitter replaces the random part of the inter-item pause.
func WithJitter(jitter func(max time.Duration) time.Duration) Option {
	return func(s *Scraper) { s.jitter = jitter }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) { s.logger = logger }
}

// WithImages enables local image storage for every successful item.
func WithImages(fetcher ImageFetcher) Option {
	return func(s *Scraper) { s.images = fetcher }
}

// Scraper is the batch orchestrator. It runs strictly one item at a time over a single
// session.
type Scraper struct {
	cfg     *config.Config
	session Session
	votes   *votes.Extractor
	images  ImageFetcher
	Metrics *Metrics

	sleep  Sleeper
	jitter func(max time.Duration) time.Duration
	logger *slog.Logger

	retry    *retryManager
	resolver *resolver
	visited  *lru.Cache[string, struct{}]
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, session Session, opts ...Option) (*Scraper, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	s := &Scraper{
		cfg:     cfg,
		session: session,
		Metrics: NewMetrics(),
		sleep:   time.Sleep,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return rand.N(max)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	visited, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create visited set: %w", err)
	}
	s.visited = visited
	s.votes = votes.NewExtractor(session, s.logger)
	s.retry = newRetryManager(cfg, session, s.Metrics, s.sleep, s.logger)
	s.resolver, err = newResolver(cfg.BaseURL, session, s.retry, s.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run resolves every target group and extracts its items into p. Item and group failures
// are recorded and skipped; only session-start and persistence failures end the run
// early. The dataset is checkpointed at the end in every case except a persistence failure.
func (s *Scraper) Run(ctx context.Context, targets []models.Target, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	b := s.newBatch(p)
	if err := s.acquire(ctx); err != nil {
		return b.finish(err)
	}
	err := b.runTargets(ctx, targets)
	return b.finish(err)
}

// Refresh re-extracts known item URLs, outside any group.
func (s *Scraper) Refresh(ctx context.Context, items []*models.Perfume, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	b := s.newBatch(p)
	err := s.acquire(ctx)
	if err != nil {
		return b.finish(err)
	}
	for _, item := range items {
		var stop bool
		stop, err = b.item(ctx, item.URL, models.Target{Brand: item.Brand, Category: item.Category})
		if stop {
			break
		}
	}
	return b.finish(err)
}

func (s *Scraper) acquire(ctx context.Context) error {
	if err := s.session.Acquire(ctx); err != nil {
		if isFatal(err) {
			return err
		}
		return browser.ErrSessionStart{Err: err}
	}
	return nil
}

type batch struct {
	s      *Scraper
	p      *pipeline.Pipeline
	result *models.ScraperResult

	consecutive int
	started     bool
}

func (s *Scraper) newBatch(p *pipeline.Pipeline) *batch {
	return &batch{
		s: s,
		p: p,
		result: &models.ScraperResult{
			StartTime:    time.Now(),
			ErrorsByType: make(map[string]int),
		},
	}
}

func (b *batch) runTargets(ctx context.Context, targets []models.Target) error {
	for _, target := range targets {
		if ctx.Err() != nil {
			b.result.Aborted = true
			return nil
		}
		if target.Limit <= 0 {
			target.Limit = b.s.cfg.ItemsPerBrand
		}

		urls, err := b.s.resolver.Resolve(ctx, target)
		if err != nil {
			if isFatal(err) {
				return err
			}
			b.s.logger.Warn("group resolved to no items",
				slog.String("brand", target.Brand),
				slog.Any("error", err),
			)
			b.result.GroupsEmpty = append(b.result.GroupsEmpty, target.Brand)
			continue
		}

		succeeded := len(b.result.Succeeded)
		for _, url := range urls {
			stop, err := b.item(ctx, url, target)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		if len(b.result.Succeeded) > succeeded {
			b.result.GroupsSucceeded = append(b.result.GroupsSucceeded, target.Brand)
		}
	}
	return nil
}

// item extracts one URL under the resilience policy. stop is true when the run must end,
// either because ctx was cancelled or because err is fatal.
func (b *batch) item(ctx context.Context, url string, target models.Target) (stop bool, err error) {
	s := b.s
	if ctx.Err() != nil {
		b.result.Aborted = true
		return true, nil
	}
	if s.visited.Contains(url) {
		b.result.Skipped++
		return false, nil
	}

	if b.consecutive >= s.cfg.FailureThreshold {
		if err := b.rateLimitCooldown(ctx); err != nil {
			if errors.Is(err, ctx.Err()) {
				b.result.Aborted = true
				return true, nil
			}
			return true, err
		}
	}
	if b.started {
		s.sleep(s.cfg.Delay + s.jitter(s.cfg.RandomDelay))
		if ctx.Err() != nil {
			b.result.Aborted = true
			return true, nil
		}
	}
	b.started = true

	var rec *models.Perfume
	err = s.retry.Do(ctx, url, func(ctx context.Context) error {
		var err error
		rec, err = s.extract(ctx, url, target)
		return err
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Interrupted between attempts; the item is neither done nor failed.
		b.result.Aborted = true
		return true, nil
	}
	s.visited.Add(url)

	if err != nil {
		if isFatal(err) {
			return true, err
		}
		var failed ErrItemFailed
		kind := string(kindTransient)
		if errors.As(err, &failed) {
			kind = string(failed.Kind)
		}
		b.result.Failed = append(b.result.Failed, models.ItemFailure{
			URL:   url,
			Brand: target.Brand,
			Kind:  kind,
			Err:   err.Error(),
		})
		b.consecutive++
		s.Metrics.IncItem("failed")
		s.logger.Error("item failed", slog.String("url", url), slog.Any("error", err))
		return false, nil
	}
	b.consecutive = 0

	if s.images != nil && rec.ImageURL != "" {
		if local, err := s.images.Fetch(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Warn("image download failed", slog.String("url", rec.ImageURL), slog.Any("error", err))
		} else {
			rec.ImageLocal = local
		}
	}

	before := b.p.Checkpoints()
	if err := b.p.Process(rec); err != nil {
		return true, err
	}
	if b.p.Checkpoints() > before {
		s.Metrics.IncCheckpoint()
	}
	b.result.Succeeded = append(b.result.Succeeded, url)
	s.Metrics.IncItem("succeeded")
	return false, nil
}

func (b *batch) rateLimitCooldown(ctx context.Context) error {
	s := b.s
	s.logger.Warn("consecutive failures reached threshold, cooling down",
		slog.Int("failures", b.consecutive),
		slog.Duration("cooldown", s.cfg.RateLimitCooldown),
	)
	s.Metrics.IncCooldown("rate_limit")
	s.sleep(s.cfg.RateLimitCooldown)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := s.retry.restart(ctx); err != nil {
		return err
	}
	b.consecutive = 0
	return nil
}

func (b *batch) finish(runErr error) (*models.ScraperResult, error) {
	s := b.s
	result := b.result

	var persistence pipeline.ErrPersistence
	if !errors.As(runErr, &persistence) {
		if err := b.p.Checkpoint(); err != nil {
			s.logger.Error("final checkpoint failed", slog.Any("error", err))
			if runErr == nil {
				runErr = err
			}
		} else {
			s.Metrics.IncCheckpoint()
		}
	}

	result.EndTime = time.Now()
	result.RetryCount = s.retry.totalRetries
	result.RestartCount = s.retry.restarts
	result.Checkpoints = b.p.Checkpoints()
	result.DatasetSize = b.p.Len()
	for k, v := range s.retry.errorsByType {
		result.ErrorsByType[k] = v
	}
	return result, runErr
}

// extract renders url and runs both extractors over the result.
func (s *Scraper) extract(ctx context.Context, url string, target models.Target) (*models.Perfume, error) {
	start := time.Now()
	rendered, err := s.session.Render(ctx, url)
	s.Metrics.ObserveRender(time.Since(start))
	if err != nil {
		var blocked browser.ErrBlocked
		if errors.As(err, &blocked) || isFatal(err) {
			return nil, err
		}
		return nil, ErrTransient{Err: err}
	}

	res := parser.Extract(parser.Content{
		URL:             url,
		HTML:            rendered.HTML,
		DescriptionText: rendered.DescriptionText,
	})
	rec := res.Record
	if rec.Name == "" {
		return nil, ErrTransient{Err: fmt.Errorf("%s rendered without a title", url)}
	}
	s.votes.ExtractAll(ctx, rec)
	rec.Category = target.Category

	if len(res.Missing) > 0 {
		s.logger.Warn("record incomplete",
			slog.String("url", url),
			slog.String("name", rec.Name),
			slog.Any("missing", res.Missing),
		)
	} else {
		s.logger.Info("record complete",
			slog.String("url", url),
			slog.String("name", rec.Name),
			slog.String("brand", rec.Brand),
		)
	}
	if missing := rec.MissingVotes(); len(missing) > 0 {
		s.logger.Debug("vote data missing", slog.String("url", url), slog.Any("missing", missing))
	}
	return rec, nil
}
