package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/browser"
	"github.com/aluiziolira/go-scrape-perfumes/config"
)

// Sleeper blocks for d. Cooldowns are not interruptible; cancellation is honoured between
// items instead.
type Sleeper func(d time.Duration)

type restarter interface {
	Restart(ctx context.Context) error
}

// retryManager drives one unit of work through Attempting → Success | Failed. Blocked
// failures cool down longer and always restart the session; transient ones only pause.
type retryManager struct {
	cfg     *config.Config
	session restarter
	metrics *Metrics
	sleep   Sleeper
	logger  *slog.Logger

	totalRetries int
	restarts     int
	errorsByType map[string]int
}

func newRetryManager(cfg *config.Config, session restarter, metrics *Metrics, sleep Sleeper, logger *slog.Logger) *retryManager {
	return &retryManager{
		cfg:          cfg,
		session:      session,
		metrics:      metrics,
		sleep:        sleep,
		logger:       logger,
		errorsByType: make(map[string]int),
	}
}

// Do runs fn until it succeeds or the retry budget is spent. The budget is decremented
// per failure regardless of kind. Session-start and persistence failures are returned
// as-is, immediately; an exhausted budget yields ErrItemFailed.
//
// fn and session restarts run detached from ctx's cancellation, so an attempt in flight
// always completes. Cancelling ctx only prevents the next retry: Do then returns ctx.Err().
func (rm *retryManager) Do(ctx context.Context, url string, fn func(ctx context.Context) error) error {
	work := context.WithoutCancel(ctx)
	attempts := rm.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := fn(work)
		if err == nil {
			return nil
		}

		label := errorTypeLabel(err)
		rm.errorsByType[label]++
		rm.metrics.IncError(label)

		kind := classifyError(err)
		if kind == kindSession || kind == kindFatal {
			return err
		}
		if attempt >= attempts {
			return ErrItemFailed{URL: url, Kind: kind, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := rm.backoff(kind, attempt)
		rm.logger.Warn("attempt failed, retrying",
			slog.String("url", url),
			slog.String("kind", string(kind)),
			slog.Int("attempt", attempt),
			slog.Int("remaining", attempts-attempt),
			slog.Duration("cooldown", delay),
			slog.Any("error", err),
		)
		rm.totalRetries++
		rm.metrics.IncRetries()
		rm.metrics.IncCooldown(string(kind))
		rm.sleep(delay)

		if kind == kindBlocked {
			if err := rm.restart(work); err != nil {
				return err
			}
		}
	}
}

// restart replaces the session. Failure to bring a new one up is fatal to the run.
func (rm *retryManager) restart(ctx context.Context) error {
	if err := rm.session.Restart(ctx); err != nil {
		if classifyError(err) == kindSession {
			return err
		}
		return browser.ErrSessionStart{Err: err}
	}
	rm.restarts++
	rm.metrics.IncRestart()
	return nil
}

func (rm *retryManager) backoff(kind errorKind, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.TransientCooldown
	if kind == kindBlocked {
		base = rm.cfg.BlockedCooldown
	}
	if base <= 0 {
		return 0
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
