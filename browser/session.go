package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/aluiziolira/go-scrape-perfumes/config"
)

// Controller owns a single stealth browser session. It is not safe for concurrent
// renders: the render protocol drives one tab sequentially.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger
	sleep  func(time.Duration)

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewController returns a Controller. The browser is launched lazily by Acquire.
func NewController(cfg *config.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Acquire launches the browser and opens the stealth tab if no session is live.
func (c *Controller) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(ctx)
}

func (c *Controller) acquireLocked(ctx context.Context) error {
	if c.page != nil {
		return nil
	}

	l := launcher.New().
		Headless(c.cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080").
		Set("lang", "en-US")
	if c.cfg.BrowserBin != "" {
		l = l.Bin(c.cfg.BrowserBin)
	}
	if c.cfg.ProxyURL != "" {
		l = l.Proxy(c.cfg.ProxyURL)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return ErrSessionStart{Err: fmt.Errorf("launch browser: %w", err)}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return ErrSessionStart{Err: fmt.Errorf("connect browser: %w", err)}
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return ErrSessionStart{Err: fmt.Errorf("open stealth page: %w", err)}
	}
	if _, err := page.EvalOnNewDocument(stealthPatchJS); err != nil {
		c.logger.Warn("stealth patch failed", slog.String("error", err.Error()))
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      c.cfg.UserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		c.logger.Warn("set user agent failed", slog.String("error", err.Error()))
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		c.logger.Warn("set viewport failed", slog.String("error", err.Error()))
	}

	c.launcher = l
	c.browser = b
	c.page = page
	c.logger.Info("browser session started", slog.Bool("headless", c.cfg.Headless))
	return nil
}

// Release tears the session down. It is safe to call on an idle Controller.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked()
}

func (c *Controller) releaseLocked() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
	}
	c.launcher = nil
	c.browser = nil
	c.page = nil
	return err
}

// Restart discards the current session and starts a fresh one.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.releaseLocked(); err != nil {
		c.logger.Debug("release before restart", slog.String("error", err.Error()))
	}
	c.logger.Info("restarting browser session")
	return c.acquireLocked(ctx)
}

// Render navigates to url, waits for the content marker (degrading to a fixed pause),
// runs the staged scroll and snapshots the DOM. A snapshot that looks like a block page
// is returned together with ErrBlocked.
func (c *Controller) Render(ctx context.Context, url string) (*Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acquireLocked(ctx); err != nil {
		return nil, err
	}
	page := c.page.Context(ctx)

	if err := c.navigate(page, url, readyMarker); err != nil {
		return nil, err
	}

	for _, step := range scrollPlan(c.cfg) {
		if _, err := page.Eval(step.js); err != nil {
			c.logger.Debug("scroll step failed", slog.String("url", url), slog.String("error", err.Error()))
		}
		c.sleep(step.pause)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, ErrNavigation{URL: url, Err: fmt.Errorf("read DOM: %w", err)}
	}
	rendered := &Rendered{URL: url, HTML: html, FetchedAt: time.Now()}
	if err := DetectBlock(url, html, c.cfg.MinContentBytes); err != nil {
		return rendered, err
	}

	if obj, err := page.Eval(descriptionJS); err == nil {
		rendered.DescriptionText = obj.Value.Str()
	}
	return rendered, nil
}

// RenderListing loads a group listing page. It skips the staged scroll: brand pages
// render their item grid without lazy sections.
func (c *Controller) RenderListing(ctx context.Context, url string) (*Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acquireLocked(ctx); err != nil {
		return nil, err
	}
	page := c.page.Context(ctx)

	if err := c.navigate(page, url, listingMarker); err != nil {
		return nil, err
	}
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err == nil {
		c.sleep(c.cfg.SettlePause)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, ErrNavigation{URL: url, Err: fmt.Errorf("read DOM: %w", err)}
	}
	rendered := &Rendered{URL: url, HTML: html, FetchedAt: time.Now()}
	if err := DetectBlock(url, html, c.cfg.MinContentBytes); err != nil {
		return rendered, err
	}
	return rendered, nil
}

// timeoutScope is the part of *rod.Page that bounds calls with a deadline.
type timeoutScope[P any] interface {
	Timeout(time.Duration) P
	CancelTimeout() P
}

// withTimeout runs fn on a clone of page bounded by d, then releases the clone's timer.
func withTimeout[P timeoutScope[P]](page P, d time.Duration, fn func(P) error) error {
	timed := page.Timeout(d)
	defer timed.CancelTimeout()
	return fn(timed)
}

func (c *Controller) navigate(page *rod.Page, url, marker string) error {
	err := withTimeout(page, c.cfg.PageTimeout, func(p *rod.Page) error {
		return p.Navigate(url)
	})
	if err != nil {
		return ErrNavigation{URL: url, Err: err}
	}

	err = withTimeout(page, c.cfg.PageTimeout, func(p *rod.Page) error {
		_, err := p.Element(marker)
		return err
	})
	if err != nil {
		c.logger.Debug("content marker not found, falling back to fixed wait",
			slog.String("url", url),
			slog.String("marker", marker),
		)
		c.sleep(c.cfg.ReadyFallback)
	}
	return nil
}

// LocateSection finds the vote widget titled label on the current page and returns its
// visible text. found is false when no styled heading carries that label.
func (c *Controller) LocateSection(ctx context.Context, label string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return "", false, fmt.Errorf("locate %s: no live session", label)
	}
	page := c.page.Context(ctx)

	obj, err := page.Eval(scrollToHeadingJS, label)
	if err != nil {
		return "", false, fmt.Errorf("locate %s: %w", label, err)
	}
	if !obj.Value.Bool() {
		return "", false, nil
	}
	c.sleep(c.cfg.VotePause)

	obj, err = page.Eval(headingBoxJS, label, maxBoxDepth)
	if err != nil {
		return "", false, fmt.Errorf("read %s box: %w", label, err)
	}
	if obj.Value.Nil() {
		return "", false, nil
	}
	return obj.Value.Str(), true, nil
}
