package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/use-agent/parscrape/cleaner"
	"github.com/use-agent/parscrape/config"
	"github.com/use-agent/parscrape/engine"
	"github.com/use-agent/parscrape/models"
	"github.com/use-agent/parscrape/waiter"
)

// Hooks observe browser session acquisition and release. Both are called
// synchronously and must not block.
type Hooks struct {
	OnAcquire func(backend string)
	OnRelease func(backend string)
}

// Scraper runs fetches. Every fetch opens its own browser session and
// closes it before returning; nothing is pooled or shared between calls.
// It is safe for concurrent use.
type Scraper struct {
	drivers    map[models.Backend]engine.Driver
	cleaner    *cleaner.Cleaner
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	hooks      Hooks
	sessions   *semaphore.Weighted
	active     atomic.Int32
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHooks installs session acquire/release hooks.
func WithHooks(h Hooks) Option {
	return func(s *Scraper) { s.hooks = h }
}

// NewScraper wires the drivers (keyed by Name) to the extraction pipeline.
// A positive scraperCfg.MaxSessions bounds concurrent sessions.
func NewScraper(drivers []engine.Driver, c *cleaner.Cleaner, browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, opts ...Option) *Scraper {
	s := &Scraper{
		drivers:    make(map[models.Backend]engine.Driver, len(drivers)),
		cleaner:    c,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}
	for _, d := range drivers {
		s.drivers[models.Backend(d.Name())] = d
	}
	if scraperCfg.MaxSessions > 0 {
		s.sessions = semaphore.NewWeighted(int64(scraperCfg.MaxSessions))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backends lists the registered backend names.
func (s *Scraper) Backends() []string {
	names := make([]string, 0, len(s.drivers))
	for _, b := range []models.Backend{models.BackendRod, models.BackendChromedp} {
		if _, ok := s.drivers[b]; ok {
			names = append(names, string(b))
		}
	}
	return names
}

// ActiveSessions returns the number of browser sessions currently open.
func (s *Scraper) ActiveSessions() int {
	return int(s.active.Load())
}

// Stats returns a snapshot of session usage.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		Active: s.ActiveSessions(),
		Max:    s.scraperCfg.MaxSessions,
	}
}

// Fetch loads cfg.URL in a fresh browser session and extracts it in the
// configured output mode.
//
// Lifecycle:
//
//  1. Validate   – invalid configs fail before any browser starts
//  2. Open       – bounded by LaunchTimeout, not by the fetch deadline
//  3. DEFER      – close the session on every path
//  4. Deadline   – cfg.Timeout seconds spanning steps 5-8
//  5. Navigate
//  6. Wait       – the configured wait strategy
//  7. Read       – serialized DOM + final URL
//  8. Extract    – text or markdown
//
// The returned error is always a *models.ScrapeError. Once the deadline has
// passed the error is a timeout, whichever step was running. Nothing is
// retried.
func (s *Scraper) Fetch(ctx context.Context, cfg *models.FetchConfig) (*Result, error) {
	start := time.Now()

	// ── 1. Validate ───────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	drv, ok := s.drivers[cfg.Backend]
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("backend %q is not available", cfg.Backend), nil)
	}

	log := slog.With("url", cfg.URL, "backend", cfg.Backend, "strategy", cfg.WaitStrategy)

	// ── 2. Open ───────────────────────────────────────────────────────
	sess, err := s.acquire(ctx, drv, cfg)
	if err != nil {
		log.Warn("fetch: session not opened", "error", err)
		return nil, err
	}

	// ── 3. DEFER: release ─────────────────────────────────────────────
	defer s.release(drv, sess)

	// ── 4. Deadline ───────────────────────────────────────────────────
	timeout := time.Duration(cfg.Timeout) * time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.run(fetchCtx, sess, cfg, log)
	if err == nil && fetchCtx.Err() != nil {
		// Finished past the deadline; the capture is discarded.
		err = fetchCtx.Err()
	}
	if err != nil {
		se := classify(fetchCtx, err, cfg.Timeout)
		log.Warn("fetch failed", "code", se.Code, "error", se, "elapsed", time.Since(start))
		return nil, se
	}

	result.URL = cfg.URL
	result.Backend = drv.Name()
	result.Elapsed = time.Since(start)
	log.Info("fetch complete", "mode", result.Mode, "elapsed", result.Elapsed)
	return result, nil
}

// acquire takes a session slot (when bounded) and opens a browser session,
// both under LaunchTimeout.
func (s *Scraper) acquire(ctx context.Context, drv engine.Driver, cfg *models.FetchConfig) (engine.Session, error) {
	launchCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.LaunchTimeout)
	defer cancel()

	if s.sessions != nil {
		if err := s.sessions.Acquire(launchCtx, 1); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout,
				"no browser session slot became available", err)
		}
	}

	sess, err := drv.Open(launchCtx, s.launchOptions(cfg))
	if err != nil {
		if s.sessions != nil {
			s.sessions.Release(1)
		}
		if ctx.Err() != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout,
				"request canceled before the browser started", ctx.Err())
		}
		se := models.AsScrapeError(err)
		if se.Code == models.ErrCodeInternal {
			se = models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to launch browser", err)
		}
		return nil, se
	}

	s.active.Add(1)
	if s.hooks.OnAcquire != nil {
		s.hooks.OnAcquire(drv.Name())
	}
	return sess, nil
}

func (s *Scraper) release(drv engine.Driver, sess engine.Session) {
	if err := sess.Close(); err != nil {
		slog.Debug("session close returned error", "backend", drv.Name(), "error", err)
	}
	s.active.Add(-1)
	if s.hooks.OnRelease != nil {
		s.hooks.OnRelease(drv.Name())
	}
	if s.sessions != nil {
		s.sessions.Release(1)
	}
}

func (s *Scraper) launchOptions(cfg *models.FetchConfig) engine.LaunchOptions {
	opts := engine.LaunchOptions{
		Headless:             cfg.Headless,
		NoSandbox:            s.browserCfg.NoSandbox,
		BrowserBin:           s.browserCfg.BrowserBin,
		Proxy:                s.browserCfg.DefaultProxy,
		Stealth:              s.browserCfg.Stealth,
		UserAgent:            s.browserCfg.UserAgent,
		Headers:              cfg.Headers,
		BlockedResourceTypes: s.browserCfg.BlockedResourceTypes,
	}
	// Request interception and request-idle tracking share the Fetch
	// domain; they cannot both be active on one page.
	if cfg.WaitStrategy == models.WaitNetworkIdle {
		opts.BlockedResourceTypes = nil
	}
	return opts
}

// run performs steps 5-8 under ctx.
func (s *Scraper) run(ctx context.Context, sess engine.Session, cfg *models.FetchConfig, log *slog.Logger) (*Result, error) {
	// ── 5. Navigate ───────────────────────────────────────────────────
	if err := sess.Navigate(ctx, cfg.URL); err != nil {
		return nil, err
	}

	// ── 6. Wait ───────────────────────────────────────────────────────
	w := waiter.New(sess, waiter.Config{
		Strategy:     cfg.WaitStrategy,
		Target:       cfg.Target(),
		SettleDelay:  time.Duration(cfg.SettleDelay) * time.Second,
		PollInterval: s.scraperCfg.PollInterval,
		QuietWindow:  s.scraperCfg.QuietWindow,
	}, waiter.WithObserver(func(from, to waiter.State) {
		log.Debug("wait transition", "from", from, "to", to)
	}))
	if err := w.Run(ctx); err != nil {
		return nil, err
	}

	// ── 7. Read ───────────────────────────────────────────────────────
	page, err := sess.ReadContent(ctx)
	if err != nil {
		return nil, err
	}
	base := page.FinalURL
	if base == "" {
		base = cfg.URL
	}

	// ── 8. Extract ────────────────────────────────────────────────────
	result := &Result{
		Mode:       cfg.Output,
		FinalURL:   base,
		Title:      page.Title,
		StatusCode: page.StatusCode,
	}
	switch cfg.Output {
	case models.OutputMarkdown:
		md, err := s.cleaner.ToMarkdown(page.HTML, base, cleaner.MarkdownOptions{
			IncludeImages: cfg.IncludeImages,
			MainContent:   cfg.MainContent,
		})
		if err != nil {
			return nil, err
		}
		result.Markdown = md
	default:
		urls, text, err := s.cleaner.ExtractURLsAndText(page.HTML, base)
		if err != nil {
			return nil, err
		}
		result.URLs = urls
		result.Text = text
	}
	return result, nil
}

// classify turns a step failure into the ScrapeError reported to the caller.
func classify(fetchCtx context.Context, err error, timeoutSecs int) *models.ScrapeError {
	if fetchCtx.Err() != nil {
		if se := models.AsScrapeError(err); se.Code == models.ErrCodeTimeout {
			return se
		}
		return models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("fetch did not finish within %ds", timeoutSecs), err)
	}
	return models.AsScrapeError(err)
}
