package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/parscrape/models"
	"github.com/ysmood/gson"
)

// RodDriver launches one leakless Chromium process per session and drives
// it through go-rod.
type RodDriver struct{}

// NewRodDriver creates a RodDriver.
func NewRodDriver() *RodDriver { return &RodDriver{} }

func (d *RodDriver) Name() string { return string(models.BackendRod) }

type launchResult struct {
	controlURL string
	err        error
}

// Open launches Chromium and opens a single tab.
//
// Lifecycle:
//
//  1. Launch       – raced against ctx; a late launch is killed in the background
//  2. Connect      – CDP websocket to the new process
//  3. Page         – one tab for this session only
//  4. Stealth      – navigator.webdriver masking (before any navigation)
//  5. Headers / UA – applied to the tab
//  6. Hijack       – resource-type blocking (before any navigation)
//
// Any failure after step 1 kills the process before returning.
func (d *RodDriver) Open(ctx context.Context, opts LaunchOptions) (Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(true)

	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	// ── 1. Launch ────────────────────────────────────────────────────
	done := make(chan launchResult, 1)
	go func() {
		u, err := l.Launch()
		done <- launchResult{controlURL: u, err: err}
	}()

	var controlURL string
	select {
	case res := <-done:
		if res.err != nil {
			l.Kill()
			l.Cleanup()
			return nil, launchError(res.err, "failed to launch browser")
		}
		controlURL = res.controlURL
	case <-ctx.Done():
		go func() {
			<-done
			l.Kill()
			l.Cleanup()
		}()
		return nil, launchError(ctx.Err(), "browser did not start before the launch deadline")
	}
	slog.Debug("rod: browser launched", "controlURL", controlURL, "pid", l.PID())

	s := &rodSession{launcher: l}

	// ── 2. Connect ───────────────────────────────────────────────────
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = s.Close()
		return nil, launchError(err, "failed to connect to browser")
	}
	s.browser = browser

	// ── 3. Page ──────────────────────────────────────────────────────
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, launchError(err, "failed to open browser tab")
	}
	s.page = page

	// ── 4. Stealth ───────────────────────────────────────────────────
	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("rod: stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 5. Headers / UA ──────────────────────────────────────────────
	if len(opts.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(opts.Headers)}).Call(page); err != nil {
			slog.Warn("rod: failed to set extra headers", "error", err)
		}
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			slog.Warn("rod: failed to override user agent", "error", err)
		}
	}

	// ── 6. Hijack ────────────────────────────────────────────────────
	s.router = setupHijack(page, opts.BlockedResourceTypes)

	return s, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	status   int
	once     sync.Once
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, "page did not finish loading")
	}

	// The performance API exposes the document's status without enabling
	// Network events, which would clash with the hijack router.
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return categorizeError(err, "failed to read navigation status")
	}
	s.status = res.Value.Int()
	if s.status >= 400 {
		return statusError(s.status, url)
	}
	return nil
}

func (s *rodSession) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	wait := s.page.Context(ctx).WaitRequestIdle(quiet, nil, nil, nil)
	wait()
	return ctx.Err()
}

func (s *rodSession) HasElement(ctx context.Context, selector string) (bool, error) {
	has, _, err := s.page.Context(ctx).Has(selector)
	return has, err
}

func (s *rodSession) HasText(ctx context.Context, text string) (bool, error) {
	res, err := s.page.Context(ctx).Eval(
		`(t) => document.body !== null && document.body.innerText.includes(t)`, text)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (s *rodSession) ReadContent(ctx context.Context) (*RawPage, error) {
	p := s.page.Context(ctx)

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	info, err := p.Info()
	if err != nil {
		return nil, categorizeError(err, "failed to read page location")
	}

	return &RawPage{
		HTML:       rawHTML,
		FinalURL:   info.URL,
		Title:      info.Title,
		StatusCode: s.status,
	}, nil
}

// Close stops the hijack router, asks the browser to exit, then kills the
// process group and removes its profile directory.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				slog.Debug("rod: browser close returned error", "error", err)
			}
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return nil
}
