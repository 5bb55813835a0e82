package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"github.com/use-agent/parscrape/models"
)

// ChromedpDriver gives every session its own exec allocator, so each
// session is a separate Chrome process.
type ChromedpDriver struct{}

// NewChromedpDriver creates a ChromedpDriver.
func NewChromedpDriver() *ChromedpDriver { return &ChromedpDriver{} }

func (d *ChromedpDriver) Name() string { return string(models.BackendChromedp) }

// allocatorOptions builds the exec allocator flags for opts.
func allocatorOptions(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.NoSandbox {
		execOpts = append(execOpts, chromedp.NoSandbox)
	}
	if opts.BrowserBin != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.BrowserBin))
	}
	if opts.Proxy != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}
	return execOpts
}

// Open allocates a Chrome process and attaches one tab to it.
//
// The first chromedp.Run on a tab context starts the browser. It must run
// on the tab context itself (a derived timeout would tear the browser down
// when it fires), so the launch is raced against ctx instead.
func (d *ChromedpDriver) Open(ctx context.Context, opts LaunchOptions) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			slog.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			slog.Debug("chromedp error", "msg", fmt.Sprintf(format, args...))
		}),
	)

	s := &chromedpSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		monitor:     newNetworkMonitor(),
	}

	setup := []chromedp.Action{network.Enable()}
	if opts.Stealth {
		setup = append(setup, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		setup = append(setup, network.SetExtraHTTPHeaders(headers))
	}

	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tabCtx, setup...) }()

	select {
	case err := <-errc:
		if err != nil {
			_ = s.Close()
			return nil, launchError(err, "failed to launch browser")
		}
	case <-ctx.Done():
		_ = s.Close()
		return nil, launchError(ctx.Err(), "browser did not start before the launch deadline")
	}

	// Listening starts before any navigation so network-idle sees every request.
	chromedp.ListenTarget(tabCtx, s.monitor.observe)

	if c := chromedp.FromContext(tabCtx); c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			slog.Debug("chromedp: browser launched", "pid", proc.Pid)
		}
	}
	return s, nil
}

type chromedpSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	monitor     *networkMonitor
	status      int
	once        sync.Once
}

// run executes actions on the tab, bounded by the caller's ctx.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return categorizeError(err, "navigation to target URL failed")
	}
	if resp != nil {
		s.status = int(resp.Status)
		if s.status >= 400 {
			return statusError(s.status, url)
		}
	}
	return nil
}

func (s *chromedpSession) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	tick := quiet / 5
	if tick < 20*time.Millisecond {
		tick = 20 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if s.monitor.idleFor(quiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *chromedpSession) HasElement(ctx context.Context, selector string) (bool, error) {
	arg, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s) !== null`, arg), &found))
	return found, err
}

func (s *chromedpSession) HasText(ctx context.Context, text string) (bool, error) {
	arg, err := json.Marshal(text)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.body !== null && document.body.innerText.includes(%s)`, arg), &found))
	return found, err
}

func (s *chromedpSession) ReadContent(ctx context.Context) (*RawPage, error) {
	var rawHTML, location, title string
	err := s.run(ctx,
		chromedp.Evaluate(`document.documentElement ? document.documentElement.outerHTML : ""`, &rawHTML),
		chromedp.Location(&location),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}
	return &RawPage{
		HTML:       rawHTML,
		FinalURL:   location,
		Title:      title,
		StatusCode: s.status,
	}, nil
}

// Close cancels the tab, then the allocator. Cancelling the allocator kills
// Chrome, waits for it to exit and removes its temporary profile.
func (s *chromedpSession) Close() error {
	s.once.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
	})
	return nil
}

// networkMonitor counts in-flight requests from CDP network events.
type networkMonitor struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

func newNetworkMonitor() *networkMonitor {
	return &networkMonitor{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

func (m *networkMonitor) observe(ev interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		m.inflight[e.RequestID] = struct{}{}
		m.lastActivity = time.Now()
	case *network.EventLoadingFinished:
		delete(m.inflight, e.RequestID)
		m.lastActivity = time.Now()
	case *network.EventLoadingFailed:
		delete(m.inflight, e.RequestID)
		m.lastActivity = time.Now()
	}
}

// idleFor reports whether nothing has been in flight for at least quiet.
func (m *networkMonitor) idleFor(quiet time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight) == 0 && time.Since(m.lastActivity) >= quiet
}
