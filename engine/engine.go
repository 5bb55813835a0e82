package engine

import (
	"context"
	"time"
)

// Driver launches browser sessions for one automation backend.
type Driver interface {
	// Name returns the backend identifier (e.g. "rod", "chromedp").
	Name() string

	// Open starts (or connects to) a browser process and returns a session
	// bound to it. Failures are BROWSER_LAUNCH_FAILED ScrapeErrors.
	Open(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session is one running browser instance owned by a single fetch.
// Implementations are not safe for concurrent use.
type Session interface {
	// Navigate loads url and returns once the load event fired.
	// DNS, connection, TLS and HTTP >= 400 failures are NAVIGATION_FAILED.
	Navigate(ctx context.Context, url string) error

	// WaitNetworkIdle blocks until no request has been in flight for quiet.
	WaitNetworkIdle(ctx context.Context, quiet time.Duration) error

	// HasElement reports whether the DOM currently matches selector.
	HasElement(ctx context.Context, selector string) (bool, error)

	// HasText reports whether the rendered text currently contains text.
	HasText(ctx context.Context, text string) (bool, error)

	// ReadContent captures the serialized document.
	ReadContent(ctx context.Context) (*RawPage, error)

	// Close releases the browser process. It is idempotent and never fails.
	Close() error
}

// LaunchOptions configure a browser process at Open time.
type LaunchOptions struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	Proxy      string
	Stealth    bool
	UserAgent  string

	// Headers are sent with every request the page makes.
	Headers map[string]string

	// BlockedResourceTypes are request types refused by backends that
	// support interception ("Image", "Stylesheet", "Font", "Media", "Script").
	BlockedResourceTypes []string
}

// RawPage is the navigated document as captured from the browser.
type RawPage struct {
	HTML       string
	FinalURL   string
	Title      string
	StatusCode int
}
