package models

import (
	"fmt"
	"strings"
)

// Defaults applied to unset ScrapeRequest fields.
const (
	DefaultSettleDelay = 2
	DefaultTimeout     = 10
)

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required"`

	// Backend selects the browser engine: "rod" or "chromedp".
	// The legacy names "playwright" and "selenium" are accepted as aliases.
	// Default: "rod".
	Backend string `json:"backend,omitempty"`

	// SettleDelay is the fixed-delay wait in seconds. Default: 2. Range 0-30.
	SettleDelay *int `json:"settle_delay,omitempty"`

	// Timeout is the deadline in seconds spanning navigation, wait and
	// extraction. Default: 10. Range 1-60.
	Timeout *int `json:"timeout,omitempty"`

	// Headless runs the browser without a visible window. Default: true.
	Headless *bool `json:"headless,omitempty"`

	// WaitStrategy is one of fixed-delay, network-idle, none,
	// selector-present, text-present (or sleep, idle, none, selector, text).
	// Default: "fixed-delay".
	WaitStrategy string `json:"wait_strategy,omitempty"`

	// WaitTarget is the CSS selector or literal text to wait for.
	// Required for selector-present and text-present, rejected otherwise.
	WaitTarget string `json:"wait_target,omitempty"`

	// Output selects "text" (urls + visible text, default) or "markdown".
	Output string `json:"output,omitempty" binding:"omitempty,oneof=text markdown"`

	// IncludeImages keeps image references in markdown output. Default: true.
	IncludeImages *bool `json:"include_images,omitempty"`

	// MainContent runs readability before markdown conversion.
	MainContent bool `json:"main_content,omitempty"`

	// Headers are extra HTTP headers the browser sends with every request.
	Headers map[string]string `json:"headers,omitempty"`

	// Legacy field names, accepted for clients of the older API. Each one
	// fills its current counterpart when that is unset.
	FetchUsing   string `json:"fetch_using,omitempty"`   // backend
	SleepTime    *int   `json:"sleep_time,omitempty"`    // settle_delay
	WaitType     string `json:"wait_type,omitempty"`     // wait_strategy
	WaitSelector string `json:"wait_selector,omitempty"` // wait_target
}

// resolveLegacy copies legacy fields onto their current names. Setting both
// names to different values is rejected.
func (r *ScrapeRequest) resolveLegacy() error {
	pairs := []struct {
		legacy, current string
		dst             *string
		src             string
	}{
		{"fetch_using", "backend", &r.Backend, r.FetchUsing},
		{"wait_type", "wait_strategy", &r.WaitStrategy, r.WaitType},
		{"wait_selector", "wait_target", &r.WaitTarget, r.WaitSelector},
	}
	for _, p := range pairs {
		if p.src == "" {
			continue
		}
		if *p.dst != "" && *p.dst != p.src {
			return NewScrapeError(ErrCodeInvalidInput,
				fmt.Sprintf("%s and %s disagree; send only %s", p.legacy, p.current, p.current), nil)
		}
		*p.dst = p.src
	}

	if r.SleepTime != nil {
		if r.SettleDelay != nil && *r.SettleDelay != *r.SleepTime {
			return NewScrapeError(ErrCodeInvalidInput,
				"sleep_time and settle_delay disagree; send only settle_delay", nil)
		}
		r.SettleDelay = r.SleepTime
	}
	return nil
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Backend == "" {
		r.Backend = string(BackendRod)
	}
	if r.SettleDelay == nil {
		d := DefaultSettleDelay
		r.SettleDelay = &d
	}
	if r.Timeout == nil {
		t := DefaultTimeout
		r.Timeout = &t
	}
	if r.Headless == nil {
		t := true
		r.Headless = &t
	}
	if r.WaitStrategy == "" {
		r.WaitStrategy = string(WaitFixedDelay)
	}
	if r.Output == "" {
		r.Output = string(OutputText)
	}
	if r.IncludeImages == nil {
		t := true
		r.IncludeImages = &t
	}
}

// ToFetchConfig resolves legacy field names, applies defaults, resolves enum
// aliases and validates the result. The returned error is always an
// INVALID_INPUT ScrapeError.
func (r *ScrapeRequest) ToFetchConfig() (*FetchConfig, error) {
	if err := r.resolveLegacy(); err != nil {
		return nil, err
	}
	r.Defaults()

	backend, ok := ParseBackend(r.Backend)
	if !ok {
		return nil, NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("unknown backend %q: use rod or chromedp", r.Backend), nil)
	}
	strategy, ok := ParseWaitStrategy(r.WaitStrategy)
	if !ok {
		return nil, NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("unknown wait_strategy %q", r.WaitStrategy), nil)
	}

	cfg := &FetchConfig{
		URL:           r.URL,
		Backend:       backend,
		SettleDelay:   *r.SettleDelay,
		Timeout:       *r.Timeout,
		Headless:      *r.Headless,
		WaitStrategy:  strategy,
		WaitTarget:    strings.TrimSpace(r.WaitTarget),
		Output:        OutputMode(r.Output),
		IncludeImages: *r.IncludeImages,
		MainContent:   r.MainContent,
		Headers:       r.Headers,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
