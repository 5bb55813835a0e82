package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/go-playground/validator/v10"
)

// Backend selects the browser-automation engine used for a fetch.
type Backend string

const (
	BackendRod      Backend = "rod"
	BackendChromedp Backend = "chromedp"
)

// WaitStrategy decides when a navigated page is ready to be read.
type WaitStrategy string

const (
	WaitFixedDelay      WaitStrategy = "fixed-delay"
	WaitNetworkIdle     WaitStrategy = "network-idle"
	WaitNone            WaitStrategy = "none"
	WaitSelectorPresent WaitStrategy = "selector-present"
	WaitTextPresent     WaitStrategy = "text-present"
)

// NeedsTarget reports whether the strategy matches against a wait target.
func (s WaitStrategy) NeedsTarget() bool {
	return s == WaitSelectorPresent || s == WaitTextPresent
}

// OutputMode selects which extraction transform runs on the page.
type OutputMode string

const (
	OutputText     OutputMode = "text"
	OutputMarkdown OutputMode = "markdown"
)

// Bounds for the integer-second fields of FetchConfig.
const (
	MaxSettleDelay = 30
	MinTimeout     = 1
	MaxTimeout     = 60
)

// FetchConfig is everything one fetch needs. Build it with
// ScrapeRequest.ToFetchConfig or by hand, then call Validate.
type FetchConfig struct {
	URL          string  `validate:"required"`
	Backend      Backend `validate:"oneof=rod chromedp"`
	SettleDelay  int     `validate:"min=0,max=30"` // seconds
	Timeout      int     `validate:"min=1,max=60"` // seconds
	Headless     bool
	WaitStrategy WaitStrategy `validate:"oneof=fixed-delay network-idle none selector-present text-present"`
	WaitTarget   string

	Output        OutputMode `validate:"oneof=text markdown"`
	IncludeImages bool
	MainContent   bool
	Headers       map[string]string
}

// Target is the wait target as validated and matched: WaitTarget without
// surrounding whitespace.
func (c *FetchConfig) Target() string {
	return strings.TrimSpace(c.WaitTarget)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config invariants. Every failure is an
// INVALID_INPUT ScrapeError so callers never launch a browser for it.
func (c *FetchConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewScrapeError(ErrCodeInvalidInput, describeValidation(err), err)
	}

	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("invalid URL: %s. URL must start with http:// or https://", c.URL), err)
	}

	target := c.Target()
	switch {
	case c.WaitStrategy.NeedsTarget() && target == "":
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("wait_target is required when wait_strategy is '%s'", c.WaitStrategy), nil)
	case !c.WaitStrategy.NeedsTarget() && target != "":
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("wait_target is not allowed when wait_strategy is '%s'", c.WaitStrategy), nil)
	}

	if c.WaitStrategy == WaitSelectorPresent {
		if _, err := cascadia.Parse(target); err != nil {
			return NewScrapeError(ErrCodeInvalidInput,
				fmt.Sprintf("wait_target %q is not a valid CSS selector", target), err)
		}
	}

	return nil
}

// describeValidation renders validator errors as one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// ParseBackend accepts the canonical backend names plus the legacy
// "playwright" and "selenium" spellings.
func ParseBackend(s string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rod", "playwright":
		return BackendRod, true
	case "chromedp", "selenium":
		return BackendChromedp, true
	}
	return "", false
}

// ParseWaitStrategy accepts the canonical strategy names plus the short
// legacy forms (sleep, idle, none, selector, text).
func ParseWaitStrategy(s string) (WaitStrategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed-delay", "sleep":
		return WaitFixedDelay, true
	case "network-idle", "idle":
		return WaitNetworkIdle, true
	case "none":
		return WaitNone, true
	case "selector-present", "selector":
		return WaitSelectorPresent, true
	case "text-present", "text":
		return WaitTextPresent, true
	}
	return "", false
}
