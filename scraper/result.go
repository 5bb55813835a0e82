package scraper

import (
	"time"

	"github.com/use-agent/parscrape/models"
)

// Result is a successful fetch. Exactly one of the mode-specific field
// groups is populated, selected by Mode.
type Result struct {
	Mode models.OutputMode

	// URL is the requested page; FinalURL is where navigation ended and
	// the base relative links were resolved against.
	URL        string
	FinalURL   string
	Title      string
	StatusCode int

	// Text mode.
	URLs []string
	Text string

	// Markdown mode.
	Markdown string

	Backend string
	Elapsed time.Duration
}
