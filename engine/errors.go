package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/parscrape/models"
)

// categorizeError wraps raw errors into typed ScrapeErrors so the
// orchestrator and API layer can classify them.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// launchError reports a browser that could not be started or connected to,
// including one that did not come up before the launch deadline.
func launchError(err error, msg string) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeBrowserLaunch, msg, err)
}

// statusError reports a navigation that reached the server but ended in an
// HTTP error status.
func statusError(status int, url string) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeNavigation,
		fmt.Sprintf("target responded with HTTP %d", status),
		fmt.Errorf("GET %s: status %d", url, status))
}
