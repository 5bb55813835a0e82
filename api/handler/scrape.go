package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/parscrape/models"
	"github.com/use-agent/parscrape/scraper"
)

// Version is reported by GET / and GET /health.
const Version = "0.1.0"

// Fetcher is the pipeline the handlers drive. *scraper.Scraper implements it.
type Fetcher interface {
	Fetch(ctx context.Context, cfg *models.FetchConfig) (*scraper.Result, error)
	Stats() models.SessionStats
	Backends() []string
}

// Scrape returns a handler for POST /scrape.
//
//  1. Bind JSON, apply defaults, validate → 400 on any problem.
//  2. Fetcher.Fetch → one browser session, wait, extract.
//  3. Render the text or markdown payload.
func Scrape(f Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		cfg, err := req.ToFetchConfig()
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 2. Fetch ────────────────────────────────────────────────
		result, err := f.Fetch(c.Request.Context(), cfg)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		elapsed := elapsedSeconds(result.Elapsed)
		info := models.PageInfo{
			FinalURL:   result.FinalURL,
			Title:      result.Title,
			StatusCode: result.StatusCode,
		}
		if result.Mode == models.OutputMarkdown {
			c.JSON(http.StatusOK, models.MarkdownResponse{
				URL:            result.URL,
				Markdown:       result.Markdown,
				Backend:        result.Backend,
				ElapsedSeconds: elapsed,
				PageInfo:       info,
			})
			return
		}
		c.JSON(http.StatusOK, models.TextResponse{
			URL:            result.URL,
			URLs:           result.URLs,
			Text:           result.Text,
			Backend:        result.Backend,
			ElapsedSeconds: elapsed,
			PageInfo:       info,
		})
	}
}

// elapsedSeconds rounds d to milliseconds and returns seconds.
func elapsedSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{
		Error: scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeBrowserLaunch, models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
