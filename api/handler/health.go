package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/parscrape/models"
)

// Health returns a handler for GET /health.
//
// Status is "degraded" while every bounded session slot is in use.
func Health(f Fetcher, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := f.Stats()

		status := "healthy"
		if stats.Max > 0 && stats.Active >= stats.Max {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			Version:        Version,
			ActiveSessions: stats.Active,
			MaxSessions:    stats.Max,
		})
	}
}

// Info returns a handler for GET /, describing the service and its routes.
func Info(f Fetcher) gin.HandlerFunc {
	resp := models.InfoResponse{
		Name:        "parscrape",
		Version:     Version,
		Description: "Render web pages in a real browser and return their links and text, or markdown",
		Backends:    f.Backends(),
		Endpoints: map[string]models.EndpointInfo{
			"health": {Method: http.MethodGet, Path: "/health", Description: "Liveness and session usage"},
			"scrape": {Method: http.MethodPost, Path: "/scrape", Description: "Fetch a URL and extract links and text, or markdown"},
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, resp)
	}
}
