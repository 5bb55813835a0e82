package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/parscrape/api/handler"
	"github.com/use-agent/parscrape/api/middleware"
	"github.com/use-agent/parscrape/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	/scrape: Auth (if enabled) → RateLimit
//
// GET / and GET /health stay outside auth so monitoring probes always work.
func NewRouter(f handler.Fetcher, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/", handler.Info(f))
	r.GET("/health", handler.Health(f, startTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(f))

	return r
}
