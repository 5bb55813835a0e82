package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/parscrape/api"
	"github.com/use-agent/parscrape/cleaner"
	"github.com/use-agent/parscrape/config"
	"github.com/use-agent/parscrape/engine"
	"github.com/use-agent/parscrape/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("parscrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Scraper.MaxSessions,
	)

	// ── 3. Initialise the fetch pipeline ────────────────────────────
	// No browser runs until a request arrives; every fetch launches and
	// tears down its own.
	drivers := []engine.Driver{
		engine.NewRodDriver(),
		engine.NewChromedpDriver(),
	}
	sc := scraper.NewScraper(drivers, cleaner.NewCleaner(), cfg.Browser, cfg.Scraper,
		scraper.WithHooks(scraper.Hooks{
			OnAcquire: func(backend string) { slog.Debug("browser session opened", "backend", backend) },
			OnRelease: func(backend string) { slog.Debug("browser session closed", "backend", backend) },
		}),
	)

	// ── 4. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, cfg, time.Now())

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight fetches close their own browsers; give them the longest
	// possible fetch to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.LaunchTimeout+60*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err, "activeSessions", sc.ActiveSessions())
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("parscrape stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
