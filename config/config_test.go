package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Scraper.LaunchTimeout != 30*time.Second {
		t.Errorf("launch timeout = %v, want 30s", cfg.Scraper.LaunchTimeout)
	}
	if cfg.Scraper.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", cfg.Scraper.PollInterval)
	}
	if cfg.Scraper.MaxSessions != 0 {
		t.Errorf("max sessions = %d, want 0 (unbounded)", cfg.Scraper.MaxSessions)
	}
	if cfg.Browser.BlockedResourceTypes != nil {
		t.Errorf("blocked resources = %v, want none", cfg.Browser.BlockedResourceTypes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PARSCRAPE_PORT", "9100")
	t.Setenv("PARSCRAPE_NO_SANDBOX", "true")
	t.Setenv("PARSCRAPE_QUIET_WINDOW", "1s")
	t.Setenv("PARSCRAPE_MAX_SESSIONS", "4")
	t.Setenv("PARSCRAPE_BLOCKED_RESOURCES", "Image, Font ,")

	cfg := Load()

	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if !cfg.Browser.NoSandbox {
		t.Error("expected no-sandbox to be enabled")
	}
	if cfg.Scraper.QuietWindow != time.Second {
		t.Errorf("quiet window = %v, want 1s", cfg.Scraper.QuietWindow)
	}
	if cfg.Scraper.MaxSessions != 4 {
		t.Errorf("max sessions = %d, want 4", cfg.Scraper.MaxSessions)
	}
	want := []string{"Image", "Font"}
	if !reflect.DeepEqual(cfg.Browser.BlockedResourceTypes, want) {
		t.Errorf("blocked resources = %v, want %v", cfg.Browser.BlockedResourceTypes, want)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PARSCRAPE_PORT", "not-a-port")
	t.Setenv("PARSCRAPE_POLL_INTERVAL", "soon")

	cfg := Load()

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want fallback 8000", cfg.Server.Port)
	}
	if cfg.Scraper.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want fallback 250ms", cfg.Scraper.PollInterval)
	}
}
