package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/parscrape/config"
	"github.com/use-agent/parscrape/models"
	"github.com/use-agent/parscrape/scraper"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, cfg *models.FetchConfig) (*scraper.Result, error) {
	return &scraper.Result{Mode: cfg.Output, URL: cfg.URL, Text: "ok", URLs: []string{}, Backend: string(cfg.Backend)}, nil
}
func (stubFetcher) Stats() models.SessionStats { return models.SessionStats{} }
func (stubFetcher) Backends() []string         { return []string{"rod"} }

func testConfig(authEnabled bool) *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth = config.AuthConfig{Enabled: authEnabled, APIKeys: []string{"secret"}}
	return cfg
}

func do(r http.Handler, method, path, body string, headers map[string]string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(stubFetcher{}, testConfig(false), time.Now())

	if code := do(r, http.MethodGet, "/", "", nil); code != http.StatusOK {
		t.Errorf("GET / = %d", code)
	}
	if code := do(r, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Errorf("GET /health = %d", code)
	}
	if code := do(r, http.MethodPost, "/scrape", `{"url":"https://example.com"}`, nil); code != http.StatusOK {
		t.Errorf("POST /scrape = %d", code)
	}
	if code := do(r, http.MethodGet, "/scrape", "", nil); code != http.StatusNotFound {
		t.Errorf("GET /scrape = %d, want 404", code)
	}
}

func TestRouter_AuthProtectsOnlyScrape(t *testing.T) {
	r := NewRouter(stubFetcher{}, testConfig(true), time.Now())

	if code := do(r, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Errorf("GET /health = %d, want open", code)
	}
	body := `{"url":"https://example.com"}`
	if code := do(r, http.MethodPost, "/scrape", body, nil); code != http.StatusUnauthorized {
		t.Errorf("POST /scrape without key = %d, want 401", code)
	}
	if code := do(r, http.MethodPost, "/scrape", body, map[string]string{"X-API-Key": "secret"}); code != http.StatusOK {
		t.Errorf("POST /scrape with key = %d, want 200", code)
	}
}
