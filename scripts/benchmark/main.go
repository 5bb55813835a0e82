package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:8000", "parscrape API base URL")
	apiKey      = flag.String("api-key", "", "API key for authenticated requests")
	urlsFile    = flag.String("urls", "", "file with one URL per line (default: built-in sample set)")
	backends    = flag.String("backends", "rod,chromedp", "comma-separated backends to compare")
	mode        = flag.String("mode", "text", "output mode: text or markdown")
	strategy    = flag.String("wait", "fixed-delay", "wait strategy")
	runs        = flag.Int("runs", 1, "number of runs per URL and backend")
	concurrency = flag.Int("concurrency", 2, "requests in flight at once")
	saveDir     = flag.String("save-dir", "", "write each successful page's content here")
	output      = flag.String("output", "benchmark-results.json", "JSON report path")
)

// Sample URLs covering a few site types.
var sampleURLs = []string{
	"https://example.com",
	"https://go.dev/blog/go1.21",
	"https://go.dev/doc/effective_go",
	"https://www.bbc.com/news",
	"https://github.com/go-rod/rod",
}

type scrapeRequest struct {
	URL          string `json:"url"`
	Backend      string `json:"backend"`
	Output       string `json:"output"`
	WaitStrategy string `json:"wait_strategy"`
	Timeout      int    `json:"timeout"`
}

type scrapeResponse struct {
	URL            string   `json:"url"`
	URLs           []string `json:"urls"`
	Text           string   `json:"text"`
	Markdown       string   `json:"markdown"`
	Backend        string   `json:"backend"`
	ElapsedSeconds float64  `json:"elapsedSeconds"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type runResult struct {
	URL           string  `json:"url"`
	Backend       string  `json:"backend"`
	Run           int     `json:"run"`
	HTTPStatus    int     `json:"http_status"`
	ServerSeconds float64 `json:"server_seconds"`
	RoundTripMs   int64   `json:"round_trip_ms"`
	Links         int     `json:"links"`
	ContentLength int     `json:"content_length"`
	Success       bool    `json:"success"`
	ErrorCode     string  `json:"error_code,omitempty"`
	Error         string  `json:"error,omitempty"`
}

type summary struct {
	URL           string  `json:"url"`
	Backend       string  `json:"backend"`
	Successes     int     `json:"successes"`
	Runs          int     `json:"runs"`
	AvgSeconds    float64 `json:"avg_seconds"`
	AvgContentLen float64 `json:"avg_content_length"`
	LastErrorCode string  `json:"last_error_code,omitempty"`
}

type benchmarkReport struct {
	Timestamp string      `json:"timestamp"`
	APIURL    string      `json:"api_url"`
	Mode      string      `json:"mode"`
	Wait      string      `json:"wait"`
	Summary   []summary   `json:"summary"`
	Runs      []runResult `json:"runs"`
}

func main() {
	flag.Parse()

	urls, err := loadURLs(*urlsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading URL list: %v\n", err)
		os.Exit(1)
	}
	engines := splitList(*backends)

	fmt.Println("=== parscrape benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Backends:  %s\n", strings.Join(engines, ", "))
	fmt.Printf("URLs:      %d x %d run(s)\n", len(urls), *runs)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}
	if *saveDir != "" {
		if err := os.MkdirAll(*saveDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *saveDir, err)
			os.Exit(1)
		}
	}

	client := &http.Client{Timeout: 90 * time.Second}
	var (
		mu      sync.Mutex
		results []runResult
	)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, *concurrency))
	for _, u := range urls {
		for _, backend := range engines {
			for run := 1; run <= *runs; run++ {
				g.Go(func() error {
					rr, content := scrapeOnce(ctx, client, u, backend, run)
					if rr.Success {
						fmt.Printf("OK    %-9s %5.2fs  %s\n", backend, rr.ServerSeconds, u)
						if *saveDir != "" && run == 1 {
							if err := saveContent(*saveDir, u, backend, content); err != nil {
								fmt.Fprintf(os.Stderr, "save %s: %v\n", u, err)
							}
						}
					} else {
						fmt.Printf("FAIL  %-9s %s  %s\n", backend, rr.ErrorCode, u)
					}
					mu.Lock()
					results = append(results, rr)
					mu.Unlock()
					return nil
				})
			}
		}
	}
	_ = g.Wait()

	report := benchmarkReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		APIURL:    *apiURL,
		Mode:      *mode,
		Wait:      *strategy,
		Summary:   summarize(urls, engines, results),
		Runs:      results,
	}

	fmt.Println()
	printTable(report.Summary)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func loadURLs(path string) ([]string, error) {
	if path == "" {
		return sampleURLs, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func scrapeOnce(ctx context.Context, client *http.Client, target, backend string, run int) (runResult, string) {
	rr := runResult{URL: target, Backend: backend, Run: run}

	body, err := json.Marshal(scrapeRequest{
		URL:          target,
		Backend:      backend,
		Output:       *mode,
		WaitStrategy: *strategy,
		Timeout:      60,
	})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr, ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *apiURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr, ""
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr, ""
	}
	defer resp.Body.Close()
	rr.RoundTripMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr, ""
	}
	if sr.Error != nil {
		rr.ErrorCode = sr.Error.Code
		rr.Error = sr.Error.Message
		return rr, ""
	}

	content := sr.Text
	if sr.Markdown != "" {
		content = sr.Markdown
	}
	rr.Success = resp.StatusCode == http.StatusOK
	rr.ServerSeconds = sr.ElapsedSeconds
	rr.Links = len(sr.URLs)
	rr.ContentLength = len(content)
	return rr, content
}

// saveContent writes one page's content to dir, named after its host and path.
func saveContent(dir, target, backend, content string) error {
	name := fileName(target, backend)
	return os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644)
}

func fileName(target, backend string) string {
	u, err := url.Parse(target)
	if err != nil {
		return backend + ".txt"
	}
	name := strings.TrimPrefix(u.Hostname(), "www.")
	if p := strings.Trim(u.Path, "/"); p != "" {
		name += "_" + strings.ReplaceAll(p, "/", "_")
	}
	return name + "." + backend + ".txt"
}

func summarize(urls, engines []string, results []runResult) []summary {
	var out []summary
	for _, u := range urls {
		for _, b := range engines {
			s := summary{URL: u, Backend: b}
			for _, r := range results {
				if r.URL != u || r.Backend != b {
					continue
				}
				s.Runs++
				if !r.Success {
					s.LastErrorCode = r.ErrorCode
					continue
				}
				s.Successes++
				s.AvgSeconds += r.ServerSeconds
				s.AvgContentLen += float64(r.ContentLength)
			}
			if s.Successes > 0 {
				s.AvgSeconds /= float64(s.Successes)
				s.AvgContentLen /= float64(s.Successes)
			}
			out = append(out, s)
		}
	}
	return out
}

func printTable(rows []summary) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tBackend\tOK\tAvg Time\tContent Len\tLast Error\n")
	fmt.Fprintf(w, "───\t───────\t──\t────────\t───────────\t──────────\n")

	for _, r := range rows {
		if r.Successes == 0 {
			fmt.Fprintf(w, "%s\t%s\t0/%d\t-\t-\t%s\n", truncateURL(r.URL, 40), r.Backend, r.Runs, r.LastErrorCode)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.2fs\t%s\t%s\n",
			truncateURL(r.URL, 40), r.Backend, r.Successes, r.Runs,
			r.AvgSeconds, formatInt(int(r.AvgContentLen)), r.LastErrorCode)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
