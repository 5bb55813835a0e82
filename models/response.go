package models

// TextResponse is the POST /scrape response in text mode.
type TextResponse struct {
	// URL is the requested page.
	URL string `json:"url"`

	// URLs are the unique absolute links in first-occurrence order.
	URLs []string `json:"urls"`

	// Text is the page's visible text, one line per text block.
	Text string `json:"text"`

	// Backend is the engine that rendered the page.
	Backend string `json:"backend"`

	// ElapsedSeconds is the wall-clock time of the whole fetch.
	ElapsedSeconds float64 `json:"elapsedSeconds"`

	PageInfo
}

// MarkdownResponse is the POST /scrape response in markdown mode.
type MarkdownResponse struct {
	URL            string  `json:"url"`
	Markdown       string  `json:"markdown"`
	Backend        string  `json:"backend"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`

	PageInfo
}

// PageInfo describes where navigation ended. Relative links were resolved
// against FinalURL (or the page's <base href>). StatusCode is 0 when the
// backend could not observe it.
type PageInfo struct {
	FinalURL   string `json:"final_url,omitempty"`
	Title      string `json:"title,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "degraded"
	Timestamp      string `json:"timestamp"`
	Uptime         string `json:"uptime"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
	MaxSessions    int    `json:"max_sessions"`
}

// EndpointInfo describes one route in the GET / listing.
type EndpointInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// InfoResponse is the response for GET /.
type InfoResponse struct {
	Name        string                  `json:"name"`
	Version     string                  `json:"version"`
	Description string                  `json:"description"`
	Backends    []string                `json:"backends"`
	Endpoints   map[string]EndpointInfo `json:"endpoints"`
}

// SessionStats reports live browser session usage.
type SessionStats struct {
	Active int `json:"active"`
	Max    int `json:"max"` // 0 means unbounded
}
