package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeResponse covers both success payloads and the error envelope of
// POST /scrape.
type scrapeResponse struct {
	URL            string   `json:"url"`
	URLs           []string `json:"urls"`
	Text           string   `json:"text"`
	Markdown       string   `json:"markdown"`
	Backend        string   `json:"backend"`
	ElapsedSeconds float64  `json:"elapsedSeconds"`
	FinalURL       string   `json:"final_url"`
	Title          string   `json:"title"`
	StatusCode     int      `json:"status_code"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildPayload maps tool arguments onto the POST /scrape body, leaving
// unset arguments for the server to default.
func buildPayload(request mcp.CallToolRequest) (map[string]any, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"url": url}
	for _, key := range []string{"output", "backend", "wait_strategy", "wait_target"} {
		if v := request.GetString(key, ""); v != "" {
			payload[key] = v
		}
	}

	args := request.GetArguments()
	for _, key := range []string{"settle_delay", "timeout"} {
		if _, ok := args[key]; ok {
			payload[key] = request.GetInt(key, 0)
		}
	}
	if _, ok := args["include_images"]; ok {
		payload["include_images"] = request.GetBool("include_images", true)
	}
	return payload, nil
}

func handleScrapeURL(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := buildPayload(request)
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response (HTTP %d): %v", resp.StatusCode, err)), nil
		}
		if scrapeResp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)), nil
		}
		if resp.StatusCode != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed with HTTP %d", resp.StatusCode)), nil
		}

		return mcp.NewToolResultText(formatResult(&scrapeResp)), nil
	}
}

// formatResult renders a successful response for the model: a short header,
// then the markdown, or the text followed by the link list.
func formatResult(r *scrapeResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", r.URL)
	if r.FinalURL != "" && r.FinalURL != r.URL {
		fmt.Fprintf(&sb, "Final URL: %s\n", r.FinalURL)
	}
	if r.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", r.Title)
	}
	if r.StatusCode != 0 {
		fmt.Fprintf(&sb, "Status: %d\n", r.StatusCode)
	}
	fmt.Fprintf(&sb, "Backend: %s (%.2fs)\n\n", r.Backend, r.ElapsedSeconds)

	if r.Markdown != "" {
		sb.WriteString(r.Markdown)
		return sb.String()
	}

	sb.WriteString(r.Text)
	if len(r.URLs) > 0 {
		fmt.Fprintf(&sb, "\n\n---\nLinks (%d):\n", len(r.URLs))
		for _, u := range r.URLs {
			sb.WriteString(u + "\n")
		}
	}
	return sb.String()
}
