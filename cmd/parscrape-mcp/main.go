package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("PARSCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8000"
	}
	apiKey := os.Getenv("PARSCRAPE_API_KEY")

	s := server.NewMCPServer(
		"parscrape",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(scrapeURLTool(), handleScrapeURL(&http.Client{Timeout: 120 * time.Second}, apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func scrapeURLTool() mcp.Tool {
	return mcp.NewTool("scrape_url",
		mcp.WithDescription("Render a web page in a real browser and return its links and visible text, or the page as markdown. Handles JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL of the page to fetch"),
		),
		mcp.WithString("output",
			mcp.Description("'text' (default): unique absolute links plus visible text. 'markdown': the page as markdown"),
			mcp.Enum("text", "markdown"),
		),
		mcp.WithString("backend",
			mcp.Description("Browser engine: 'rod' (default) or 'chromedp'"),
			mcp.Enum("rod", "chromedp"),
		),
		mcp.WithString("wait_strategy",
			mcp.Description("When the page counts as ready: 'fixed-delay' (default), 'network-idle', 'none', 'selector-present' or 'text-present'"),
			mcp.Enum("fixed-delay", "network-idle", "none", "selector-present", "text-present"),
		),
		mcp.WithString("wait_target",
			mcp.Description("CSS selector or literal text to wait for. Required for selector-present and text-present"),
		),
		mcp.WithNumber("settle_delay",
			mcp.Description("Seconds to wait with fixed-delay (default 2, max 30)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Deadline in seconds for navigation, waiting and extraction (default 10, max 60)"),
		),
		mcp.WithBoolean("include_images",
			mcp.Description("Keep image references in markdown output (default true)"),
		),
	)
}
