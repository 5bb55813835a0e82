package cleaner

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/parscrape/models"
)

// Cleaner turns rendered HTML into one of the two output modes:
//
//	text:     unique absolute link URLs + visible text
//	markdown: optional readability pass → optional image strip → html-to-markdown
//
// The converter is created once and reused across all requests (goroutine-safe).
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
	}
}

// MarkdownOptions tune markdown mode.
type MarkdownOptions struct {
	// IncludeImages keeps image references in the output.
	IncludeImages bool
	// MainContent runs readability first to drop navigation and chrome.
	MainContent bool
}

// nonContent is removed before links or text are collected.
const nonContent = "script, style, noscript, template"

// ExtractURLsAndText returns the page's unique absolute http(s) link URLs in
// first-occurrence order, and its visible text with one trimmed line per
// text node.
//
// Relative links resolve against baseURL, or against the document's
// <base href> when it has one. A page with no visible text is an
// extraction failure.
func (c *Cleaner) ExtractURLsAndText(rawHTML string, baseURL string) ([]string, string, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, "", models.NewScrapeError(models.ErrCodeExtraction, "failed to parse page HTML", err)
	}

	base, _ := url.Parse(baseURL)
	if base == nil {
		base = &url.URL{}
	}
	base = documentBase(root, base)

	doc := goquery.NewDocumentFromNode(root)
	doc.Find(nonContent).Remove()

	urls := ExtractLinks(doc, base)
	text := VisibleText(root)

	if strings.TrimSpace(text) == "" {
		return nil, "", models.NewScrapeError(models.ErrCodeExtraction,
			"page has no visible text; it may not have rendered", nil)
	}
	return urls, text, nil
}

// ToMarkdown converts the page to a markdown document. Relative links and
// images are made absolute against the same base as ExtractURLsAndText uses.
func (c *Cleaner) ToMarkdown(rawHTML string, baseURL string, opts MarkdownOptions) (string, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeExtraction, "failed to parse page HTML", err)
	}
	base, _ := url.Parse(baseURL)
	if base == nil {
		base = &url.URL{}
	}
	effective := documentBase(root, base).String()

	content := rawHTML
	if opts.MainContent {
		article, _ := ExtractContent(rawHTML, effective)
		content = article.Content
	}
	if !opts.IncludeImages {
		content = RemoveElements(content, imageElements)
	}

	md, err := convertMarkdown(c.mdConverter, content, effective)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeExtraction, "markdown conversion failed", err)
	}

	md = strings.TrimSpace(md)
	if md == "" {
		return "", models.NewScrapeError(models.ErrCodeExtraction,
			"page produced no markdown content; it may not have rendered", nil)
	}
	return md, nil
}
