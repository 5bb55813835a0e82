package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability TextContent (in characters)
// accepted as the page's main content.
const minContentLength = 50

// ExtractContent runs Mozilla Readability on rawHTML for markdown mode's
// main-content option.
//
// The second return value is false when readability was not usable (bad
// URL, parse failure, or too little text). The returned Article then holds
// the full rawHTML so the page is converted whole rather than lost.
func ExtractContent(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid base URL, converting whole page",
			"url", sourceURL, "error", err,
		)
		return wholePage(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed, converting whole page",
			"url", sourceURL, "error", err,
		)
		return wholePage(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: main content too short, converting whole page",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return wholePage(rawHTML), false
	}

	return article, true
}

func wholePage(rawHTML string) readability.Article {
	return readability.Article{Content: rawHTML}
}
