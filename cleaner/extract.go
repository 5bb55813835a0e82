package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedPrefixes mark hrefs that never point at a fetchable page.
var skippedPrefixes = []string{"#", "javascript:", "mailto:", "tel:"}

// ExtractLinks collects the href of every <a> element in doc, resolved
// against base. Only http and https results are kept, deduplicated in
// first-occurrence order. The result is never nil.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	links := []string{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || hasSkippedPrefix(href) {
			return
		}

		// Resolve relative URLs against the base.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		links = append(links, absURL)
	})

	return links
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range skippedPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
