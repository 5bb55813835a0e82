package cleaner

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var baseHref = cascadia.MustCompile("base[href]")

// documentBase returns the URL relative links in root resolve against: the
// first <base href>, itself resolved against fallback, or fallback when the
// document has none.
func documentBase(root *html.Node, fallback *url.URL) *url.URL {
	node := cascadia.Query(root, baseHref)
	if node == nil {
		return fallback
	}
	for _, attr := range node.Attr {
		if attr.Key != "href" {
			continue
		}
		href := strings.TrimSpace(attr.Val)
		if href == "" {
			return fallback
		}
		resolved, err := fallback.Parse(href)
		if err != nil {
			return fallback
		}
		return resolved
	}
	return fallback
}
