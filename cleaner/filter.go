package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageElements are stripped from markdown input when images are excluded.
var imageElements = []string{"img", "picture", "svg"}

// RemoveElements deletes every element matching one of selectors and
// returns the re-rendered document. The input is returned unchanged when
// selectors is empty or the document cannot be parsed.
func RemoveElements(rawHTML string, selectors []string) string {
	if len(selectors) == 0 {
		return rawHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	doc.Find(strings.Join(selectors, ", ")).Remove()

	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}
