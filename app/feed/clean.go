package feed

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanHTML strips markup from a feed item body while preserving anchor
// targets as "text [url]", so the extraction backend can match links to the
// records it produces.
func CleanHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapseWhitespace(raw)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || text == "" {
			sel.ReplaceWithHtml(html.EscapeString(text))
			return
		}
		sel.ReplaceWithHtml(html.EscapeString(fmt.Sprintf("%s [%s]", text, href)))
	})

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
