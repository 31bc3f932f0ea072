package extract

import (
	"fmt"
	"strings"

	"github.com/arishya7/event-enrichment-sub000/app/feed"
)

// promptBodyLimit bounds how much item body goes into a single prompt.
const promptBodyLimit = 25000

// countBodyLimit is larger: the count call needs the whole listing to see
// every section heading.
const countBodyLimit = 30000

func itemHeader(item feed.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Article title: %s\n", item.Title)
	fmt.Fprintf(&b, "GUID: %s\n", item.GUID)
	fmt.Fprintf(&b, "URL: %s\n", item.SourceLink)
	if len(item.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(item.Categories, ", "))
	}
	return b.String()
}

func buildItemPrompt(item feed.Item) string {
	return fmt.Sprintf(`%s
Content:
%s

---
Extract all events from this article as a JSON array matching the response schema.
Some articles have zero, one or multiple events.
Match the url links in the content to each event where possible.
For the description, summarise the relevant content in one paragraph.
Do not mention the source website.
Return [] if the article describes no events.`,
		itemHeader(item), truncate(item.Body, promptBodyLimit))
}

func buildWindowPrompt(item feed.Item, start, end int) string {
	return fmt.Sprintf(`%s
Content:
%s

---
Extract ONLY events #%d to #%d from this article.
If the article lists "10 Best Restaurants" and events #%d-#%d are requested, return only those.
- description: 150-250 chars max
- blurb: 30-50 chars
Return an empty array [] if these event numbers don't exist.

Return a JSON array with these events only.`,
		itemHeader(item), truncate(item.Body, promptBodyLimit), start, end, start, end)
}

func buildCountPrompt(item feed.Item) string {
	return fmt.Sprintf(`Article: %s

Content:
%s

---
This article lists multiple events, venues, restaurants, playgrounds, or attractions.
Count the TOTAL number of separate items/places mentioned.
Look for numbered lists, headings, or sections that indicate individual venues.
Return ONLY a single number. Example: 72`,
		item.Title, truncate(item.Body, countBodyLimit))
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
