package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a feed document into items for the given partition. Items
// whose identifier cannot be derived are dropped; the stable id is what the
// duplicate ledger tracks, so an item without one cannot be processed safely.
func (p *Parser) Run(partition string, data []byte) (*Metadata, []Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item := p.normalizeEntry(partition, entry)
		if item.ID == 0 {
			continue
		}
		items = append(items, item)
	}

	return metadata, items, nil
}

func (p *Parser) normalizeEntry(partition string, entry *gofeed.Item) Item {
	guid := cmp.Or(entry.GUID, entry.Link)

	item := Item{
		Partition:  partition,
		ID:         DeriveItemID(guid),
		GUID:       guid,
		Title:      CleanHTML(entry.Title),
		SourceLink: entry.Link,
		Categories: entry.Categories,
	}

	// Prefer the full content element over the summary; listing articles
	// often put only a teaser in the description.
	body := cmp.Or(entry.Content, entry.Description)
	item.Body = CleanHTML(body)

	if entry.PublishedParsed != nil {
		item.PublishedAt = *entry.PublishedParsed
	}

	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		item.Author = strings.TrimSpace(entry.Authors[0].Name)
	}

	return item
}

const itemIDModulus = 10_000_000

// DeriveItemID derives a stable numeric identifier from a feed entry GUID.
// WordPress-style GUIDs carry the post id in the "p" query parameter; other
// permalink styles end in a numeric slug. Anything else hashes the full
// GUID into a bounded numeric space. An empty GUID yields 0, which callers
// treat as invalid.
func DeriveItemID(guid string) int64 {
	if guid == "" {
		return 0
	}

	if u, err := url.Parse(guid); err == nil {
		if p := u.Query().Get("p"); p != "" {
			if id, err := strconv.ParseInt(p, 10, 64); err == nil && id > 0 {
				return id
			}
		}

		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := segments[len(segments)-1]; last != "" {
			if id, err := strconv.ParseInt(last, 10, 64); err == nil && id > 0 {
				return id
			}
		}
	}

	return textToID(guid)
}

func textToID(text string) int64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	id := int64(h.Sum64() % uint64(itemIDModulus))
	if id == 0 {
		id = itemIDModulus // keep 0 reserved for "invalid"
	}
	return id
}
