package feed

import (
	"time"
)

// Metadata carries source-level fields parsed from the feed document.
type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Item is one content item fetched from a partition's feed, immutable once
// fetched. ID is stable across runs: it is derived from the source
// identifier, so the same article always maps to the same ledger entry.
type Item struct {
	Partition   string
	ID          int64
	GUID        string
	Title       string
	Body        string
	SourceLink  string
	Author      string
	Categories  []string
	PublishedAt time.Time
}
