package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arishya7/event-enrichment-sub000/app/config"
)

// Source fetches and parses one partition's feed.
type Source struct {
	httpClient *http.Client
	parser     *Parser
	extractor  *ContentExtractor
	userAgent  string
}

func NewSource(httpClient *http.Client, parser *Parser, extractor *ContentExtractor, userAgent string) *Source {
	return &Source{
		httpClient: httpClient,
		parser:     parser,
		extractor:  extractor,
		userAgent:  userAgent,
	}
}

// Fetch downloads and parses the partition's feed, truncates to the
// configured item budget and, when enabled, recovers thin item bodies from
// the source pages. A fetch or parse failure is returned to the caller; the
// orchestrator skips the partition for this run.
func (s *Source) Fetch(ctx context.Context, partition *config.Partition) ([]Item, error) {
	data, err := s.fetchFeed(ctx, partition)
	if err != nil {
		return nil, err
	}

	metadata, items, err := s.parser.Run(partition.Name, data)
	if err != nil {
		return nil, err
	}

	slog.Info("Feed fetched",
		"partition", partition.Name,
		"title", metadata.Title,
		"items", len(items))

	if max := partition.Settings.MaxItems; len(items) > max {
		items = items[:max]
	}

	if partition.Settings.ExtractContent && s.extractor != nil {
		s.recoverThinBodies(ctx, items)
	}

	return items, nil
}

func (s *Source) fetchFeed(ctx context.Context, partition *config.Partition) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(partition.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, partition.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return data, nil
}

func (s *Source) recoverThinBodies(ctx context.Context, items []Item) {
	for i := range items {
		if len(items[i].Body) >= minUsefulBodyLength {
			continue
		}

		content, err := s.extractor.Run(ctx, items[i].SourceLink)
		if err != nil {
			slog.Warn("Content recovery failed, keeping feed body",
				"partition", items[i].Partition,
				"item", items[i].ID,
				"error", err)
			continue
		}

		items[i].Body = content
	}
}
