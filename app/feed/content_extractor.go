package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability"
)

// minUsefulBodyLength is the point below which a feed entry body is assumed
// to be a teaser rather than the article itself.
const minUsefulBodyLength = 500

// ContentExtractor recovers a full article body from the source page when a
// feed entry ships only a stub.
type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewContentExtractor(httpClient *http.Client, userAgent string) *ContentExtractor {
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run fetches the item's source page and extracts its readable content.
func (e *ContentExtractor) Run(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("item has no source link")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	pageURL, _ := url.Parse(link)
	article, err := readability.FromReader(strings.NewReader(string(data)), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	content := CleanHTML(article.Content)
	if content == "" {
		return "", fmt.Errorf("no content extracted from page")
	}

	slog.Debug("Recovered item body from source page",
		"link", link,
		"content_length", len(content))

	return content, nil
}
