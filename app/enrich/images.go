package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxImageBytes bounds a single image download.
const maxImageBytes = 8 << 20

// HTTPImageProvider discovers images through an external search service and
// fetches them over plain HTTP.
type HTTPImageProvider struct {
	searchURL  string
	userAgent  string
	httpClient *http.Client
}

var _ ImageProvider = (*HTTPImageProvider)(nil)

func NewHTTPImageProvider(searchURL, userAgent string) *HTTPImageProvider {
	return &HTTPImageProvider{
		searchURL:  searchURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type imageSearchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Search queries the image search service, optionally restricted to one
// site via scope.
func (p *HTTPImageProvider) Search(ctx context.Context, query, scope string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", p.searchURL, url.QueryEscape(query))
	if scope != "" {
		endpoint += "&site=" + url.QueryEscape(scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image search request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("image search returned status %d: %s", resp.StatusCode, detail)
	}

	var decoded imageSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode image search response: %w", err)
	}

	links := make([]string, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links, nil
}

func (p *HTTPImageProvider) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}
