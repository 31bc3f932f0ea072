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

// HTTPGeoLookup resolves venue text against an external geocoding service.
type HTTPGeoLookup struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ GeoLookup = (*HTTPGeoLookup)(nil)

func NewHTTPGeoLookup(baseURL, userAgent string) *HTTPGeoLookup {
	return &HTTPGeoLookup{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type geoResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"results"`
}

func (g *HTTPGeoLookup) Resolve(ctx context.Context, text string) (*Place, error) {
	endpoint := fmt.Sprintf("%s/resolve?q=%s", g.baseURL, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geo request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("geo request returned status %d: %s", resp.StatusCode, detail)
	}

	var decoded geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}

	first := decoded.Results[0]
	return &Place{
		Address:   first.FormattedAddress,
		Latitude:  first.Location.Latitude,
		Longitude: first.Location.Longitude,
	}, nil
}
