package enrich

import "context"

// Place is a resolved venue location.
type Place struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoLookup resolves free-form venue text to a place. A lookup that finds
// nothing returns (nil, nil), not an error.
type GeoLookup interface {
	Resolve(ctx context.Context, text string) (*Place, error)
}

// ImageProvider discovers and retrieves images for a record.
type ImageProvider interface {
	Search(ctx context.Context, query, scope string) ([]string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}
