package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arishya7/event-enrichment-sub000/app/event"
)

// maxImagesPerRecord bounds image downloads per record.
const maxImagesPerRecord = 3

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Enricher fills the collaborator-owned record fields: resolved location
// and images. Every failure here is logged and skipped; enrichment never
// drops or fails a record.
type Enricher struct {
	geo      GeoLookup
	images   ImageProvider
	imageDir string
}

func NewEnricher(geo GeoLookup, images ImageProvider, imageDir string) *Enricher {
	return &Enricher{geo: geo, images: images, imageDir: imageDir}
}

// Run enriches records in place.
func (e *Enricher) Run(ctx context.Context, records []event.Record) {
	for i := range records {
		e.addLocation(ctx, &records[i])
		e.addImages(ctx, &records[i])
	}
}

func (e *Enricher) addLocation(ctx context.Context, record *event.Record) {
	if e.geo == nil || record.FullAddress != "" || record.VenueName == "" {
		return
	}

	query := record.VenueName
	if record.Title != "" {
		query = record.Title + " " + record.VenueName
	}

	place, err := e.geo.Resolve(ctx, query)
	if err != nil {
		slog.Warn("Location lookup failed", "venue", record.VenueName, "error", err)
		return
	}
	if place == nil {
		slog.Debug("No location found", "venue", record.VenueName)
		return
	}

	record.FullAddress = place.Address
	record.Latitude = place.Latitude
	record.Longitude = place.Longitude
}

func (e *Enricher) addImages(ctx context.Context, record *event.Record) {
	if e.images == nil || len(record.Images) > 0 || record.Title == "" {
		return
	}

	query := record.Title
	if record.Organiser != "" {
		query = fmt.Sprintf("%s by %s", record.Title, record.Organiser)
	}

	urls, err := e.images.Search(ctx, query, record.URL)
	if err != nil {
		slog.Warn("Image search failed", "title", record.Title, "error", err)
		return
	}

	for idx, imageURL := range urls {
		if len(record.Images) >= maxImagesPerRecord {
			break
		}
		image, err := e.downloadImage(ctx, record.Title, idx+1, imageURL)
		if err != nil {
			slog.Warn("Image download failed", "url", imageURL, "error", err)
			continue
		}
		record.Images = append(record.Images, image)
	}
}

func (e *Enricher) downloadImage(ctx context.Context, title string, index int, imageURL string) (event.Image, error) {
	data, err := e.images.Fetch(ctx, imageURL)
	if err != nil {
		return event.Image{}, err
	}

	filename := fmt.Sprintf("%s_%d%s",
		strings.Trim(unsafeFilenameRe.ReplaceAllString(title, "_"), "_"),
		index,
		imageExtension(imageURL))
	localPath := filepath.Join(e.imageDir, filename)

	if err := os.MkdirAll(e.imageDir, 0o755); err != nil {
		return event.Image{}, fmt.Errorf("failed to create image dir: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return event.Image{}, fmt.Errorf("failed to write image: %w", err)
	}

	return event.Image{
		OriginalURL: imageURL,
		LocalPath:   localPath,
		Filename:    filename,
	}, nil
}

func imageExtension(imageURL string) string {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(imageURL, "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
