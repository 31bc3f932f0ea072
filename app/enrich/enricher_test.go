package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/arishya7/event-enrichment-sub000/app/event"
)

type stubGeo struct {
	place *Place
	err   error
}

func (s *stubGeo) Resolve(_ context.Context, _ string) (*Place, error) {
	return s.place, s.err
}

type stubImages struct {
	urls     []string
	fetchErr error
}

func (s *stubImages) Search(_ context.Context, _, _ string) ([]string, error) {
	return s.urls, nil
}

func (s *stubImages) Fetch(_ context.Context, _ string) ([]byte, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return []byte{0xff, 0xd8}, nil
}

func TestRunFillsLocation(t *testing.T) {
	geo := &stubGeo{place: &Place{Address: "1 Cluny Road", Latitude: 1.31, Longitude: 103.81}}
	e := NewEnricher(geo, nil, t.TempDir())

	records := []event.Record{{Title: "Fun Day", VenueName: "Botanic Gardens"}}
	e.Run(context.Background(), records)

	if records[0].FullAddress != "1 Cluny Road" {
		t.Errorf("Expected address filled, got: %q", records[0].FullAddress)
	}
	if records[0].Latitude != 1.31 || records[0].Longitude != 103.81 {
		t.Errorf("Expected coordinates filled, got: %v, %v", records[0].Latitude, records[0].Longitude)
	}
}

func TestRunGeoFailureLeavesRecordIntact(t *testing.T) {
	geo := &stubGeo{err: errors.New("service down")}
	e := NewEnricher(geo, nil, t.TempDir())

	records := []event.Record{{Title: "Fun Day", VenueName: "Botanic Gardens"}}
	e.Run(context.Background(), records)

	if records[0].FullAddress != "" {
		t.Errorf("Expected address left empty on lookup failure, got: %q", records[0].FullAddress)
	}
}

func TestRunGeoNotFoundIsNotAnError(t *testing.T) {
	e := NewEnricher(&stubGeo{}, nil, t.TempDir())

	records := []event.Record{{Title: "Fun Day", VenueName: "Nowhere Hall"}}
	e.Run(context.Background(), records)

	if records[0].FullAddress != "" {
		t.Errorf("Expected no address for an unresolvable venue")
	}
}

func TestRunDownloadsBoundedImages(t *testing.T) {
	images := &stubImages{urls: []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.png",
		"https://cdn.example.com/c.webp",
		"https://cdn.example.com/d.jpg",
	}}
	e := NewEnricher(nil, images, t.TempDir())

	records := []event.Record{{Title: "Fun Day", Organiser: "Fun Events Co"}}
	e.Run(context.Background(), records)

	if len(records[0].Images) != maxImagesPerRecord {
		t.Fatalf("Expected %d images, got: %d", maxImagesPerRecord, len(records[0].Images))
	}
	if records[0].Images[0].Filename != "Fun_Day_1.jpg" {
		t.Errorf("Expected sanitized filename, got: %q", records[0].Images[0].Filename)
	}
}

func TestRunFetchFailuresSkipped(t *testing.T) {
	images := &stubImages{
		urls:     []string{"https://cdn.example.com/a.jpg"},
		fetchErr: errors.New("timeout"),
	}
	e := NewEnricher(nil, images, t.TempDir())

	records := []event.Record{{Title: "Fun Day"}}
	e.Run(context.Background(), records)

	if len(records[0].Images) != 0 {
		t.Errorf("Expected no images when every fetch fails, got: %d", len(records[0].Images))
	}
}
