package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "alpha.yaml", `
url: "https://example.com/feed"
settings:
  enabled: true
  timeout: 10
  max_items: 25
  listing: true
`)
	writeSource(t, dir, "bravo.yml", `
url: "https://example.org/rss"
settings:
  enabled: false
`)

	loader := NewLoader(dir)
	partitions, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(partitions) != 2 {
		t.Fatalf("Expected 2 partitions, got: %d", len(partitions))
	}

	alpha := partitions["alpha"]
	if alpha == nil || alpha.Name != "alpha" {
		t.Fatalf("Expected partition named from filename, got: %+v", alpha)
	}
	if alpha.URL != "https://example.com/feed" {
		t.Errorf("Expected alpha URL, got: %q", alpha.URL)
	}
	if !alpha.Settings.Enabled || !alpha.Settings.Listing {
		t.Errorf("Expected alpha enabled listing partition, got: %+v", alpha.Settings)
	}
	if alpha.Settings.Timeout != 10 || alpha.Settings.MaxItems != 25 {
		t.Errorf("Expected explicit settings preserved, got: %+v", alpha.Settings)
	}

	bravo := partitions["bravo"]
	if bravo == nil || bravo.Settings.Enabled {
		t.Fatalf("Expected disabled bravo partition, got: %+v", bravo)
	}
}

func TestLoadAllAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "alpha.yaml", `
url: "https://example.com/feed"
settings:
  enabled: true
`)

	loader := NewLoader(dir)
	partitions, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	settings := partitions["alpha"].Settings
	if settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got: %d", settings.Timeout)
	}
	if settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got: %d", settings.MaxItems)
	}
}

func TestLoadAllMissingDirectory(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))

	partitions, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("Expected missing directory to yield empty map, got: %v", err)
	}
	if len(partitions) != 0 {
		t.Errorf("Expected no partitions, got: %d", len(partitions))
	}
}

func TestLoadAllRejectsMissingURL(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "alpha.yaml", `
settings:
  enabled: true
`)

	loader := NewLoader(dir)
	if _, err := loader.LoadAll(); err == nil {
		t.Errorf("Expected error for source without URL")
	}
}
