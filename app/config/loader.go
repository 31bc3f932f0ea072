package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of partition source configurations.
type Loader struct {
	sourcesDir string
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads every YAML configuration file from the sources directory,
// keyed by partition name. A missing directory yields an empty map.
func (l *Loader) LoadAll() (map[string]*Partition, error) {
	partitions := make(map[string]*Partition)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return partitions, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		partition, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(partition); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		partitions[partition.Name] = partition
		slog.Debug("Loaded partition configuration", "partition", partition.Name, "file", file)
	}

	return partitions, nil
}

func (l *Loader) loadFile(path string) (*Partition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var partition Partition
	if err := yaml.Unmarshal(data, &partition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	partition.Name = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")

	l.setDefaults(&partition)

	return &partition, nil
}

func (l *Loader) setDefaults(partition *Partition) {
	if partition.Settings.Timeout == 0 {
		partition.Settings.Timeout = 30 // seconds
	}
	if partition.Settings.MaxItems == 0 {
		partition.Settings.MaxItems = 100
	}
}

func (l *Loader) validate(partition *Partition) error {
	if partition.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	if partition.Name == "" {
		return fmt.Errorf("partition name is required")
	}
	if partition.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if partition.Settings.MaxItems < 0 {
		return fmt.Errorf("max items must be non-negative")
	}
	return nil
}
