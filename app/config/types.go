package config

// Partition describes one independently tracked content source, loaded from
// a YAML file in the sources directory. The partition name is derived from
// the filename.
type Partition struct {
	Name     string   `yaml:"-"`
	URL      string   `yaml:"url"`
	Settings Settings `yaml:"settings"`
}

type Settings struct {
	Enabled        bool `yaml:"enabled"`
	Timeout        int  `yaml:"timeout"`  // feed fetch timeout, seconds
	MaxItems       int  `yaml:"max_items"`
	ExtractContent bool `yaml:"extract_content"` // recover thin item bodies from the source page
	Listing        bool `yaml:"listing"`         // items are long listings: count first, extract in windows
}
