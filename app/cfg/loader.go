package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	SourcesDir  string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing partition source configuration files"`
	DataDir     string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for ledgers, partition outputs and merged output"`
	AuditDBPath string `long:"audit-db" env:"AUDIT_DB" default:"./data/audit.db" description:"Path to the SQLite audit database"`
	LockFile    string `long:"lock-file" env:"LOCK_FILE" default:"./data/run.lock" description:"Lock file serializing runs against the same ledger state"`

	// Generation backend configuration
	BackendURL     string `long:"backend-url" env:"BACKEND_URL" description:"Generation backend base URL (required)" required:"true"`
	BackendAPIKey  string `long:"backend-api-key" env:"BACKEND_API_KEY" description:"Generation backend API key"`
	BackendModel   string `long:"backend-model" env:"BACKEND_MODEL" default:"gemini-2.0-flash-lite" description:"Generation backend model name"`
	BackendTimeout int    `long:"backend-timeout" env:"BACKEND_TIMEOUT" default:"300" description:"Per-call backend deadline in seconds"`

	// Embedding service configuration
	EmbedURL   string `long:"embed-url" env:"EMBED_URL" description:"Embedding service base URL (empty disables similarity dedup)"`
	EmbedModel string `long:"embed-model" env:"EMBED_MODEL" default:"all-mpnet-base-v2" description:"Embedding model name"`

	// Enrichment collaborators
	GeoURL         string `long:"geo-url" env:"GEO_URL" description:"Geocoding service base URL (empty disables venue lookup)"`
	ImageSearchURL string `long:"image-search-url" env:"IMAGE_SEARCH_URL" description:"Image search service base URL (empty disables image enrichment)"`

	// Run behaviour
	DedupThreshold float64 `long:"dedup-threshold" env:"DEDUP_THRESHOLD" default:"0.85" description:"Cosine similarity threshold for near-duplicate records"`
	SkipReview     bool    `long:"skip-review" env:"SKIP_REVIEW" description:"Skip the review checkpoint between persist and merge"`
	VerifyLedger   bool    `long:"verify-ledger" description:"Print audit database statistics and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"EventPipe/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Singapore" description:"Civil timezone for inferred event times"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses environment variables and command-line flags into a Cfg.
// The returned struct is passed by reference into each component's
// constructor; there is no package-global configuration state.
func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		SourcesDir:     raw.SourcesDir,
		DataDir:        raw.DataDir,
		AuditDBPath:    raw.AuditDBPath,
		LockFile:       raw.LockFile,
		BackendURL:     raw.BackendURL,
		BackendAPIKey:  raw.BackendAPIKey,
		BackendModel:   raw.BackendModel,
		BackendTimeout: raw.BackendTimeout,
		EmbedURL:       raw.EmbedURL,
		EmbedModel:     raw.EmbedModel,
		GeoURL:         raw.GeoURL,
		ImageSearchURL: raw.ImageSearchURL,
		DedupThreshold: raw.DedupThreshold,
		SkipReview:     raw.SkipReview,
		VerifyLedger:   raw.VerifyLedger,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %d", cfg.BackendTimeout)
	}
	if cfg.DedupThreshold <= 0 || cfg.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold must be in (0, 1], got %v", cfg.DedupThreshold)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

// Location resolves the configured civil timezone. Validation at load time
// guarantees this cannot fail.
func (c *Cfg) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
