package cfg

type Cfg struct {
	// Storage configuration
	SourcesDir  string
	DataDir     string
	AuditDBPath string
	LockFile    string

	// Generation backend configuration
	BackendURL     string
	BackendAPIKey  string
	BackendModel   string
	BackendTimeout int

	// Embedding service configuration
	EmbedURL   string
	EmbedModel string

	// Enrichment collaborators (optional; empty disables the stage)
	GeoURL         string
	ImageSearchURL string

	// Run behaviour
	DedupThreshold float64
	SkipReview     bool
	VerifyLedger   bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
