package event

// Record is a fully normalized event, the unit persisted to partition output
// files and to the merged output. Fields map one-to-one onto the JSON schema
// the generation backend is asked to produce.
type Record struct {
	Sequence        string   `json:"id,omitempty"` // assigned once, at merge time
	Title           string   `json:"title"`
	Blurb           string   `json:"blurb"`
	Description     string   `json:"description"`
	GUID            string   `json:"guid"`
	ActivityOrEvent string   `json:"activity_or_event"`
	URL             string   `json:"url"`
	PriceDisplay    string   `json:"price_display"`
	Price           float64  `json:"price"`
	IsFree          bool     `json:"is_free"`
	Organiser       string   `json:"organiser"`
	AgeGroupDisplay string   `json:"age_group_display"`
	MinAge          float64  `json:"min_age"`
	MaxAge          float64  `json:"max_age"`
	DatetimeDisplay string   `json:"datetime_display"`
	StartDatetime   string   `json:"start_datetime"`
	EndDatetime     string   `json:"end_datetime"`
	VenueName       string   `json:"venue_name"`
	Categories      []string `json:"categories"`
	ScrapedOn       string   `json:"scraped_on"`

	// Enrichment fields, filled by external collaborators after
	// normalization. Allowed to stay empty through validation.
	FullAddress string  `json:"full_address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Images      []Image `json:"images"`

	// SourceItemID links the record back to the content item it was
	// extracted from.
	SourceItemID int64 `json:"source_item_id"`

	// SyntheticFields lists canonical keys whose values were synthesized by
	// the normalizer rather than produced by the backend, so downstream
	// classification can prefer a real value over the heuristic one.
	SyntheticFields []string `json:"synthetic_fields,omitempty"`

	// Duplicate is set by the deduplicator when a kept record with a
	// near-identical fingerprint precedes this one.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Image describes one downloaded image attached to a record.
type Image struct {
	OriginalURL  string `json:"original_url"`
	LocalPath    string `json:"local_path"`
	Filename     string `json:"filename"`
	SourceCredit string `json:"source_credit,omitempty"`
}

// Candidate is raw backend output for a single event before normalization.
// It is schema-free on purpose: the backend may return aliased, missing or
// unknown keys, all of which the normalizer resolves.
type Candidate map[string]any

// CanonicalKeys is the declared record schema. The normalizer drops any
// candidate key not present here before validation.
var CanonicalKeys = []string{
	"title", "blurb", "description", "guid", "activity_or_event", "url",
	"price_display", "price", "is_free", "organiser",
	"age_group_display", "min_age", "max_age",
	"datetime_display", "start_datetime", "end_datetime",
	"venue_name", "categories", "scraped_on",
	"full_address", "latitude", "longitude", "images",
}

// RequiredKeys must be non-empty after fallback synthesis for a record to be
// persisted. Enrichment keys are excluded: collaborators populate them after
// validation.
var RequiredKeys = []string{
	"title", "blurb", "description", "guid", "activity_or_event", "url",
	"price_display", "organiser", "age_group_display",
	"datetime_display", "start_datetime", "end_datetime",
	"venue_name", "categories", "scraped_on",
}

// FingerprintText concatenates the fields the deduplicator embeds.
func (r *Record) FingerprintText() string {
	text := r.Title
	if r.Blurb != "" {
		text += " " + r.Blurb
	}
	if r.Description != "" {
		text += " " + r.Description
	}
	return text
}
