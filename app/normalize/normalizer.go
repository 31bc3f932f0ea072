package normalize

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arishya7/event-enrichment-sub000/app/event"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
)

// keyAliases maps alternate field names the backend is known to emit onto
// canonical schema keys. An existing canonical value wins over an alias
// unless the canonical value is empty.
var keyAliases = map[string]string{
	"name":              "title",
	"event_name":        "title",
	"event_title":       "title",
	"summary":           "blurb",
	"short_description": "blurb",
	"details":           "description",
	"event_description": "description",
	"link":              "url",
	"event_url":         "url",
	"venue":             "venue_name",
	"location":          "venue_name",
	"start":             "start_datetime",
	"start_date":        "start_datetime",
	"start_time":        "start_datetime",
	"end":               "end_datetime",
	"end_date":          "end_datetime",
	"end_time":          "end_datetime",
	"date":              "datetime_display",
	"dates":             "datetime_display",
	"when":              "datetime_display",
	"cost":              "price_display",
	"price_text":        "price_display",
	"organizer":         "organiser",
	"age_group":         "age_group_display",
	"age_range":         "age_group_display",
	"address":           "full_address",
	"category":          "categories",
}

// enrichmentKeys stay empty through validation; external collaborators fill
// them after normalization.
var enrichmentKeys = []string{"full_address", "latitude", "longitude", "images"}

// Stats reports the fate of one item's candidates.
type Stats struct {
	Kept     int
	Dropped  int
	Excluded int
}

// Normalizer turns raw backend candidates into schema-complete records:
// alias resolution, unknown-key stripping, temporal inference, fallback
// synthesis and final validation, in that order.
type Normalizer struct {
	loc        *time.Location
	now        func() time.Time
	titleCaser cases.Caser
}

func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{
		loc:        loc,
		now:        time.Now,
		titleCaser: cases.Title(language.English),
	}
}

// Run normalizes every candidate extracted from one item. Candidates that
// match an exclusion keyword or that miss a required field after synthesis
// are dropped and counted, never returned as an error: one bad candidate
// must not take its siblings down.
func (n *Normalizer) Run(item feed.Item, candidates []event.Candidate) ([]event.Record, Stats) {
	var (
		records []event.Record
		stats   Stats
	)

	for i, candidate := range candidates {
		record := n.finalize(n.build(candidate, item), item)

		if keyword := matchExclusionKeyword(&record); keyword != "" {
			stats.Excluded++
			slog.Info("Record excluded as irrelevant",
				"partition", item.Partition,
				"item", item.ID,
				"candidate", i,
				"keyword", keyword,
				"title", record.Title)
			continue
		}

		if missing := missingRequiredKeys(&record); len(missing) > 0 {
			stats.Dropped++
			slog.Warn("Record dropped, required fields still empty after synthesis",
				"partition", item.Partition,
				"item", item.ID,
				"candidate", i,
				"missing", strings.Join(missing, ","))
			continue
		}

		stats.Kept++
		records = append(records, record)
	}

	return records, stats
}

// build is the raw phase: resolve aliases, drop unknown keys and coerce the
// surviving values into a record. No derivation happens here.
func (n *Normalizer) build(candidate event.Candidate, item feed.Item) event.Record {
	resolved := resolveAliases(candidate)

	record := event.Record{
		Title:           stringValue(resolved, "title"),
		Blurb:           stringValue(resolved, "blurb"),
		Description:     stringValue(resolved, "description"),
		GUID:            stringValue(resolved, "guid"),
		ActivityOrEvent: stringValue(resolved, "activity_or_event"),
		URL:             stringValue(resolved, "url"),
		PriceDisplay:    stringValue(resolved, "price_display"),
		Price:           floatValue(resolved, "price"),
		IsFree:          boolValue(resolved, "is_free"),
		Organiser:       stringValue(resolved, "organiser"),
		AgeGroupDisplay: stringValue(resolved, "age_group_display"),
		MinAge:          floatValue(resolved, "min_age"),
		MaxAge:          floatValue(resolved, "max_age"),
		DatetimeDisplay: stringValue(resolved, "datetime_display"),
		StartDatetime:   stringValue(resolved, "start_datetime"),
		EndDatetime:     stringValue(resolved, "end_datetime"),
		VenueName:       stringValue(resolved, "venue_name"),
		Categories:      stringListValue(resolved, "categories"),
		ScrapedOn:       stringValue(resolved, "scraped_on"),
		SourceItemID:    item.ID,
	}

	return record
}

// resolveAliases remaps alternate keys onto canonical ones and strips keys
// the schema does not declare. Canonical keys are copied first so an alias
// can only fill a canonical slot that is empty.
func resolveAliases(candidate event.Candidate) event.Candidate {
	resolved := make(event.Candidate, len(candidate))

	for key, value := range candidate {
		if isCanonicalKey(key) {
			resolved[key] = value
		}
	}
	for key, value := range candidate {
		canonical, isAlias := keyAliases[key]
		if !isAlias || isEmptyValue(value) {
			continue
		}
		if isEmptyValue(resolved[canonical]) {
			resolved[canonical] = value
		}
	}

	return resolved
}

// finalize is the derivation phase: fill what the backend left empty, using
// the originating item, and flag every synthesized field.
func (n *Normalizer) finalize(record event.Record, item feed.Item) event.Record {
	synthetic := func(key string) {
		record.SyntheticFields = append(record.SyntheticFields, key)
	}

	if record.GUID == "" {
		record.GUID = item.GUID
	}
	if record.URL == "" && item.SourceLink != "" {
		record.URL = item.SourceLink
		synthetic("url")
	}
	if record.ScrapedOn == "" {
		record.ScrapedOn = n.now().In(n.loc).Format(time.RFC3339)
	}
	if record.ActivityOrEvent == "" {
		record.ActivityOrEvent = "event"
		synthetic("activity_or_event")
	}

	if record.StartDatetime == "" {
		start, end := InferDates(record.DatetimeDisplay, record.Description, item.Body, n.loc)
		if start != "" {
			record.StartDatetime = start
			record.EndDatetime = end
			synthetic("start_datetime")
			synthetic("end_datetime")
		}
	}
	if record.EndDatetime == "" && record.StartDatetime != "" {
		record.EndDatetime = record.StartDatetime
		synthetic("end_datetime")
	}
	if record.DatetimeDisplay == "" && record.StartDatetime != "" {
		record.DatetimeDisplay = displayDate(record.StartDatetime, record.EndDatetime, n.loc)
		synthetic("datetime_display")
	}

	if record.Title == "" {
		if title := n.synthesizeTitle(item.Title, record.Description); title != "" {
			record.Title = title
			synthetic("title")
		}
	}
	if record.Description == "" {
		if desc := synthesizeDescription(item.Body, record.Title); desc != "" {
			record.Description = desc
			synthetic("description")
		}
	}
	if record.Blurb == "" {
		if blurb := synthesizeBlurb(record.Description, record.Title); blurb != "" {
			record.Blurb = blurb
			synthetic("blurb")
		}
	}

	if record.PriceDisplay == "" && record.Price == 0 {
		record.PriceDisplay = "Free"
		record.IsFree = true
		synthetic("price_display")
	}
	if record.PriceDisplay == "" && record.Price > 0 {
		record.PriceDisplay = fmt.Sprintf("$%s", strconv.FormatFloat(record.Price, 'f', -1, 64))
		synthetic("price_display")
	}

	if record.Organiser == "" {
		if organiser := firstNonEmpty(item.Author, record.VenueName); organiser != "" {
			record.Organiser = organiser
			synthetic("organiser")
		}
	}

	if record.AgeGroupDisplay == "" {
		record.AgeGroupDisplay = ageGroupDisplay(record.MinAge, record.MaxAge)
		synthetic("age_group_display")
	}

	if len(record.Categories) == 0 {
		record.Categories = []string{classifyCategory(&record)}
		synthetic("categories")
	}

	return record
}

// missingRequiredKeys reports required fields that are still empty, skipping
// the enrichment allow-list.
func missingRequiredKeys(record *event.Record) []string {
	var missing []string
	for _, key := range event.RequiredKeys {
		if isEnrichmentKey(key) {
			continue
		}
		if !recordHasValue(record, key) {
			missing = append(missing, key)
		}
	}
	return missing
}

func recordHasValue(record *event.Record, key string) bool {
	switch key {
	case "title":
		return record.Title != ""
	case "blurb":
		return record.Blurb != ""
	case "description":
		return record.Description != ""
	case "guid":
		return record.GUID != ""
	case "activity_or_event":
		return record.ActivityOrEvent != ""
	case "url":
		return record.URL != ""
	case "price_display":
		return record.PriceDisplay != ""
	case "organiser":
		return record.Organiser != ""
	case "age_group_display":
		return record.AgeGroupDisplay != ""
	case "datetime_display":
		return record.DatetimeDisplay != ""
	case "start_datetime":
		return record.StartDatetime != ""
	case "end_datetime":
		return record.EndDatetime != ""
	case "venue_name":
		return record.VenueName != ""
	case "categories":
		return len(record.Categories) > 0
	case "scraped_on":
		return record.ScrapedOn != ""
	default:
		return true
	}
}

func isCanonicalKey(key string) bool {
	for _, canonical := range event.CanonicalKeys {
		if key == canonical {
			return true
		}
	}
	return false
}

func isEnrichmentKey(key string) bool {
	for _, enrichment := range enrichmentKeys {
		if key == enrichment {
			return true
		}
	}
	return false
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func stringValue(candidate event.Candidate, key string) string {
	if s, ok := candidate[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatValue(candidate event.Candidate, key string) float64 {
	switch v := candidate[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

func boolValue(candidate event.Candidate, key string) bool {
	if b, ok := candidate[key].(bool); ok {
		return b
	}
	return false
}

func stringListValue(candidate event.Candidate, key string) []string {
	switch v := candidate[key].(type) {
	case []any:
		var list []string
		for _, entry := range v {
			if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
				list = append(list, strings.TrimSpace(s))
			}
		}
		return list
	case string:
		var list []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return list
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func ageGroupDisplay(minAge, maxAge float64) string {
	switch {
	case minAge > 0 && maxAge > 0:
		return fmt.Sprintf("%s to %s years", formatAge(minAge), formatAge(maxAge))
	case minAge > 0:
		return fmt.Sprintf("%s years and up", formatAge(minAge))
	case maxAge > 0:
		return fmt.Sprintf("Up to %s years", formatAge(maxAge))
	default:
		return "All ages"
	}
}

func formatAge(age float64) string {
	return strconv.FormatFloat(age, 'f', -1, 64)
}
