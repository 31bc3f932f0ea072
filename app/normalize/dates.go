package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// datePhraseRe matches the date shapes feeds actually use: ISO dates,
// slash dates, "12 Jan 2026" and "Jan 12, 2026" with optional ordinals.
var datePhraseRe = regexp.MustCompile(fmt.Sprintf(
	`(?i)\b(\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?`+
		`|\d{1,2}/\d{1,2}/\d{2,4}`+
		`|\d{1,2}(?:st|nd|rd|th)?\s+(?:%[1]s)(?:\s+\d{4})?`+
		`|(?:%[1]s)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?)\b`,
	monthNames))

var ordinalRe = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)\b`)

var yearRe = regexp.MustCompile(`\d{4}`)

// InferDates scans display text, description and item body, in that
// priority order, for date-like phrases. Within the first text that yields
// any parseable date, the first match becomes the start and the second,
// when present, the end; the end defaults to the start. Results are civil
// times in loc, formatted RFC 3339.
func InferDates(display, description, body string, loc *time.Location) (start, end string) {
	for _, text := range []string{display, description, body} {
		if strings.TrimSpace(text) == "" {
			continue
		}

		var parsed []time.Time
		for _, phrase := range datePhraseRe.FindAllString(text, 3) {
			if t, ok := parsePhrase(phrase, loc); ok {
				parsed = append(parsed, t)
			}
			if len(parsed) == 2 {
				break
			}
		}
		if len(parsed) == 0 {
			continue
		}

		start = parsed[0].Format(time.RFC3339)
		end = start
		if len(parsed) > 1 {
			end = parsed[1].Format(time.RFC3339)
		}
		return start, end
	}

	return "", ""
}

// parsePhrase normalizes one matched phrase and parses it in loc. Phrases
// without an explicit year get the current year appended; slash and ISO
// forms already carry one.
func parsePhrase(phrase string, loc *time.Location) (time.Time, bool) {
	cleaned := ordinalRe.ReplaceAllString(strings.TrimSpace(phrase), "$1")
	if !yearRe.MatchString(cleaned) && !strings.ContainsAny(cleaned, "/-") {
		cleaned = fmt.Sprintf("%s %d", cleaned, time.Now().In(loc).Year())
	}

	t, err := dateparse.ParseIn(cleaned, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// displayDate renders a human-readable date line from inferred timestamps.
func displayDate(start, end string, loc *time.Location) string {
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return ""
	}
	startTime = startTime.In(loc)

	display := startTime.Format("2 Jan 2006")
	if end != "" && end != start {
		if endTime, err := time.Parse(time.RFC3339, end); err == nil {
			endTime = endTime.In(loc)
			if !endTime.Truncate(24 * time.Hour).Equal(startTime.Truncate(24 * time.Hour)) {
				display += " - " + endTime.Format("2 Jan 2006")
			}
		}
	}
	return display
}
