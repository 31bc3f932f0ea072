package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/arishya7/event-enrichment-sub000/app/event"
)

// Character windows for synthesized text fields. Real backend values are
// never reshaped; only fallback-derived values are fitted.
const (
	titleMinLen = 40
	titleMaxLen = 50
	blurbMinLen = 30
	blurbMaxLen = 50
	descMinLen  = 150
	descMaxLen  = 250
)

// catchAllCategory is assigned when no keyword hint matches.
const catchAllCategory = "kids attractions"

// categoryHints maps category names to lowercase keyword hints, checked in
// order; the first category with a matching hint wins.
var categoryHints = []struct {
	name  string
	hints []string
}{
	{"indoor playground", []string{
		"indoor play", "soft play", "ball pit", "indoor playground",
		"trampoline", "bounce", "bouncy castle", "climbing frame",
		"play centre", "play center", "playroom", "kids zone",
	}},
	{"outdoor playground", []string{
		"outdoor playground", "outdoor play", "play park", "adventure playground",
		"slide", "swing", "sandbox", "sand pit", "water play",
		"splash pad", "water park", "skate park", "nature playground",
	}},
	{"kids dining", []string{
		"restaurant", "cafe", "café", "brunch", "dining", "eatery",
		"kids menu", "children menu", "high tea", "buffet", "food court",
		"kids dine free", "family restaurant",
	}},
	{"malls", []string{
		"mall", "shopping centre", "shopping center", "shopping complex",
		"department store", "retail", "outlet", "pop-up", "meet and greet",
		"mascot",
	}},
	{"kids attractions", []string{
		"zoo", "aquarium", "theme park", "amusement park", "museum",
		"science centre", "science center", "art gallery", "carnival",
		"exhibition", "theatre", "theater", "planetarium", "botanical garden",
		"festival", "fair", "workshop", "farm", "heritage",
	}},
}

// exclusionKeywords mark a record as out of scope regardless of anything
// else it says.
var exclusionKeywords = []string{
	"tuition", "enrichment class", "enrichment program", "regular class",
	"trial class", "open house", "openhouse", "preschool", "primary school",
	"secondary school", "university", "baby fair", "maternity fair",
	"maternity expo", "consultation", "regular weekly", "ongoing class",
	"course enrollment", "university application", "school enrollment",
}

func (n *Normalizer) synthesizeTitle(sourceTitle, description string) string {
	base := firstNonEmpty(sourceTitle, description)
	if base == "" {
		return ""
	}
	if utf8.RuneCountInString(base) < titleMinLen && description != "" && base != description {
		base = strings.TrimSpace(base + " " + description)
	}
	return n.titleCaser.String(fitWindow(base, titleMinLen, titleMaxLen))
}

func synthesizeDescription(body, title string) string {
	base := firstNonEmpty(body, title)
	if base == "" {
		return ""
	}
	return fitWindow(base, descMinLen, descMaxLen)
}

func synthesizeBlurb(description, title string) string {
	base := firstNonEmpty(description, title)
	if base == "" {
		return ""
	}
	return fitWindow(base, blurbMinLen, blurbMaxLen)
}

// fitWindow normalizes text into [minLen, maxLen] characters: over-long
// text is truncated at a word boundary (hard-cut when the boundary would
// undershoot the window), short text is right-padded. The window counts
// runes, never bytes, so multi-byte text is never split mid-character.
func fitWindow(text string, minLen, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) > maxLen {
		cut := -1
		for i, r := range runes[:maxLen+1] {
			if r == ' ' {
				cut = i
			}
		}
		if cut < minLen {
			cut = maxLen
		}
		text = strings.TrimRight(string(runes[:cut]), " .,;:-")
	}
	if n := utf8.RuneCountInString(text); n < minLen {
		text += strings.Repeat(" ", minLen-n)
	}
	return text
}

// classifyCategory assigns one category from keyword hints over the
// record's descriptive text.
func classifyCategory(record *event.Record) string {
	text := strings.ToLower(strings.Join([]string{
		record.Title, record.Blurb, record.Description, record.VenueName,
	}, " "))

	for _, category := range categoryHints {
		for _, hint := range category.hints {
			if strings.Contains(text, hint) {
				return category.name
			}
		}
	}
	return catchAllCategory
}

// matchExclusionKeyword returns the first exclusion keyword found in the
// record's text fields, or "" when the record is relevant.
func matchExclusionKeyword(record *event.Record) string {
	text := strings.ToLower(strings.Join([]string{
		record.Title, record.Description, record.Blurb,
		record.VenueName, record.Organiser,
	}, " "))

	for _, keyword := range exclusionKeywords {
		if strings.Contains(text, keyword) {
			return keyword
		}
	}
	return ""
}
