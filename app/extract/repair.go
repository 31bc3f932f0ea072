package extract

import (
	"encoding/json"
	"strings"

	"github.com/arishya7/event-enrichment-sub000/app/backend"
	"github.com/arishya7/event-enrichment-sub000/app/event"
)

// salvageKeys is the key set a freestanding object fragment must carry to
// be worth keeping when the surrounding document is unparseable.
var salvageKeys = []string{"title", "venue_name"}

// Parse turns raw backend text into candidates, classifying the response on
// the way: a blank or empty-array response is Empty, a response neither a
// full-document parse nor structural repair of truncation can read is
// Malformed. Fragment salvage is deliberately not attempted here; a
// malformed response is worth a retry first, and salvage is the caller's
// last resort once retries are spent.
func Parse(text string) ([]event.Candidate, backend.Outcome) {
	cleaned := StripFences(text)
	if cleaned == "" || cleaned == "[]" {
		return nil, backend.OutcomeEmpty
	}

	if candidates, ok := decodeCandidates(cleaned); ok {
		if len(candidates) == 0 {
			return nil, backend.OutcomeEmpty
		}
		return candidates, backend.OutcomeOK
	}

	if candidates, ok := decodeCandidates(RepairJSON(cleaned)); ok && len(candidates) > 0 {
		return candidates, backend.OutcomeOK
	}

	return nil, backend.OutcomeMalformed
}

// StripFences removes markdown code-block wrappers around a JSON payload.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")

	return strings.TrimSpace(cleaned)
}

func decodeCandidates(text string) ([]event.Candidate, bool) {
	var list []event.Candidate
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, true
	}

	var single event.Candidate
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		return []event.Candidate{single}, true
	}

	return nil, false
}

// RepairJSON fixes a length-truncated array: it cuts back to the last
// complete array element when one exists, otherwise closes whatever
// brackets remain open.
func RepairJSON(text string) string {
	if text == "" {
		return "[]"
	}

	openBrackets := strings.Count(text, "[") - strings.Count(text, "]")
	openBraces := strings.Count(text, "{") - strings.Count(text, "}")
	if openBrackets == 0 && openBraces == 0 {
		return text
	}

	if last := strings.LastIndex(text, "},"); last > 0 {
		return text[:last+1] + "]"
	}

	text = strings.TrimRight(text, ",\n\r\t ")
	return text + strings.Repeat("}", max(openBraces, 0)) + strings.Repeat("]", max(openBrackets, 0))
}

// SalvageObjects scans raw text for self-contained object fragments that
// carry the salvage key set. Malformed fragments are skipped, not errors.
func SalvageObjects(text string) []event.Candidate {
	var candidates []event.Candidate

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if candidate := salvageFragment(text[start : i+1]); candidate != nil {
					candidates = append(candidates, candidate)
				}
				start = -1
			}
		}
	}

	return candidates
}

func salvageFragment(fragment string) event.Candidate {
	var candidate event.Candidate
	if err := json.Unmarshal([]byte(fragment), &candidate); err != nil {
		return nil
	}

	for _, key := range salvageKeys {
		value, ok := candidate[key].(string)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
	}

	return candidate
}
