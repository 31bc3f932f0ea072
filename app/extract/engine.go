package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/arishya7/event-enrichment-sub000/app/backend"
	"github.com/arishya7/event-enrichment-sub000/app/event"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
)

const (
	// windowSize is how many records one windowed call asks for.
	windowSize = 8
	// singleCallMax is the largest estimate still extracted in one call.
	singleCallMax = 10
	// defaultEstimate stands in when the count call fails.
	defaultEstimate = 15
	// maxEstimate caps runaway count responses.
	maxEstimate = 100
)

// Engine converts one content item into candidate records through the
// generation backend, tolerating timeouts, empty responses and truncated
// output. An item that defeats every recovery path yields an empty result,
// never an error: a single item must not abort its partition.
type Engine struct {
	caller *backend.Caller
}

func NewEngine(caller *backend.Caller) *Engine {
	return &Engine{caller: caller}
}

// Run extracts candidates from the item. Listing items are first sized with
// a count call and, when large, split into fixed windows so each response
// stays inside a safe length budget.
func (e *Engine) Run(ctx context.Context, item feed.Item, listing bool) []event.Candidate {
	var candidates []event.Candidate

	if listing {
		candidates = e.runWindowed(ctx, item)
	} else {
		candidates = e.collect(ctx, buildItemPrompt(item), item, "item")
	}

	return dedupeByTitle(candidates)
}

func (e *Engine) runWindowed(ctx context.Context, item feed.Item) []event.Candidate {
	estimate := e.estimateCount(ctx, item)

	if estimate <= singleCallMax {
		return e.collect(ctx, buildWindowPrompt(item, 1, estimate), item, "single window")
	}

	var all []event.Candidate
	for start := 1; start <= estimate; start += windowSize {
		end := min(start+windowSize-1, estimate)
		slog.Debug("Extracting window",
			"partition", item.Partition,
			"item", item.ID,
			"start", start,
			"end", end)

		window := e.collect(ctx, buildWindowPrompt(item, start, end), item, "window")
		all = append(all, window...)
	}
	return all
}

func (e *Engine) estimateCount(ctx context.Context, item feed.Item) int {
	count, err := e.caller.Count(ctx, buildCountPrompt(item))
	if err != nil || count <= 0 {
		slog.Warn("Count estimate failed, using default",
			"partition", item.Partition,
			"item", item.ID,
			"default", defaultEstimate,
			"error", err)
		return defaultEstimate
	}
	return min(count, maxEstimate)
}

// collect issues one retried backend call and parses the outcome. A failed
// call may still leave salvageable text behind; anything recovered from it
// is kept.
func (e *Engine) collect(ctx context.Context, prompt string, item feed.Item, scope string) []event.Candidate {
	result := e.caller.Generate(ctx, prompt, recordSchema, func(text string) backend.Outcome {
		_, outcome := Parse(text)
		return outcome
	})

	switch result.Status {
	case backend.StatusOK:
		candidates, _ := Parse(result.Text)
		return candidates
	case backend.StatusEmpty:
		slog.Debug("No records in response",
			"partition", item.Partition,
			"item", item.ID,
			"scope", scope)
		return nil
	default:
		if result.Text != "" {
			if salvaged := SalvageObjects(StripFences(result.Text)); len(salvaged) > 0 {
				slog.Info("Salvaged records from failed extraction",
					"partition", item.Partition,
					"item", item.ID,
					"scope", scope,
					"recovered", len(salvaged))
				return salvaged
			}
		}
		slog.Warn("Extraction failed, yielding empty result",
			"partition", item.Partition,
			"item", item.ID,
			"scope", scope,
			"error", result.Err)
		return nil
	}
}

// dedupeByTitle drops candidates whose normalized title repeats one already
// accepted for the same item; overlapping windows routinely return the
// boundary record twice.
func dedupeByTitle(candidates []event.Candidate) []event.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	seen := make(map[string]bool, len(candidates))
	kept := make([]event.Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		title, _ := candidate["title"].(string)
		key := strings.ToLower(strings.TrimSpace(title))
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, candidate)
	}

	return kept
}
