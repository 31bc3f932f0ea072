package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/arishya7/event-enrichment-sub000/app/backend"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
)

// scriptedGenerator replays canned responses in order, one per Generate
// call, and returns a fixed count.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	count     int
	countErr  error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, _ json.RawMessage) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "[]", nil
}

func (g *scriptedGenerator) Count(_ context.Context, _ string) (int, error) {
	return g.count, g.countErr
}

func testItem() feed.Item {
	return feed.Item{
		Partition:  "test",
		ID:         42,
		GUID:       "https://example.com/?p=42",
		Title:      "Weekend guide",
		Body:       "Things to do this weekend.",
		SourceLink: "https://example.com/weekend",
	}
}

func newTestEngine(gen backend.Generator) *Engine {
	return NewEngine(backend.NewCaller(gen, 5*time.Second))
}

func TestRunEmptyResponseRetriedOnce(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{
			"",
			`[{"title": "Night Market", "venue_name": "Gardens"}, {"title": "Art Walk", "venue_name": "Civic District"}]`,
		},
	}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), false)

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates after empty retry, got: %d", len(candidates))
	}
	if gen.calls != 2 {
		t.Errorf("Expected exactly 2 backend calls, got: %d", gen.calls)
	}
	if title, _ := candidates[0]["title"].(string); title != "Night Market" {
		t.Errorf("Expected first candidate title 'Night Market', got: %v", candidates[0]["title"])
	}
}

func TestRunEmptyTwiceYieldsNothing(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"", "[]"}}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), false)

	if len(candidates) != 0 {
		t.Errorf("Expected no candidates from a confirmed empty response, got: %d", len(candidates))
	}
	if gen.calls != 2 {
		t.Errorf("Expected 2 backend calls, got: %d", gen.calls)
	}
}

func TestRunSalvagesAfterExhaustedRetries(t *testing.T) {
	garbled := `Here are the events: {"title": "Night Market", "venue_name": "Gardens"} and also {"title": "Art Walk", "venue_name": "Civic District"} hope this helps`
	gen := &scriptedGenerator{
		responses: []string{garbled, garbled, garbled},
	}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), false)

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 salvaged candidates from truncated output, got: %d", len(candidates))
	}
	if venue, _ := candidates[1]["venue_name"].(string); venue != "Civic District" {
		t.Errorf("Expected second salvaged venue 'Civic District', got: %v", candidates[1]["venue_name"])
	}
}

func TestRunListingSmallEstimateSingleCall(t *testing.T) {
	gen := &scriptedGenerator{
		count:     6,
		responses: []string{`[{"title": "Spot One"}, {"title": "Spot Two"}]`},
	}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), true)

	if len(candidates) != 2 {
		t.Errorf("Expected 2 candidates, got: %d", len(candidates))
	}
	if gen.calls != 1 {
		t.Errorf("Expected a single generate call for a small listing, got: %d", gen.calls)
	}
}

func TestRunListingCountFailureUsesDefault(t *testing.T) {
	gen := &windowedGenerator{total: defaultEstimate}
	engine := newTestEngine(&countFailingGenerator{windowedGenerator: gen})

	candidates := engine.Run(context.Background(), testItem(), true)

	// defaultEstimate exceeds singleCallMax, so the run must be windowed
	// and cover every numbered entry exactly once.
	if len(candidates) != defaultEstimate {
		t.Errorf("Expected %d candidates from the default estimate, got: %d", defaultEstimate, len(candidates))
	}
}

// windowedGenerator answers window prompts with one record per requested
// index, clipped to a fixed total, so coverage of the index space can be
// checked end to end.
type windowedGenerator struct {
	total int
	calls int
}

var windowRangeRe = regexp.MustCompile(`events #(\d+) to #(\d+)`)

func (g *windowedGenerator) Generate(_ context.Context, prompt string, _ json.RawMessage) (string, error) {
	g.calls++
	m := windowRangeRe.FindStringSubmatch(prompt)
	if m == nil {
		return "", fmt.Errorf("prompt carries no window range")
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])

	var records []string
	for i := start; i <= end && i <= g.total; i++ {
		records = append(records, fmt.Sprintf(`{"title": "Venue %03d", "venue_name": "Hall %03d"}`, i, i))
	}
	return "[" + strings.Join(records, ", ") + "]", nil
}

func (g *windowedGenerator) Count(_ context.Context, _ string) (int, error) {
	return g.total, nil
}

type countFailingGenerator struct {
	*windowedGenerator
}

func (g *countFailingGenerator) Count(_ context.Context, _ string) (int, error) {
	return 0, errors.New("count unavailable")
}

func TestRunListingWindowsCoverEveryEntry(t *testing.T) {
	gen := &windowedGenerator{total: 20}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), true)

	if len(candidates) != 20 {
		t.Fatalf("Expected 20 candidates across windows, got: %d", len(candidates))
	}

	expectedCalls := 3 // 1-8, 9-16, 17-20
	if gen.calls != expectedCalls {
		t.Errorf("Expected %d window calls, got: %d", expectedCalls, gen.calls)
	}

	seen := make(map[string]bool)
	for _, c := range candidates {
		title, _ := c["title"].(string)
		if seen[title] {
			t.Errorf("Expected each entry once, got duplicate: %s", title)
		}
		seen[title] = true
	}
	for i := 1; i <= 20; i++ {
		title := fmt.Sprintf("Venue %03d", i)
		if !seen[title] {
			t.Errorf("Expected window coverage to include %s", title)
		}
	}
}

func TestRunListingEstimateCapped(t *testing.T) {
	gen := &windowedGenerator{total: 500}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), true)

	if len(candidates) != maxEstimate {
		t.Errorf("Expected candidates capped at %d, got: %d", maxEstimate, len(candidates))
	}
}

func TestRunDropsRepeatedTitlesAcrossWindows(t *testing.T) {
	gen := &scriptedGenerator{
		count: 16,
		responses: []string{
			`[{"title": "Night Market"}, {"title": "Art Walk"}]`,
			`[{"title": "night market "}, {"title": "Book Fair"}]`,
		},
	}
	engine := newTestEngine(gen)

	candidates := engine.Run(context.Background(), testItem(), true)

	if len(candidates) != 3 {
		t.Fatalf("Expected 3 unique candidates, got: %d", len(candidates))
	}
	for _, c := range candidates {
		if title, _ := c["title"].(string); title == "night market " {
			t.Errorf("Expected boundary duplicate to be dropped, got: %v", title)
		}
	}
}
