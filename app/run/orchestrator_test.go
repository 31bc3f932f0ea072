package run

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arishya7/event-enrichment-sub000/app/backend"
	"github.com/arishya7/event-enrichment-sub000/app/cfg"
	"github.com/arishya7/event-enrichment-sub000/app/config"
	"github.com/arishya7/event-enrichment-sub000/app/event"
	"github.com/arishya7/event-enrichment-sub000/app/extract"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
	"github.com/arishya7/event-enrichment-sub000/app/ledger"
	"github.com/arishya7/event-enrichment-sub000/app/normalize"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Alpha Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Family Fun Day Announced</title>
      <link>https://example.com/?p=101</link>
      <guid>https://example.com/?p=101</guid>
      <description>Fun things happening on 12 March 2026 downtown for families and kids of all ages.</description>
    </item>
    <item>
      <title>New Playground Opens</title>
      <link>https://example.com/?p=102</link>
      <guid>https://example.com/?p=102</guid>
      <description>A new outdoor playground with slides and swings opens 5 May 2026 in the east.</description>
    </item>
  </channel>
</rss>`

// recordGenerator returns one complete record per generate call.
type recordGenerator struct {
	calls int
}

func (g *recordGenerator) Generate(_ context.Context, _ string, _ json.RawMessage) (string, error) {
	g.calls++
	record := fmt.Sprintf(`[{
		"title": "Generated Event %d at the Community Hall",
		"blurb": "A community gathering for families",
		"description": "A community gathering for families with games, food stalls and live performances running all afternoon in the main hall.",
		"venue_name": "Community Hall %d",
		"datetime_display": "12 March 2026",
		"start_datetime": "2026-03-12T10:00:00+08:00",
		"end_datetime": "2026-03-12T18:00:00+08:00",
		"price_display": "Free",
		"is_free": true
	}]`, g.calls, g.calls)
	return record, nil
}

func (g *recordGenerator) Count(_ context.Context, _ string) (int, error) {
	return 1, nil
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML)
	}))
	t.Cleanup(server.Close)
	return server
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func testPartition(name, url string) *config.Partition {
	return &config.Partition{
		Name: name,
		URL:  url,
		Settings: config.Settings{
			Enabled:  true,
			Timeout:  5,
			MaxItems: 10,
		},
	}
}

func newTestOrchestrator(t *testing.T, dataDir string, partitions map[string]*config.Partition) *Orchestrator {
	t.Helper()

	audit, err := ledger.OpenAuditStore(filepath.Join(dataDir, "audit.db"))
	if err != nil {
		t.Fatalf("Failed to open audit store: %v", err)
	}
	t.Cleanup(func() { audit.Close() })

	c := &cfg.Cfg{
		DataDir:    dataDir,
		SkipReview: true,
		Timezone:   "Asia/Singapore",
	}

	source := feed.NewSource(&http.Client{}, feed.NewParser(), nil, "test-agent")
	engine := extract.NewEngine(backend.NewCaller(&recordGenerator{}, 5*time.Second))
	normalizer := normalize.NewNormalizer(time.FixedZone("+08", 8*3600))
	led := ledger.NewLedger(dataDir)

	return NewOrchestrator(c, partitions, source, engine, normalizer, nil, nil, led, audit, nil)
}

func TestRunEndToEnd(t *testing.T) {
	server := feedServer(t)
	dataDir := t.TempDir()
	partitions := map[string]*config.Partition{
		"alpha": testPartition("alpha", server.URL),
	}

	o := newTestOrchestrator(t, dataDir, partitions)
	runs, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("Expected 1 partition run, got: %d", len(runs))
	}
	pr := runs[0]
	if pr.State != StateDone {
		t.Errorf("Expected state DONE, got: %s (err: %v)", pr.State, pr.Err)
	}
	if pr.Items != 2 || pr.NewItems != 2 || pr.Kept != 2 || pr.Merged != 2 {
		t.Errorf("Expected 2 items processed end to end, got: %+v", pr)
	}

	var merged []event.Record
	data, err := os.ReadFile(filepath.Join(dataDir, "events.json"))
	if err != nil {
		t.Fatalf("Failed to read merged output: %v", err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("Failed to decode merged output: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("Expected 2 merged records, got: %d", len(merged))
	}
	if merged[0].Sequence != "1" || merged[1].Sequence != "2" {
		t.Errorf("Expected sequences 1,2, got: %q,%q", merged[0].Sequence, merged[1].Sequence)
	}

	for _, id := range []int64{101, 102} {
		seen, err := o.ledger.Contains("alpha", id)
		if err != nil || !seen {
			t.Errorf("Expected ledger to contain item %d, got: %v, %v", id, seen, err)
		}
	}

	// The output directory is named after the run stamp.
	stamps, err := os.ReadDir(filepath.Join(dataDir, "events"))
	if err != nil || len(stamps) != 1 {
		t.Fatalf("Expected one run output directory, got: %v, %v", stamps, err)
	}
	history, err := o.audit.RunHistory(stamps[0].Name())
	if err != nil {
		t.Fatalf("RunHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Partition != "alpha" || history[0].State != string(StateDone) {
		t.Errorf("Expected a DONE history row for alpha, got: %+v", history)
	}
}

func TestRunRerunYieldsNothingNew(t *testing.T) {
	server := feedServer(t)
	dataDir := t.TempDir()
	partitions := map[string]*config.Partition{
		"alpha": testPartition("alpha", server.URL),
	}

	first := newTestOrchestrator(t, dataDir, partitions)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	second := newTestOrchestrator(t, dataDir, partitions)
	runs, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	pr := runs[0]
	if pr.NewItems != 0 || pr.Kept != 0 || pr.Merged != 0 {
		t.Errorf("Expected rerun over unchanged feed to yield nothing, got: %+v", pr)
	}
	if pr.State != StateDone {
		t.Errorf("Expected rerun to finish cleanly, got state: %s", pr.State)
	}
}

func TestRunFeedFailureIsolatesPartition(t *testing.T) {
	good := feedServer(t)
	bad := failingServer(t)
	dataDir := t.TempDir()
	partitions := map[string]*config.Partition{
		"alpha": testPartition("alpha", good.URL),
		"bravo": testPartition("bravo", bad.URL),
	}

	o := newTestOrchestrator(t, dataDir, partitions)
	runs, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byName := make(map[string]*PartitionRun)
	for _, pr := range runs {
		byName[pr.Name] = pr
	}

	if byName["bravo"].State != StateFailed || byName["bravo"].Err == nil {
		t.Errorf("Expected failing partition FAILED, got: %s", byName["bravo"].State)
	}
	if byName["alpha"].State != StateDone {
		t.Errorf("Expected healthy partition unaffected, got: %s (err: %v)",
			byName["alpha"].State, byName["alpha"].Err)
	}
}

func TestRunMergeSequenceContinuesAcrossRuns(t *testing.T) {
	server := feedServer(t)
	dataDir := t.TempDir()
	partitions := map[string]*config.Partition{
		"alpha": testPartition("alpha", server.URL),
	}

	o := newTestOrchestrator(t, dataDir, partitions)
	if err := o.audit.RecordProcessed("old", "1", "20200101_000000", 5); err != nil {
		t.Fatalf("Failed to seed audit store: %v", err)
	}

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var merged []event.Record
	data, err := os.ReadFile(filepath.Join(dataDir, "events.json"))
	if err != nil {
		t.Fatalf("Failed to read merged output: %v", err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("Failed to decode merged output: %v", err)
	}
	if len(merged) == 0 || merged[0].Sequence != "6" {
		t.Fatalf("Expected sequence to continue from prior total 5, got: %+v", merged)
	}
}

func TestRenderSummary(t *testing.T) {
	runs := []*PartitionRun{
		{Name: "alpha", State: StateDone, Items: 2, NewItems: 2, Kept: 2, Merged: 2},
		{Name: "bravo", State: StateFailed, Err: fmt.Errorf("feed fetch failed")},
	}

	rendered := RenderSummary(runs)

	for _, want := range []string{"alpha", "bravo", "DONE", "FAILED", "feed fetch failed", "Total"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Expected summary to contain %q:\n%s", want, rendered)
		}
	}
}
