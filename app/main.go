package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/arishya7/event-enrichment-sub000/app/backend"
	"github.com/arishya7/event-enrichment-sub000/app/cfg"
	"github.com/arishya7/event-enrichment-sub000/app/config"
	"github.com/arishya7/event-enrichment-sub000/app/dedup"
	"github.com/arishya7/event-enrichment-sub000/app/enrich"
	"github.com/arishya7/event-enrichment-sub000/app/extract"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
	"github.com/arishya7/event-enrichment-sub000/app/ledger"
	"github.com/arishya7/event-enrichment-sub000/app/normalize"
	"github.com/arishya7/event-enrichment-sub000/app/run"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogging(appCfg.Debug)
	slog.Info("Starting event pipeline", "version", cfg.GetVersion())

	if appCfg.VerifyLedger {
		if err := verifyLedger(appCfg); err != nil {
			slog.Error("Ledger verification failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runPipeline(appCfg); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runPipeline(appCfg *cfg.Cfg) error {
	// Concurrent runs against the same ledger state are unsupported; the
	// file lock serializes them.
	lock := flock.New(appCfg.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run holds the lock at %s", appCfg.LockFile)
	}
	defer lock.Unlock()

	loader := config.NewLoader(appCfg.SourcesDir)
	partitions, err := loader.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load partition configurations: %w", err)
	}
	slog.Info("Loaded partition configurations", "count", len(partitions))

	audit, err := ledger.OpenAuditStore(appCfg.AuditDBPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	generator := backend.NewClient(appCfg.BackendURL, appCfg.BackendAPIKey,
		appCfg.BackendModel, appCfg.UserAgent)
	caller := backend.NewCaller(generator, time.Duration(appCfg.BackendTimeout)*time.Second)
	engine := extract.NewEngine(caller)

	httpClient := &http.Client{}
	source := feed.NewSource(httpClient, feed.NewParser(),
		feed.NewContentExtractor(httpClient, appCfg.UserAgent), appCfg.UserAgent)
	normalizer := normalize.NewNormalizer(appCfg.Location())
	led := ledger.NewLedger(appCfg.DataDir)

	var deduper *dedup.Deduplicator
	if appCfg.EmbedURL != "" {
		embedder := dedup.NewHTTPEmbedder(appCfg.EmbedURL, appCfg.EmbedModel, appCfg.UserAgent)
		deduper = dedup.NewDeduplicator(embedder, appCfg.DedupThreshold)
	} else {
		slog.Info("Similarity dedup disabled, no embedding service configured")
	}

	var enricher *enrich.Enricher
	if appCfg.GeoURL != "" || appCfg.ImageSearchURL != "" {
		var geo enrich.GeoLookup
		if appCfg.GeoURL != "" {
			geo = enrich.NewHTTPGeoLookup(appCfg.GeoURL, appCfg.UserAgent)
		}
		var images enrich.ImageProvider
		if appCfg.ImageSearchURL != "" {
			images = enrich.NewHTTPImageProvider(appCfg.ImageSearchURL, appCfg.UserAgent)
		}
		enricher = enrich.NewEnricher(geo, images, filepath.Join(appCfg.DataDir, "images"))
	}

	var review run.Review
	if !appCfg.SkipReview {
		review = run.PromptReview(os.Stdin, os.Stdout)
	}

	orchestrator := run.NewOrchestrator(appCfg, partitions, source, engine,
		normalizer, deduper, enricher, led, audit, review)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs, err := orchestrator.Run(ctx)
	if len(runs) > 0 {
		fmt.Println(run.RenderSummary(runs))
	}
	return err
}

// verifyLedger prints audit statistics and per-partition ledger sizes,
// loading each ledger file on the way so a corrupt one surfaces here
// instead of mid-run.
func verifyLedger(appCfg *cfg.Cfg) error {
	audit, err := ledger.OpenAuditStore(appCfg.AuditDBPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	stats, err := audit.Stats()
	if err != nil {
		return err
	}

	led := ledger.NewLedger(appCfg.DataDir)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Partition", "Audited Items", "Records", "Ledger IDs"})
	for _, ps := range stats {
		size, err := led.Size(ps.Partition)
		if err != nil {
			return fmt.Errorf("ledger file for %s is unreadable: %w", ps.Partition, err)
		}
		tw.AppendRow(table.Row{ps.Partition, ps.ItemCount, ps.RecordedRows, size})
	}
	fmt.Println(tw.Render())
	return nil
}
