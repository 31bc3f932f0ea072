package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arishya7/event-enrichment-sub000/app/cfg"
	"github.com/arishya7/event-enrichment-sub000/app/config"
	"github.com/arishya7/event-enrichment-sub000/app/dedup"
	"github.com/arishya7/event-enrichment-sub000/app/enrich"
	"github.com/arishya7/event-enrichment-sub000/app/event"
	"github.com/arishya7/event-enrichment-sub000/app/extract"
	"github.com/arishya7/event-enrichment-sub000/app/feed"
	"github.com/arishya7/event-enrichment-sub000/app/ledger"
	"github.com/arishya7/event-enrichment-sub000/app/normalize"
)

// runStampFormat names the per-run output directory and keys audit rows.
const runStampFormat = "20060102_150405"

// Review is the checkpoint between persist and merge: an external
// collaborator may edit the persisted partition files in place. It returns
// whether a review actually happened.
type Review func(outputFiles []string) (bool, error)

// Orchestrator sequences Ingest, Extract, Normalize, Persist, Review and
// Merge across partitions, one partition at a time, containing failures at
// the smallest unit possible: a bad record costs the record, a bad item the
// item, an unrecoverable partition error only that partition.
type Orchestrator struct {
	cfg        *cfg.Cfg
	partitions map[string]*config.Partition
	source     *feed.Source
	engine     *extract.Engine
	normalizer *normalize.Normalizer
	deduper    *dedup.Deduplicator
	enricher   *enrich.Enricher
	ledger     *ledger.Ledger
	audit      *ledger.AuditStore
	review     Review
}

func NewOrchestrator(c *cfg.Cfg, partitions map[string]*config.Partition,
	source *feed.Source, engine *extract.Engine, normalizer *normalize.Normalizer,
	deduper *dedup.Deduplicator, enricher *enrich.Enricher,
	led *ledger.Ledger, audit *ledger.AuditStore, review Review) *Orchestrator {
	return &Orchestrator{
		cfg:        c,
		partitions: partitions,
		source:     source,
		engine:     engine,
		normalizer: normalizer,
		deduper:    deduper,
		enricher:   enricher,
		ledger:     led,
		audit:      audit,
		review:     review,
	}
}

// Run processes every enabled partition sequentially, then merges the
// persisted outputs into a single sequenced file. The returned slice always
// covers all enabled partitions, whatever state each ended in.
func (o *Orchestrator) Run(ctx context.Context) ([]*PartitionRun, error) {
	runID := uuid.NewString()
	runStamp := time.Now().UTC().Format(runStampFormat)
	outputDir := filepath.Join(o.cfg.DataDir, "events", runStamp)

	slog.Info("Run starting", "run_id", runID, "run_stamp", runStamp, "partitions", len(o.partitions))

	names := make([]string, 0, len(o.partitions))
	for name, partition := range o.partitions {
		if partition.Settings.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	runs := make([]*PartitionRun, 0, len(names))
	for _, name := range names {
		pr := &PartitionRun{Name: name, State: StateNotStarted}
		runs = append(runs, pr)

		o.processPartition(ctx, pr, o.partitions[name], outputDir, runStamp)
		if pr.Err != nil {
			slog.Error("Partition failed", "partition", name, "error", pr.Err)
		}
	}

	o.runReview(runs)

	if err := o.merge(runs, runStamp); err != nil {
		o.recordHistory(runs, runStamp)
		return runs, fmt.Errorf("merge failed: %w", err)
	}

	o.recordHistory(runs, runStamp)

	slog.Info("Run complete", "run_id", runID)
	return runs, nil
}

// recordHistory appends one audit history row per partition. History is
// reporting only, so a write failure is logged and swallowed.
func (o *Orchestrator) recordHistory(runs []*PartitionRun, runStamp string) {
	for _, pr := range runs {
		sum := ledger.RunSummary{
			RunTimestamp: runStamp,
			Partition:    pr.Name,
			State:        string(pr.State),
			Items:        pr.Items,
			NewItems:     pr.NewItems,
			Kept:         pr.Kept,
			Dropped:      pr.Dropped,
			Excluded:     pr.Excluded,
			Duplicates:   pr.Duplicates,
		}
		if pr.Err != nil {
			sum.Error = pr.Err.Error()
		}
		if err := o.audit.RecordRunSummary(sum); err != nil {
			slog.Error("Failed to record run history", "partition", pr.Name, "error", err)
		}
	}
}

// processPartition drives one partition from NOT_STARTED to PERSISTED, or
// to FAILED on the first unrecoverable error.
func (o *Orchestrator) processPartition(ctx context.Context, pr *PartitionRun,
	partition *config.Partition, outputDir, runStamp string) {

	// Ingest
	pr.State = StateIngesting
	items, err := o.source.Fetch(ctx, partition)
	if err != nil {
		// Malformed or unreachable source: skip the partition this run.
		pr.fail(fmt.Errorf("feed fetch failed: %w", err))
		return
	}
	pr.Items = len(items)

	fresh, err := o.filterProcessed(partition.Name, items)
	if err != nil {
		pr.fail(fmt.Errorf("ledger lookup failed: %w", err))
		return
	}
	pr.NewItems = len(fresh)
	slog.Info("Partition ingested",
		"partition", partition.Name,
		"items", pr.Items,
		"new", pr.NewItems)

	// Extract
	pr.State = StateExtracting
	candidatesByItem := make([][]event.Candidate, len(fresh))
	for i, item := range fresh {
		candidatesByItem[i] = o.engine.Run(ctx, item, partition.Settings.Listing)
	}

	// Normalize
	pr.State = StateNormalizing
	var records []event.Record
	recordsPerItem := make(map[int64]int, len(fresh))
	for i, item := range fresh {
		itemRecords, stats := o.normalizer.Run(item, candidatesByItem[i])
		pr.Kept += stats.Kept
		pr.Dropped += stats.Dropped
		pr.Excluded += stats.Excluded
		recordsPerItem[item.ID] = len(itemRecords)
		records = append(records, itemRecords...)
	}

	if o.deduper != nil {
		groups := o.deduper.Run(ctx, records)
		for _, group := range groups {
			pr.Duplicates += len(group.DuplicateIndexes)
		}
	}

	if o.enricher != nil {
		o.enricher.Run(ctx, records)
	}

	// Persist
	if err := o.persist(pr, partition.Name, fresh, records, recordsPerItem, outputDir, runStamp); err != nil {
		pr.fail(fmt.Errorf("persist failed: %w", err))
		return
	}
	pr.State = StatePersisted
}

// filterProcessed drops items whose id is already in the partition ledger.
func (o *Orchestrator) filterProcessed(partition string, items []feed.Item) ([]feed.Item, error) {
	fresh := make([]feed.Item, 0, len(items))
	for _, item := range items {
		seen, err := o.ledger.Contains(partition, item.ID)
		if err != nil {
			return nil, err
		}
		if seen {
			slog.Debug("Item already processed", "partition", partition, "item", item.ID)
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh, nil
}

// persist writes the partition output file, records every processed item in
// the audit store, and advances the ledger. The ledger is flushed after the
// output file is durable: a crash in between re-processes items rather than
// losing them.
func (o *Orchestrator) persist(pr *PartitionRun, partition string, fresh []feed.Item,
	records []event.Record, recordsPerItem map[int64]int, outputDir, runStamp string) error {

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if records == nil {
		records = []event.Record{}
	}
	pr.OutputFile = filepath.Join(outputDir, partition+".json")
	if err := writeJSONFile(pr.OutputFile, records); err != nil {
		return err
	}

	ids := make([]int64, 0, len(fresh))
	for _, item := range fresh {
		ids = append(ids, item.ID)
		itemID := strconv.FormatInt(item.ID, 10)
		if err := o.audit.RecordProcessed(partition, itemID, runStamp, recordsPerItem[item.ID]); err != nil {
			return fmt.Errorf("audit write failed for item %s: %w", itemID, err)
		}
	}

	if err := o.ledger.AddMany(partition, ids); err != nil {
		return err
	}
	return o.ledger.Flush(partition)
}

// runReview hands persisted partition files to the review collaborator,
// unless reviewing is skipped. A failed review is downgraded to skipped;
// the files on disk are still whatever state the reviewer left them in.
func (o *Orchestrator) runReview(runs []*PartitionRun) {
	reviewedState := StateSkipped

	if o.review != nil && !o.cfg.SkipReview {
		var files []string
		for _, pr := range runs {
			if pr.State == StatePersisted {
				files = append(files, pr.OutputFile)
			}
		}
		if len(files) > 0 {
			reviewed, err := o.review(files)
			if err != nil {
				slog.Warn("Review checkpoint failed, continuing unreviewed", "error", err)
			} else if reviewed {
				reviewedState = StateReviewed
			}
		}
	}

	for _, pr := range runs {
		if pr.State == StatePersisted {
			pr.State = reviewedState
		}
	}
}

// merge reads the partition output files in partition order and assigns
// globally increasing sequence numbers, continuing from the audit store's
// running total across prior runs. Sequence numbers are assigned once and
// never reused.
func (o *Orchestrator) merge(runs []*PartitionRun, runStamp string) error {
	sequence, err := o.audit.TotalRecordsBefore(runStamp)
	if err != nil {
		return fmt.Errorf("failed to read merge sequence base: %w", err)
	}
	slog.Info("Merging partition outputs", "sequence_base", sequence)

	var merged []event.Record
	for _, pr := range runs {
		if pr.State != StateReviewed && pr.State != StateSkipped {
			continue
		}

		var records []event.Record
		if err := readJSONFile(pr.OutputFile, &records); err != nil {
			// The reviewer may have broken the file; lose the partition's
			// records from this merge, not the merge itself.
			pr.fail(fmt.Errorf("failed to read partition output: %w", err))
			continue
		}

		for i := range records {
			sequence++
			records[i].Sequence = strconv.Itoa(sequence)
		}
		merged = append(merged, records...)
		pr.Merged = len(records)
		pr.State = StateMerged
	}

	if merged == nil {
		merged = []event.Record{}
	}
	mergedFile := filepath.Join(o.cfg.DataDir, "events.json")
	if err := writeJSONFile(mergedFile, merged); err != nil {
		return err
	}

	for _, pr := range runs {
		if pr.State == StateMerged {
			pr.State = StateDone
		}
	}
	slog.Info("Merged output written", "file", mergedFile, "records", len(merged))
	return nil
}

// writeJSONFile persists v atomically: full write to a temp file, then
// rename.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
