package ledger

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// AuditRow is one append-only record of a processed content item. Rows are
// never consulted for membership checks (the Ledger owns those); their only
// use is cross-run aggregate counts driving merge sequence numbers, plus
// reporting.
type AuditRow struct {
	Partition    string
	ItemID       string
	RunTimestamp string
	RecordCount  int
}

// PartitionStats aggregates audit rows for reporting.
type PartitionStats struct {
	Partition    string
	ItemCount    int
	RecordedRows int
}

// AuditStore wraps the SQLite database holding processed-item rows.
type AuditStore struct {
	db *sql.DB
}

// OpenAuditStore opens (creating if necessary) the audit database and
// applies pending migrations.
func OpenAuditStore(path string) (*AuditStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Single-writer per run; a second connection would only contend on the
	// SQLite write lock.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &AuditStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *AuditStore) Close() error {
	return s.db.Close()
}

// RecordProcessed appends a processed-item row. Re-recording the same
// (partition, item) pair updates the row in place: at-least-once processing
// may legitimately revisit an item after a crash between persist and ledger
// flush.
func (s *AuditStore) RecordProcessed(partition, itemID, runTimestamp string, recordCount int) error {
	_, err := s.db.Exec(`
		INSERT INTO processed_items (partition, item_id, run_timestamp, record_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (partition, item_id) DO UPDATE SET
			run_timestamp = excluded.run_timestamp,
			record_count = excluded.record_count
	`, partition, itemID, runTimestamp, recordCount)

	if err != nil {
		return fmt.Errorf("failed to record processed item: %w", err)
	}

	return nil
}

// TotalRecordsBefore returns the running total of records produced by all
// runs other than the given one. Merge sequence numbers for the current run
// continue from this value.
func (s *AuditStore) TotalRecordsBefore(runTimestamp string) (int, error) {
	var total int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(record_count), 0)
		FROM processed_items
		WHERE run_timestamp != ?
	`, runTimestamp).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("failed to sum prior record counts: %w", err)
	}

	return total, nil
}

// RunSummary is one partition's outcome within a run, kept as history for
// later inspection.
type RunSummary struct {
	RunTimestamp string
	Partition    string
	State        string
	Items        int
	NewItems     int
	Kept         int
	Dropped      int
	Excluded     int
	Duplicates   int
	Error        string
}

// RecordRunSummary appends a per-partition history row for the run.
// Revisiting the same (run, partition) pair overwrites the earlier row.
func (s *AuditStore) RecordRunSummary(sum RunSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO run_history (run_timestamp, partition, state, items, new_items,
			kept, dropped, excluded, duplicates, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_timestamp, partition) DO UPDATE SET
			state = excluded.state,
			items = excluded.items,
			new_items = excluded.new_items,
			kept = excluded.kept,
			dropped = excluded.dropped,
			excluded = excluded.excluded,
			duplicates = excluded.duplicates,
			error = excluded.error
	`, sum.RunTimestamp, sum.Partition, sum.State, sum.Items, sum.NewItems,
		sum.Kept, sum.Dropped, sum.Excluded, sum.Duplicates, sum.Error)

	if err != nil {
		return fmt.Errorf("failed to record run summary: %w", err)
	}

	return nil
}

// RunHistory returns the history rows for one run, ordered by partition.
func (s *AuditStore) RunHistory(runTimestamp string) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT run_timestamp, partition, state, items, new_items,
			kept, dropped, excluded, duplicates, error
		FROM run_history
		WHERE run_timestamp = ?
		ORDER BY partition
	`, runTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var history []RunSummary
	for rows.Next() {
		var sum RunSummary
		if err := rows.Scan(&sum.RunTimestamp, &sum.Partition, &sum.State,
			&sum.Items, &sum.NewItems, &sum.Kept, &sum.Dropped,
			&sum.Excluded, &sum.Duplicates, &sum.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run history: %w", err)
		}
		history = append(history, sum)
	}

	return history, rows.Err()
}

// Stats returns per-partition aggregates, ordered by item count.
func (s *AuditStore) Stats() ([]PartitionStats, error) {
	rows, err := s.db.Query(`
		SELECT partition, COUNT(*), COALESCE(SUM(record_count), 0)
		FROM processed_items
		GROUP BY partition
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit stats: %w", err)
	}
	defer rows.Close()

	var stats []PartitionStats
	for rows.Next() {
		var ps PartitionStats
		if err := rows.Scan(&ps.Partition, &ps.ItemCount, &ps.RecordedRows); err != nil {
			return nil, fmt.Errorf("failed to scan audit stats: %w", err)
		}
		stats = append(stats, ps)
	}

	return stats, rows.Err()
}
