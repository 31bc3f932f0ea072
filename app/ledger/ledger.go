package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

// Ledger is the durable record of already-processed item identifiers, one
// sorted set per partition. On disk each partition is a JSON array of
// decimal strings in strictly ascending order; a missing file is treated as
// an empty ledger, trading possible reprocessing for never silently dropping
// data.
type Ledger struct {
	dir        string
	partitions map[string][]int64
}

func NewLedger(dir string) *Ledger {
	return &Ledger{
		dir:        dir,
		partitions: make(map[string][]int64),
	}
}

func (l *Ledger) filePath(partition string) string {
	return filepath.Join(l.dir, partition+"_ids.json")
}

func (l *Ledger) load(partition string) ([]int64, error) {
	if ids, ok := l.partitions[partition]; ok {
		return ids, nil
	}

	data, err := os.ReadFile(l.filePath(partition))
	if os.IsNotExist(err) {
		l.partitions[partition] = []int64{}
		return l.partitions[partition], nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}

	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ledger entry %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	// Stored arrays must be strictly increasing; a file with out-of-order
	// or duplicate entries is rejected rather than repaired.
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			return nil, fmt.Errorf("ledger file for partition %s is not strictly increasing", partition)
		}
	}

	l.partitions[partition] = ids
	return ids, nil
}

// Contains reports whether id has already been processed for the partition.
func (l *Ledger) Contains(partition string, id int64) (bool, error) {
	ids, err := l.load(partition)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ids, id)
	return found, nil
}

// AddMany inserts each id that is not already present, preserving sort
// order. The update is in-memory only until Flush is called.
func (l *Ledger) AddMany(partition string, newIDs []int64) error {
	ids, err := l.load(partition)
	if err != nil {
		return err
	}

	for _, id := range newIDs {
		i, found := slices.BinarySearch(ids, id)
		if found {
			continue
		}
		ids = slices.Insert(ids, i, id)
	}

	l.partitions[partition] = ids
	return nil
}

// Flush atomically persists the partition's sorted id array: the array is
// written to a temporary file and renamed over the target.
func (l *Ledger) Flush(partition string) error {
	ids, err := l.load(partition)
	if err != nil {
		return err
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = strconv.FormatInt(id, 10)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	target := l.filePath(partition)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}

// Size returns the number of tracked ids for the partition.
func (l *Ledger) Size(partition string) (int, error) {
	ids, err := l.load(partition)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Reset removes the partition's ledger file and in-memory state. This is a
// maintenance operation; normal processing never deletes ledger entries.
func (l *Ledger) Reset(partition string) error {
	delete(l.partitions, partition)
	err := os.Remove(l.filePath(partition))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove ledger file: %w", err)
	}
	return nil
}
