package dedup

import (
	"context"
	"log/slog"
	"math"

	"github.com/arishya7/event-enrichment-sub000/app/event"
)

// Group maps one kept record to the indices of records marked as its
// duplicates, for audit and later removal.
type Group struct {
	KeptIndex        int
	DuplicateIndexes []int
}

// Deduplicator flags near-duplicate records by cosine similarity of their
// fingerprint embeddings. First-seen wins: a record at or above the
// threshold against an earlier kept record is marked duplicate, never the
// other way around.
type Deduplicator struct {
	embedder  Embedder
	threshold float64
}

func NewDeduplicator(embedder Embedder, threshold float64) *Deduplicator {
	return &Deduplicator{embedder: embedder, threshold: threshold}
}

// Run mutates records in place, setting the Duplicate flag, and returns the
// duplicate groups found. A record whose embedding cannot be computed is
// kept unflagged; missing a duplicate is cheaper than dropping a real
// record.
func (d *Deduplicator) Run(ctx context.Context, records []event.Record) []Group {
	if len(records) < 2 {
		return nil
	}

	vectors := make([][]float64, len(records))
	for i := range records {
		vector, err := d.embedder.Embed(ctx, records[i].FingerprintText())
		if err != nil {
			slog.Warn("Failed to embed record, skipping similarity checks for it",
				"item", records[i].SourceItemID,
				"title", records[i].Title,
				"error", err)
			continue
		}
		vectors[i] = vector
	}

	groups := make(map[int]*Group)
	duplicateOf := make(map[int]int)

	for i := 1; i < len(records); i++ {
		if vectors[i] == nil {
			continue
		}
		for j := 0; j < i; j++ {
			if vectors[j] == nil || records[j].Duplicate {
				continue
			}
			similarity := CosineSimilarity(vectors[i], vectors[j])
			if similarity < d.threshold {
				continue
			}

			kept := j
			// Chase the chain in case j was grouped under an earlier record
			// in a prior run of this loop body.
			if root, ok := duplicateOf[j]; ok {
				kept = root
			}
			records[i].Duplicate = true
			duplicateOf[i] = kept

			group, ok := groups[kept]
			if !ok {
				group = &Group{KeptIndex: kept}
				groups[kept] = group
			}
			group.DuplicateIndexes = append(group.DuplicateIndexes, i)

			slog.Info("Near-duplicate record flagged",
				"kept", records[kept].Title,
				"duplicate", records[i].Title,
				"similarity", similarity)
			break
		}
	}

	result := make([]Group, 0, len(groups))
	for i := range records {
		if group, ok := groups[i]; ok {
			result = append(result, *group)
		}
	}
	return result
}

// CosineSimilarity returns the cosine of the angle between two vectors, or
// 0 when either vector is degenerate.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
