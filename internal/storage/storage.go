// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"funfeed/internal/model"
)

// UpsertResult reports the outcome of merging one harvest batch.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	// UpsertContentBatch merges a harvest batch keyed by (type, naturalKey).
	// Duplicates within the batch collapse last-value-wins before writing.
	// Existing rows keep their created_at; re-running an identical batch
	// inserts nothing.
	UpsertContentBatch(ctx context.Context, batch []model.ContentRecord) (UpsertResult, error)

	CountContent(ctx context.Context) (map[model.ContentType]int64, error)
	CountContentCreatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error)
	CountContentUpdatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error)

	// AppendCronRun appends one immutable journal entry.
	AppendCronRun(ctx context.Context, entry *model.CronRunEntry) error
	// ListCronRuns returns entries with startedAt in [start, end), optionally
	// filtered to the given names, ascending by startedAt.
	ListCronRuns(ctx context.Context, start, end time.Time, names []string) ([]model.CronRunEntry, error)

	// IncrementUsage atomically bumps the day's counters for the given
	// content type, language and provider. Empty keys are skipped.
	IncrementUsage(ctx context.Context, day, contentType, language, provider string) error
	// GetUsage returns the day's counter, or nil when no events exist.
	GetUsage(ctx context.Context, day string) (*model.UsageCounter, error)

	Close() error
}

// CollapseBatch removes in-batch duplicates by (type, naturalKey). The last
// value wins; first-seen order is preserved.
func CollapseBatch(batch []model.ContentRecord) []model.ContentRecord {
	index := make(map[string]int, len(batch))
	out := make([]model.ContentRecord, 0, len(batch))
	for _, rec := range batch {
		key := string(rec.Type) + "\x00" + rec.NaturalKey
		if i, ok := index[key]; ok {
			out[i] = rec
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out
}
