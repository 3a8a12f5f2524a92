// Package journal appends cron run entries to the durable telemetry log.
//
// Writes are best-effort: a journal failure is logged for operators and then
// dropped. Callers ignore the outcome by contract so that telemetry can never
// fail, retry or alter the job it instruments.
package journal

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"funfeed/internal/model"
)

// MaxDetailKeys bounds the details payload of one journal entry.
const MaxDetailKeys = 20

// Writer appends journal entries through a Storage-backed sink.
type Writer struct {
	store Appender
	log   *slog.Logger
}

// Appender is the subset of storage the journal needs.
type Appender interface {
	AppendCronRun(ctx context.Context, entry *model.CronRunEntry) error
}

// NewWriter creates a journal Writer.
func NewWriter(store Appender, log *slog.Logger) *Writer {
	return &Writer{store: store, log: log}
}

// Record normalizes and appends one entry. Missing IDs and durations are
// filled in. Failures are swallowed after an operator log line.
func (w *Writer) Record(ctx context.Context, entry *model.CronRunEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	if entry.DurationMs == 0 && entry.FinishedAt.After(entry.StartedAt) {
		entry.DurationMs = entry.FinishedAt.Sub(entry.StartedAt).Milliseconds()
	}
	if entry.TriggeredBy == "" {
		entry.TriggeredBy = model.TriggerUnknown
	}
	entry.Details, entry.DetailsTruncated = TruncateDetails(entry.Details)

	if err := w.store.AppendCronRun(ctx, entry); err != nil {
		w.log.Error("journal write failed", "job", entry.Name, "run_id", entry.ID, "error", err)
	}
}

// TruncateDetails keeps the first MaxDetailKeys keys in sorted order and
// reports how many keys were dropped.
func TruncateDetails(details map[string]string) (map[string]string, int) {
	if len(details) <= MaxDetailKeys {
		return details, 0
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kept := make(map[string]string, MaxDetailKeys)
	for _, k := range keys[:MaxDetailKeys] {
		kept[k] = details[k]
	}
	return kept, len(details) - MaxDetailKeys
}
