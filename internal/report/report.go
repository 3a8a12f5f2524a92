// Package report computes the daily rollup from store counts, usage counters
// and the cron journal. The report is a value; persisting or delivering it
// belongs to external collaborators.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"funfeed/internal/model"
)

// Store is the subset of storage the reporter reads from.
type Store interface {
	CountContent(ctx context.Context) (map[model.ContentType]int64, error)
	CountContentCreatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error)
	CountContentUpdatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error)
	ListCronRuns(ctx context.Context, start, end time.Time, names []string) ([]model.CronRunEntry, error)
	GetUsage(ctx context.Context, day string) (*model.UsageCounter, error)
}

// Reporter assembles DailyReport values.
type Reporter struct {
	store Store
}

// NewReporter creates a Reporter.
func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// Daily builds the rollup for the previous local calendar day of the given
// timezone, relative to now.
func (r *Reporter) Daily(ctx context.Context, now time.Time, tz string) (*model.DailyReport, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return nil, err
	}
	day, start, end := PreviousDayWindow(now, loc)

	created, err := r.store.CountContentCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count created: %w", err)
	}
	updated, err := r.store.CountContentUpdatedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count updated: %w", err)
	}
	usage, err := r.store.GetUsage(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	runs, err := r.store.ListCronRuns(ctx, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("list cron runs: %w", err)
	}
	inventory, err := r.store.CountContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	var total int64
	for _, n := range inventory {
		total += n
	}

	return &model.DailyReport{
		Day:             day,
		WindowStart:     start,
		WindowEnd:       end,
		Timezone:        tz,
		CreatedByType:   created,
		UpdatedByType:   updated,
		Usage:           usage,
		CronJobs:        summarizeRuns(runs),
		InventoryByType: inventory,
		InventoryTotal:  total,
	}, nil
}

// summarizeRuns groups journal entries per job name. Entries arrive ascending
// by start time, so the last entry seen per name is the most recent one.
func summarizeRuns(runs []model.CronRunEntry) []model.CronJobSummary {
	byName := make(map[string]*model.CronJobSummary)
	for i := range runs {
		run := runs[i]
		s := byName[run.Name]
		if s == nil {
			s = &model.CronJobSummary{Name: run.Name}
			byName[run.Name] = s
		}
		s.Total++
		if run.Status == model.RunSuccess {
			s.Successes++
		} else {
			s.Failures++
		}
		s.LastRun = &run
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.CronJobSummary, 0, len(names))
	for _, name := range names {
		out = append(out, *byName[name])
	}
	return out
}
