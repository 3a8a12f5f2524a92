package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"funfeed/internal/model"
)

type fakeStore struct {
	created   map[model.ContentType]int64
	updated   map[model.ContentType]int64
	inventory map[model.ContentType]int64
	usage     *model.UsageCounter
	runs      []model.CronRunEntry

	gotStart time.Time
	gotEnd   time.Time
	gotDay   string

	countErr error
}

func (f *fakeStore) CountContent(context.Context) (map[model.ContentType]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return f.inventory, nil
}

func (f *fakeStore) CountContentCreatedBetween(_ context.Context, start, end time.Time) (map[model.ContentType]int64, error) {
	f.gotStart, f.gotEnd = start, end
	return f.created, nil
}

func (f *fakeStore) CountContentUpdatedBetween(context.Context, time.Time, time.Time) (map[model.ContentType]int64, error) {
	return f.updated, nil
}

func (f *fakeStore) ListCronRuns(context.Context, time.Time, time.Time, []string) ([]model.CronRunEntry, error) {
	return f.runs, nil
}

func (f *fakeStore) GetUsage(_ context.Context, day string) (*model.UsageCounter, error) {
	f.gotDay = day
	return f.usage, nil
}

func TestDailyAssemblesReport(t *testing.T) {
	base := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	store := &fakeStore{
		created:   map[model.ContentType]int64{model.TypeImage: 5, model.TypeJoke: 2},
		updated:   map[model.ContentType]int64{model.TypeImage: 9},
		inventory: map[model.ContentType]int64{model.TypeImage: 120, model.TypeJoke: 30, model.TypeQuote: 50},
		usage:     &model.UsageCounter{Day: "2024-03-10", ByType: map[string]int64{"image": 40}},
		runs: []model.CronRunEntry{
			{ID: "a", Name: "images", Status: model.RunSuccess, StartedAt: base},
			{ID: "b", Name: "images", Status: model.RunFailure, StartedAt: base.Add(time.Hour)},
			{ID: "c", Name: "nightly", Status: model.RunSuccess, StartedAt: base.Add(2 * time.Hour)},
		},
	}

	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	r := NewReporter(store)
	got, err := r.Daily(context.Background(), now, "UTC+01:00")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}

	if got.Day != "2024-03-10" {
		t.Errorf("day = %q, want 2024-03-10", got.Day)
	}
	if store.gotDay != "2024-03-10" {
		t.Errorf("usage fetched for day %q, want 2024-03-10", store.gotDay)
	}
	wantStart := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	if !store.gotStart.Equal(wantStart) {
		t.Errorf("window start %v, want %v", store.gotStart, wantStart)
	}

	if got.InventoryTotal != 200 {
		t.Errorf("inventory total = %d, want 200", got.InventoryTotal)
	}
	var sum int64
	for _, n := range got.InventoryByType {
		sum += n
	}
	if got.InventoryTotal != sum {
		t.Errorf("inventory total %d != sum of per-type counts %d", got.InventoryTotal, sum)
	}

	wantSummaries := []model.CronJobSummary{
		{Name: "images", Total: 2, Successes: 1, Failures: 1, LastRun: &store.runs[1]},
		{Name: "nightly", Total: 1, Successes: 1, LastRun: &store.runs[2]},
	}
	if diff := cmp.Diff(wantSummaries, got.CronJobs); diff != "" {
		t.Errorf("cron summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestDailyNoUsageForDay(t *testing.T) {
	store := &fakeStore{}
	r := NewReporter(store)

	got, err := r.Daily(context.Background(), time.Now().UTC(), "UTC")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if got.Usage != nil {
		t.Errorf("expected nil usage, got %+v", got.Usage)
	}
	if got.InventoryTotal != 0 {
		t.Errorf("expected empty inventory total, got %d", got.InventoryTotal)
	}
}

func TestDailyPropagatesStoreFailure(t *testing.T) {
	store := &fakeStore{countErr: errors.New("store down")}
	r := NewReporter(store)

	if _, err := r.Daily(context.Background(), time.Now().UTC(), "UTC"); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestDailyRejectsBadTimezone(t *testing.T) {
	r := NewReporter(&fakeStore{})
	_, err := r.Daily(context.Background(), time.Now().UTC(), "Atlantis/Lost")
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if !errors.Is(err, ErrBadTimezone) {
		t.Errorf("error %v does not wrap ErrBadTimezone", err)
	}
}
