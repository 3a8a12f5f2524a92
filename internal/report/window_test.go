package report

import (
	"errors"
	"testing"
	"time"
)

func TestLoadZoneFixedOffsets(t *testing.T) {
	tests := []struct {
		name       string
		tz         string
		wantOffset int
		wantErr    bool
	}{
		{name: "utc", tz: "UTC"},
		{name: "empty means utc", tz: ""},
		{name: "plus one colon", tz: "UTC+01:00", wantOffset: 3600},
		{name: "minus five short", tz: "UTC-5", wantOffset: -5 * 3600},
		{name: "plus half hour", tz: "UTC+0530", wantOffset: 5*3600 + 30*60},
		{name: "out of range", tz: "UTC+15:00", wantErr: true},
		{name: "garbage", tz: "UTC+abc", wantErr: true},
		{name: "unknown name", tz: "Atlantis/Lost", wantErr: true},
	}

	ref := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadZone(tt.tz)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrBadTimezone) {
					t.Errorf("error %v does not wrap ErrBadTimezone", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := int(ZoneOffset(ref, loc).Seconds()); got != tt.wantOffset {
				t.Errorf("offset = %ds, want %ds", got, tt.wantOffset)
			}
		})
	}
}

func TestZoneOffsetEmpiricalDerivation(t *testing.T) {
	tests := []struct {
		name string
		loc  *time.Location
		want time.Duration
	}{
		{name: "utc", loc: time.UTC, want: 0},
		{name: "plus one", loc: time.FixedZone("UTC+01:00", 3600), want: time.Hour},
		{name: "minus nine thirty", loc: time.FixedZone("UTC-09:30", -(9*3600 + 30*60)), want: -(9*time.Hour + 30*time.Minute)},
	}

	ref := time.Date(2024, 6, 1, 23, 45, 12, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoneOffset(ref, tt.loc); got != tt.want {
				t.Errorf("offset = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreviousDayWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		loc       *time.Location
		wantDay   string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "utc plus one",
			now:       time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
			loc:       time.FixedZone("UTC+01:00", 3600),
			wantDay:   "2024-03-10",
			wantStart: time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC),
		},
		{
			name:      "utc",
			now:       time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC),
			loc:       time.UTC,
			wantDay:   "2024-03-10",
			wantStart: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "negative offset crosses date line backwards",
			// 00:30 UTC on the 11th is still the evening of the 10th at
			// UTC-5, so the previous local day is the 9th.
			now:       time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC),
			loc:       time.FixedZone("UTC-05:00", -5*3600),
			wantDay:   "2024-03-09",
			wantStart: time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, start, end := PreviousDayWindow(tt.now, tt.loc)
			if day != tt.wantDay {
				t.Errorf("day = %q, want %q", day, tt.wantDay)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
			if got := end.Sub(start); got != 24*time.Hour {
				t.Errorf("window length = %v, want 24h", got)
			}
		})
	}
}

func TestLocalDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := LocalDay(now, time.FixedZone("UTC+01:00", 3600)); got != "2024-03-11" {
		t.Errorf("local day = %q, want 2024-03-11", got)
	}
	if got := LocalDay(now, time.UTC); got != "2024-03-10" {
		t.Errorf("local day = %q, want 2024-03-10", got)
	}
}
