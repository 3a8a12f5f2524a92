package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadTimezone marks timezone identifiers that cannot be resolved. Callers
// test for it with errors.Is to distinguish bad input from internal failures.
var ErrBadTimezone = errors.New("unresolvable timezone")

// LoadZone resolves a timezone identifier. Fixed-offset names of the form
// "UTC+01:00", "UTC-5" or "UTC+0130" are parsed directly so they work even on
// hosts without a timezone database; anything else goes through the system
// zone lookup.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	if strings.HasPrefix(name, "UTC+") || strings.HasPrefix(name, "UTC-") {
		offset, err := parseFixedOffset(name[3:])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrBadTimezone, name, err)
		}
		return time.FixedZone(name, offset), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadTimezone, name, err)
	}
	return loc, nil
}

// parseFixedOffset parses "+HH:MM", "+HHMM" or "+H" into seconds.
func parseFixedOffset(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("too short")
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("missing sign")
	}

	digits := strings.ReplaceAll(s[1:], ":", "")
	var hours, minutes int
	switch len(digits) {
	case 1, 2:
		h, err := strconv.Atoi(digits)
		if err != nil {
			return 0, err
		}
		hours = h
	case 3, 4:
		h, err := strconv.Atoi(digits[:len(digits)-2])
		if err != nil {
			return 0, err
		}
		m, err := strconv.Atoi(digits[len(digits)-2:])
		if err != nil {
			return 0, err
		}
		hours, minutes = h, m
	default:
		return 0, fmt.Errorf("unrecognized offset format")
	}
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("offset out of range")
	}
	return sign * (hours*3600 + minutes*60), nil
}

// ZoneOffset derives loc's UTC offset at instant t empirically: format t into
// the zone's wall-clock fields, reinterpret those fields as UTC, and take the
// difference from the original instant.
func ZoneOffset(t time.Time, loc *time.Location) time.Duration {
	wall := t.In(loc)
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	reinterpreted := time.Date(y, mo, d, h, mi, s, 0, time.UTC)
	return reinterpreted.Sub(t.Truncate(time.Second))
}

// PreviousDayWindow computes the absolute [start, end) interval covering the
// previous local calendar day in loc, relative to now, plus that day's local
// date key.
//
// The offset at each boundary is derived at (approximately) the boundary
// instant itself. Measured exactly at a daylight-saving transition the
// derivation can be off by one hour for that boundary; accepted for a
// once-daily report.
func PreviousDayWindow(now time.Time, loc *time.Location) (day string, start, end time.Time) {
	offsetNow := ZoneOffset(now, loc)
	localNow := now.UTC().Add(offsetNow)

	y, m, d := localNow.Date()
	startNaive := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	endNaive := startNaive.AddDate(0, 0, 1)
	day = startNaive.Format("2006-01-02")

	start = startNaive.Add(-ZoneOffset(startNaive.Add(-offsetNow), loc))
	end = endNaive.Add(-ZoneOffset(endNaive.Add(-offsetNow), loc))
	return day, start, end
}

// LocalDay formats now's calendar date in loc, using the same empirical
// offset derivation as the reporting window.
func LocalDay(now time.Time, loc *time.Location) string {
	return now.UTC().Add(ZoneOffset(now, loc)).Format("2006-01-02")
}
