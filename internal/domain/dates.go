package domain

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in priority order: day-first with time,
// month-first with time, ISO with time, then the date-only variants.
// The first layout that parses wins; "13/06/2025" can never be mistaken
// for month-first because 13 is not a valid month.
var dateLayouts = []string{
	"02/01/2006 15:04",
	"01/02/2006 15:04",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
}

// fallbackLayouts are the permissive last resort for values none of the
// known formats accept.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006 15:04:05",
}

// NormalizeDate parses a raw date/time string and truncates it to a
// calendar date. Two raw strings that normalize to the same calendar date
// are the same date for grouping purposes.
func NormalizeDate(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateToDate(t), nil
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateToDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// FormatDate renders a normalized date the way the calendar widget and the
// grouping keys expect it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FilterWindow keeps tasks whose normalized date falls within the trailing
// window of `days` days ending today (inclusive). Returns the kept tasks,
// how many were outside the window, and how many had unparseable dates.
func FilterWindow(tasks []Task, days int, now time.Time) (kept []Task, outside, unparseable int) {
	today := truncateToDate(now)
	cutoff := today.AddDate(0, 0, -(days - 1))
	for _, t := range tasks {
		d, err := NormalizeDate(t.Time)
		if err != nil {
			unparseable++
			continue
		}
		if d.Before(cutoff) || d.After(today) {
			outside++
			continue
		}
		kept = append(kept, t)
	}
	return kept, outside, unparseable
}
