package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDateFormats(t *testing.T) {
	a, err := NormalizeDate("13/06/2025 17:02")
	require.NoError(t, err)
	b, err := NormalizeDate("2025-06-13")
	require.NoError(t, err)
	require.True(t, a.Equal(b), "day-first with time and ISO date-only must normalize to the same calendar date")
	require.Equal(t, "13/06/2025", FormatDate(a))
}

func TestNormalizeDateMonthFirst(t *testing.T) {
	// 06/13 can only be month-first; day-first parse fails on month 13.
	d, err := NormalizeDate("06/13/2025 09:30")
	require.NoError(t, err)
	require.Equal(t, "13/06/2025", FormatDate(d))
}

func TestNormalizeDateUnparseable(t *testing.T) {
	_, err := NormalizeDate("not-a-date")
	require.Error(t, err)
	_, err = NormalizeDate("")
	require.Error(t, err)
}

func TestFilterWindow(t *testing.T) {
	now := time.Date(2025, 6, 20, 14, 0, 0, 0, time.Local)
	tasks := []Task{
		{Time: "20/06/2025 10:00", Venue: "A"}, // today
		{Time: "13/06/2025", Venue: "B"},       // oldest day inside an 8-day window
		{Time: "12/06/2025", Venue: "C"},       // one day too old
		{Time: "21/06/2025", Venue: "D"},       // future
		{Time: "not-a-date", Venue: "E"},
	}
	kept, outside, unparseable := FilterWindow(tasks, 8, now)
	require.Len(t, kept, 2)
	require.Equal(t, "A", kept[0].Venue)
	require.Equal(t, "B", kept[1].Venue)
	require.Equal(t, 2, outside)
	require.Equal(t, 1, unparseable)
}
