package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCurrentPeriodFormatsCalendarMonth(t *testing.T) {
	at := time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)
	require.Equal(t, "2025-06", CurrentPeriod(at))
}

func TestPreviousPeriodCrossesYearBoundary(t *testing.T) {
	require.Equal(t, "2025-05", PreviousPeriod(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2024-12", PreviousPeriod(time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC)))
}

func TestPeriodBoundsCoverWholeMonth(t *testing.T) {
	start, end, err := PeriodBounds("2025-06")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), start)
	require.True(t, end.Before(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, end.After(time.Date(2025, time.June, 30, 23, 59, 59, 0, time.UTC)))

	_, _, err = PeriodBounds("June 2025")
	require.Error(t, err)
}

func TestWeekdaysIn(t *testing.T) {
	start, end, err := PeriodBounds("2025-06")
	require.NoError(t, err)
	require.Equal(t, 21, weekdaysIn(start, end))

	start, end, err = PeriodBounds("2025-02")
	require.NoError(t, err)
	require.Equal(t, 20, weekdaysIn(start, end))
}
