package service

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// CurrentPeriod returns the calendar-month period containing t.
func CurrentPeriod(t time.Time) string {
	return t.Format(periodLayout)
}

// PreviousPeriod returns the calendar-month period before the one containing t.
func PreviousPeriod(t time.Time) string {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0).Format(periodLayout)
}

// PeriodBounds parses a "YYYY-MM" period into its inclusive start and end instants.
func PeriodBounds(period string) (time.Time, time.Time, error) {
	start, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", period, err)
	}

	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// weekdaysIn counts Monday-Friday days in the period, the denominator for
// the application-usage metric.
func weekdaysIn(start, end time.Time) int {
	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}
