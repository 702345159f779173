package timeparser

import (
	"fmt"
	"strings"
	"time"
)

var measureFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05", // ISO without zone
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMeasureDatetime parses a client supplied measure_datetime.
// Values without a zone are taken as UTC. An empty string returns fallback.
func ParseMeasureDatetime(dateStr string, fallback time.Time) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return fallback, nil
	}

	var lastErr error
	for _, format := range measureFormats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse measure_datetime '%s': %w", dateStr, lastErr)
}

// MonthBounds returns the half-open range [start, end) of the calendar month containing t,
// evaluated in loc.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// SameMonth reports whether a and b fall into the same calendar month in loc
func SameMonth(a, b time.Time, loc *time.Location) bool {
	start, end := MonthBounds(a, loc)
	return !b.Before(start) && b.Before(end)
}
