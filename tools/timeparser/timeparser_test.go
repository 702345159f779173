package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/meter-reading-service/tools/timeparser"
)

func TestParseMeasureDatetime_RFC3339(t *testing.T) {
	result, err := timeparser.ParseMeasureDatetime("2024-08-27T10:57:55Z", time.Time{})
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2024, 8, 27, 10, 57, 55, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseMeasureDatetime_WithOffset(t *testing.T) {
	result, err := timeparser.ParseMeasureDatetime("2024-08-27T10:57:55-03:00", time.Time{})
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2024, 8, 27, 13, 57, 55, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseMeasureDatetime_SpaceSeparated(t *testing.T) {
	result, err := timeparser.ParseMeasureDatetime("2024-08-27 10:57:55", time.Time{})
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2024, 8, 27, 10, 57, 55, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseMeasureDatetime_DateOnly(t *testing.T) {
	result, err := timeparser.ParseMeasureDatetime("2024-08-27", time.Time{})
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2024, 8, 27, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseMeasureDatetime_EmptyUsesFallback(t *testing.T) {
	fallback := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	result, err := timeparser.ParseMeasureDatetime("  ", fallback)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Equal(fallback) {
		t.Errorf("Expected fallback %v, got %v", fallback, result)
	}
}

func TestParseMeasureDatetime_Invalid(t *testing.T) {
	_, err := timeparser.ParseMeasureDatetime("27/08/2024", time.Time{})
	if err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestMonthBounds_MidMonth(t *testing.T) {
	start, end := timeparser.MonthBounds(time.Date(2024, 8, 27, 10, 0, 0, 0, time.UTC), time.UTC)

	if !start.Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected start %v", start)
	}
	if !end.Equal(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected end %v", end)
	}
}

func TestMonthBounds_December(t *testing.T) {
	start, end := timeparser.MonthBounds(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), nil)

	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected start %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected end %v", end)
	}
}

func TestSameMonth_Boundary(t *testing.T) {
	a := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	lastInstant := time.Date(2024, 8, 31, 23, 59, 59, 999, time.UTC)
	nextMonth := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	if !timeparser.SameMonth(a, lastInstant, time.UTC) {
		t.Error("Expected last instant of August to be in the same month")
	}
	if timeparser.SameMonth(a, nextMonth, time.UTC) {
		t.Error("Expected September 1st to be a different month")
	}
}
