package httpapi

import (
	"testing"
	"time"
)

func TestParseTimeFilter(t *testing.T) {
	t.Parallel()

	if got, err := parseTimeFilter("", false); err != nil || got != nil {
		t.Fatalf("empty filter must be nil, got %v err %v", got, err)
	}

	got, err := parseTimeFilter("2026-08-20T10:00:00Z", false)
	if err != nil || got == nil {
		t.Fatalf("RFC3339 must parse, got %v err %v", got, err)
	}
	if !got.Equal(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parsed time %v", got)
	}

	endOfDay, err := parseTimeFilter("2026-08-20", true)
	if err != nil || endOfDay == nil {
		t.Fatalf("date must parse, got %v err %v", endOfDay, err)
	}
	if endOfDay.Day() != 20 || endOfDay.Hour() != 23 {
		t.Fatalf("expected end-of-day timestamp, got %v", endOfDay)
	}

	if _, err := parseTimeFilter("yesterday", false); err == nil {
		t.Fatalf("expected rejection for non-time input")
	}
}
