package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2025-01-31")
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2025-01-31" {
		t.Fatalf("unexpected date %v", got)
	}
	got, ok = ParseDate("2025-01-31T23:59:00Z")
	if !ok || !got.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected truncation to day, got %v", got)
	}
	if _, ok := ParseDate("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestDayUsesUTCCalendarDay(t *testing.T) {
	east := time.FixedZone("UTC+9", 9*3600)
	got := Day(time.Date(2025, 2, 1, 3, 0, 0, 0, east))
	if !got.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) || got.Location() != time.UTC {
		t.Fatalf("unexpected %v", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Bruno F. "); got != "bruno f." {
		t.Fatalf("unexpected %q", got)
	}
}
