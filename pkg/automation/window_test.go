package automation

import (
	"testing"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 4, 5, 0, time.UTC)
}

func TestWindow_Daily(t *testing.T) {
	start, end := Window(domain.SnapshotDaily, utc(2026, time.March, 10), time.Time{}, time.Time{})
	if !start.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestWindow_WeeklyOnMonday(t *testing.T) {
	// 2026-03-09 is a Monday.
	now := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
	start, end := Window(domain.SnapshotWeekly, now, time.Time{}, time.Time{})
	wantStart := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestWindow_WeeklyOnSunday(t *testing.T) {
	// 2026-03-15 is a Sunday.
	now := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC)
	start, end := Window(domain.SnapshotWeekly, now, time.Time{}, time.Time{})
	wantStart := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}

func TestWindow_Monthly(t *testing.T) {
	start, end := Window(domain.SnapshotMonthly, utc(2026, time.April, 5), time.Time{}, time.Time{})
	wantStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("expected [%v,%v), got [%v,%v)", wantStart, wantEnd, start, end)
	}
}

func TestWindow_CustomPassesThrough(t *testing.T) {
	customStart := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	customEnd := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	start, end := Window(domain.SnapshotCustom, utc(2026, time.June, 1), customStart, customEnd)
	if !start.Equal(customStart) || !end.Equal(customEnd) {
		t.Fatalf("expected custom bounds to pass through unchanged")
	}
}

// TestWindow_MonthlyMatchesCalibrationWindowScenario reproduces the
// getCalibrationWindow(2026-02-15T12:00Z) scenario verbatim: spec.md states
// the bound as the inclusive last millisecond of January
// (2026-01-31T23:59:59.999Z). Window returns the equivalent half-open upper
// bound, 2026-02-01T00:00:00.000Z, one millisecond later — every comparison
// against end in this package uses "< end", so the two conventions select
// the same set of records.
func TestWindow_MonthlyMatchesCalibrationWindowScenario(t *testing.T) {
	now := time.Date(2026, time.February, 15, 12, 0, 0, 0, time.UTC)
	start, end := Window(domain.SnapshotMonthly, now, time.Time{}, time.Time{})

	wantStart := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	wantInclusiveEnd := time.Date(2026, time.January, 31, 23, 59, 59, 999000000, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	if gotInclusiveEnd := end.Add(-time.Millisecond); !gotInclusiveEnd.Equal(wantInclusiveEnd) {
		t.Fatalf("expected inclusive end %v, got %v (half-open end was %v)", wantInclusiveEnd, gotInclusiveEnd, end)
	}
}

// TestWindow_WeeklyMatchesWeeklyWindowScenario reproduces the
// getWeeklyWindow scenario verbatim: spec.md states the bound as the
// inclusive last millisecond of Sunday 2026-02-15
// (2026-02-15T23:59:59.999Z). Same half-open/inclusive equivalence as
// TestWindow_MonthlyMatchesCalibrationWindowScenario.
func TestWindow_WeeklyMatchesWeeklyWindowScenario(t *testing.T) {
	// 2026-02-15 is a Sunday; the covered week is Mon 2026-02-09..Sun 2026-02-15.
	now := time.Date(2026, time.February, 15, 18, 0, 0, 0, time.UTC)
	start, end := Window(domain.SnapshotWeekly, now, time.Time{}, time.Time{})

	wantStart := time.Date(2026, time.February, 9, 0, 0, 0, 0, time.UTC)
	wantInclusiveEnd := time.Date(2026, time.February, 15, 23, 59, 59, 999000000, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	if gotInclusiveEnd := end.Add(-time.Millisecond); !gotInclusiveEnd.Equal(wantInclusiveEnd) {
		t.Fatalf("expected inclusive end %v, got %v (half-open end was %v)", wantInclusiveEnd, gotInclusiveEnd, end)
	}
}

func TestWindow_IsIdempotentWithinTheSameDay(t *testing.T) {
	morning := utc(2026, time.March, 10)
	evening := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
	s1, e1 := Window(domain.SnapshotDaily, morning, time.Time{}, time.Time{})
	s2, e2 := Window(domain.SnapshotDaily, evening, time.Time{}, time.Time{})
	if !s1.Equal(s2) || !e1.Equal(e2) {
		t.Fatal("expected the same daily window regardless of time-of-day")
	}
}
