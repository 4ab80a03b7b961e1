package automation

import (
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

// Window derives the calendar-bounded [start, end) bounds a scheduled
// operation covers, given now (spec.md §4.8's window table). Windows are
// truncated to a day boundary so repeated calls within the same bucket are
// byte-identical, which is what makes the operation's downstream id
// (summaryId/calibrationId/snapshotId) idempotent across retries.
//
// CUSTOM passes customStart/customEnd through unchanged; every other kind
// ignores them.
func Window(kind domain.SnapshotType, now, customStart, customEnd time.Time) (time.Time, time.Time) {
	switch kind {
	case domain.SnapshotWeekly:
		return weeklyWindow(now)
	case domain.SnapshotMonthly:
		return monthlyWindow(now)
	case domain.SnapshotCustom:
		return customStart, customEnd
	default:
		return dailyWindow(now)
	}
}

func dailyWindow(now time.Time) (time.Time, time.Time) {
	today := truncateToDay(now)
	return today.AddDate(0, 0, -1), today
}

// weeklyWindow returns [previous Monday 00:00, this bucket's Monday 00:00):
// the most recently completed Mon-Sun week. daysBack is "how many days
// before today was that Monday" — 6 when today is Sunday (weekday 0), or
// weekday+6 otherwise; Go's time.Weekday already numbers Sunday=0, so both
// cases reduce to the same expression.
func weeklyWindow(now time.Time) (time.Time, time.Time) {
	today := truncateToDay(now)
	daysBack := int(today.Weekday()) + 6
	lastMonday := today.AddDate(0, 0, -daysBack)
	return lastMonday, lastMonday.AddDate(0, 0, 7)
}

// monthlyWindow returns [first of previous month 00:00, first of this
// month 00:00): the full previous calendar month.
func monthlyWindow(now time.Time) (time.Time, time.Time) {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfThisMonth.AddDate(0, -1, 0), firstOfThisMonth
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
