package analysis

import (
	"slices"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// Streak is a run of consecutive calendar days with at least one play.
// Start and End are midnight in the analysis location.
type Streak struct {
	Start time.Time
	End   time.Time
	Days  int
}

type StreakSummary struct {
	Longest Streak
	// Current is the length of the streak that includes today, or 0 if
	// nothing was played today.
	Current int
	History []Streak
}

// Streaks finds runs of listening days. Days are calendar dates in loc.
func Streaks(records []scrobble.Record, today time.Time, loc *time.Location) StreakSummary {
	var summary StreakSummary
	days := distinctDays(records, loc)
	if len(days) == 0 {
		return summary
	}

	cur := Streak{Start: days[0], End: days[0], Days: 1}
	for _, d := range days[1:] {
		if d.Equal(nextDay(cur.End)) {
			cur.End = d
			cur.Days++
			continue
		}
		summary.History = append(summary.History, cur)
		cur = Streak{Start: d, End: d, Days: 1}
	}
	summary.History = append(summary.History, cur)

	for _, s := range summary.History {
		if s.Days > summary.Longest.Days {
			summary.Longest = s
		}
	}
	if last := summary.History[len(summary.History)-1]; last.End.Equal(dayOf(today, loc)) {
		summary.Current = last.Days
	}
	return summary
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}

func distinctDays(records []scrobble.Record, loc *time.Location) []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, rec := range records {
		d := dayOf(rec.StartedAt, loc)
		key := d.Format(time.DateOnly)
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, d)
	}
	slices.SortFunc(days, time.Time.Compare)
	return days
}
