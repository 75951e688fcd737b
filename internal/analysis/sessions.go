package analysis

import (
	"slices"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

const DefaultSessionBreak = 30 * time.Minute

// Session is a run of plays with no gap longer than the session break.
type Session struct {
	Start     time.Time
	End       time.Time
	Plays     int
	Listening time.Duration
}

// Span is the wall-clock length of the session.
func (s Session) Span() time.Duration {
	return s.End.Sub(s.Start)
}

// Sessions groups plays into listening sessions. A new session starts when
// the next play begins more than breakAfter after the latest end seen so far
// in the current session.
func Sessions(records []scrobble.Record, breakAfter time.Duration) []Session {
	if len(records) == 0 {
		return nil
	}
	sorted := sortedByStart(records)

	var sessions []Session
	cur := newSession(sorted[0])
	for _, rec := range sorted[1:] {
		if rec.StartedAt.Sub(cur.End) > breakAfter {
			sessions = append(sessions, cur)
			cur = newSession(rec)
			continue
		}
		cur.Plays++
		cur.Listening += rec.Elapsed
		if end := rec.EndedAt(); end.After(cur.End) {
			cur.End = end
		}
	}
	return append(sessions, cur)
}

func newSession(rec scrobble.Record) Session {
	return Session{
		Start:     rec.StartedAt,
		End:       rec.EndedAt(),
		Plays:     1,
		Listening: rec.Elapsed,
	}
}

// SessionSummary aggregates a list of sessions.
type SessionSummary struct {
	Count          int
	AverageSpan    time.Duration
	MedianSpan     time.Duration
	Longest        Session
	TotalListening time.Duration
}

func Summarize(sessions []Session) SessionSummary {
	summary := SessionSummary{Count: len(sessions)}
	if len(sessions) == 0 {
		return summary
	}

	spans := make([]float64, 0, len(sessions))
	var total time.Duration
	for _, s := range sessions {
		span := s.Span()
		spans = append(spans, float64(span))
		total += span
		summary.TotalListening += s.Listening
		if span > summary.Longest.Span() {
			summary.Longest = s
		}
	}
	summary.AverageSpan = total / time.Duration(len(sessions))
	summary.MedianSpan = time.Duration(median(spans))
	return summary
}

func sortedByStart(records []scrobble.Record) []scrobble.Record {
	if slices.IsSortedFunc(records, compareStart) {
		return records
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, compareStart)
	return sorted
}

func compareStart(a, b scrobble.Record) int {
	return a.StartedAt.Compare(b.StartedAt)
}

// median sorts values in place.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
