package analysis

import (
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// Heatmap counts plays per hour of the day.
type Heatmap struct {
	Hours    [24]int
	Peak     int
	Quietest int
}

// HourlyHeatmap buckets plays by their local start hour. Ties for peak and
// quietest go to the earlier hour.
func HourlyHeatmap(records []scrobble.Record, loc *time.Location) Heatmap {
	var h Heatmap
	for _, rec := range records {
		h.Hours[rec.StartedAt.In(loc).Hour()]++
	}
	for hour, n := range h.Hours {
		if n > h.Hours[h.Peak] {
			h.Peak = hour
		}
		if n < h.Hours[h.Quietest] {
			h.Quietest = hour
		}
	}
	return h
}

// Day is one calendar day of listening.
type Day struct {
	Date      time.Time
	Plays     int
	Listening time.Duration
	TopArtist string
	TopTrack  string
}

// BiggestDay finds the day with the most listening time. Ties go to the day
// with more plays, then the earlier day.
func BiggestDay(records []scrobble.Record, loc *time.Location) (Day, bool) {
	if len(records) == 0 {
		return Day{}, false
	}

	byDay := make(map[string][]scrobble.Record)
	var order []string
	for _, rec := range records {
		key := dayOf(rec.StartedAt, loc).Format(time.DateOnly)
		if _, ok := byDay[key]; !ok {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], rec)
	}

	var best Day
	var bestRecords []scrobble.Record
	for _, key := range order {
		recs := byDay[key]
		d := Day{Date: dayOf(recs[0].StartedAt, loc), Plays: len(recs)}
		for _, rec := range recs {
			d.Listening += rec.Elapsed
		}
		if bestRecords == nil || better(d, best) {
			best, bestRecords = d, recs
		}
	}

	best.TopArtist = topName(bestRecords, KindArtist)
	best.TopTrack = topName(bestRecords, KindTrack)
	return best, true
}

func better(a, b Day) bool {
	if a.Listening != b.Listening {
		return a.Listening > b.Listening
	}
	if a.Plays != b.Plays {
		return a.Plays > b.Plays
	}
	return a.Date.Before(b.Date)
}

func topName(records []scrobble.Record, kind Kind) string {
	top := TopN(records, kind, 1)
	if len(top.Entries) == 0 {
		return scrobble.UnknownLabel
	}
	return top.Entries[0].Name
}
