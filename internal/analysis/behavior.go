package analysis

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// fullListen is the completion ratio from which a listen counts as full.
const fullListen = 0.9

// Completion summarizes how much of each track was heard. Only records with
// a known duration take part.
type Completion struct {
	Measured int
	Average  Ratio
	Full     int
	Partial  int
}

// CompletionOf looks at plays and skips alike; a skip is a listen too.
func CompletionOf(records ...[]scrobble.Record) Completion {
	var c Completion
	var sum float64
	for _, recs := range records {
		for _, rec := range recs {
			if rec.CompletionRatio == nil {
				continue
			}
			r := min(*rec.CompletionRatio, 1)
			c.Measured++
			sum += r
			if r >= fullListen {
				c.Full++
			} else {
				c.Partial++
			}
		}
	}
	if c.Measured > 0 {
		c.Average = Ratio{Value: sum / float64(c.Measured), Defined: true}
	}
	return c
}

// TrackCount is a track with a count of something that happened to it.
type TrackCount struct {
	Title  string
	Artist string
	Count  int
	// Days is the number of days the count is spread over, when relevant.
	Days int
}

func sortTrackCounts(tc []TrackCount) {
	slices.SortFunc(tc, func(a, b TrackCount) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.Artist, b.Artist),
		)
	})
}

// MostSkipped ranks the tracks of skips by how often they were skipped.
func MostSkipped(skips []scrobble.Record, n int) []TrackCount {
	top := TopN(skips, KindTrack, n)
	out := make([]TrackCount, 0, len(top.Entries))
	for _, e := range top.Entries {
		out = append(out, TrackCount{Title: e.Name, Artist: e.Artist, Count: e.Plays})
	}
	return out
}

// Seeking summarizes how much listeners jump around within tracks.
type Seeking struct {
	Seeks          int
	TracksWithSeek int
	IntroSkips     int
	Forward        time.Duration
	Backward       time.Duration
}

func SeekingOf(records ...[]scrobble.Record) Seeking {
	var s Seeking
	for _, recs := range records {
		for _, rec := range recs {
			s.Seeks += rec.Seeks.Count
			s.Forward += rec.Seeks.Forward
			s.Backward += rec.Seeks.Backward
			if rec.Seeks.Count > 0 {
				s.TracksWithSeek++
			}
			if rec.Seeks.IntroSkipped {
				s.IntroSkips++
			}
		}
	}
	return s
}

// RepeatObsessions finds tracks played more than once on the same local
// day. Count is the number of repeats (plays after the first that day) and
// Days the number of days with repeats. It also returns how many distinct
// days had any repeat.
func RepeatObsessions(plays []scrobble.Record, loc *time.Location, n int) ([]TrackCount, int) {
	type dayKey struct {
		track topKey
		day   string
	}
	perDay := make(map[dayKey]int)
	for _, rec := range plays {
		k, ok := keyFor(rec, KindTrack)
		if !ok {
			continue
		}
		perDay[dayKey{k, dayOf(rec.StartedAt, loc).Format(time.DateOnly)}]++
	}

	byTrack := make(map[topKey]*TrackCount)
	days := make(map[string]bool)
	for k, plays := range perDay {
		if plays < 2 {
			continue
		}
		days[k.day] = true
		tc := byTrack[k.track]
		if tc == nil {
			tc = &TrackCount{Title: k.track.name, Artist: k.track.artist}
			byTrack[k.track] = tc
		}
		tc.Count += plays - 1
		tc.Days++
	}

	out := make([]TrackCount, 0, len(byTrack))
	for _, tc := range byTrack {
		out = append(out, *tc)
	}
	sortTrackCounts(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, len(days)
}

// MonthTop is the leading artist of one calendar month.
type MonthTop struct {
	Month         time.Time
	Plays         int
	TopArtist     string
	TopPlays      int
	RunnerUp      string
	RunnerUpPlays int
}

// MonthlyTopArtists returns one entry per local calendar month that has
// plays, oldest first.
func MonthlyTopArtists(plays []scrobble.Record, loc *time.Location) []MonthTop {
	byMonth := make(map[time.Time][]scrobble.Record)
	for _, rec := range plays {
		t := rec.StartedAt.In(loc)
		m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		byMonth[m] = append(byMonth[m], rec)
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	slices.SortFunc(months, time.Time.Compare)

	out := make([]MonthTop, 0, len(months))
	for _, m := range months {
		recs := byMonth[m]
		mt := MonthTop{Month: m, Plays: len(recs)}
		top := TopN(recs, KindArtist, 2).Entries
		if len(top) > 0 {
			mt.TopArtist, mt.TopPlays = top[0].Name, top[0].Plays
		}
		if len(top) > 1 {
			mt.RunnerUp, mt.RunnerUpPlays = top[1].Name, top[1].Plays
		}
		out = append(out, mt)
	}
	return out
}

const (
	minutesPerAlbum = 45
	hoursPerMovie   = 2.5
)

// FunFacts phrases a handful of notable numbers about plays. discovered is
// the number of artists first heard in the window.
func FunFacts(plays []scrobble.Record, discovered int, loc *time.Location) []string {
	if len(plays) == 0 {
		return []string{"No listening data for this period. Time to press play!"}
	}

	var facts []string
	var listening time.Duration
	var longest scrobble.Record
	for _, rec := range plays {
		listening += rec.Elapsed
		if rec.Metadata.Duration > longest.Metadata.Duration {
			longest = rec
		}
	}

	hours := listening.Hours()
	if hours >= 1 {
		facts = append(facts, fmt.Sprintf("You could have listened to %.0f full albums with your %.1f hours of music.",
			listening.Minutes()/minutesPerAlbum, hours))
	}
	if hours >= 24 {
		facts = append(facts, fmt.Sprintf("That's %.1f full days of non-stop music.", hours/24))
	}
	if hours >= 100 {
		facts = append(facts, fmt.Sprintf("Instead of music, you could have watched %.0f movies.", hours/hoursPerMovie))
	}

	if top := TopN(plays, KindTrack, 1).Entries; len(top) > 0 && top[0].Plays >= 5 {
		artist := top[0].Artist
		if artist == "" {
			artist = scrobble.UnknownLabel
		}
		facts = append(facts, fmt.Sprintf("Your #1 song %q by %s was played %d times, %.1f hours in total.",
			top[0].Name, artist, top[0].Plays, top[0].Listening.Hours()))
	}

	if discovered > 0 {
		facts = append(facts, fmt.Sprintf("You discovered %d new %s.", discovered, plural(discovered, "artist")))
	}

	if day, ok := BiggestDay(plays, loc); ok && day.Plays >= 10 {
		facts = append(facts, fmt.Sprintf("Your biggest listening day had %d plays on %s.", day.Plays, day.Date.Format(time.DateOnly)))
	}

	h := HourlyHeatmap(plays, loc)
	facts = append(facts, fmt.Sprintf("Your peak listening hour is %02d:00.", h.Peak))

	if long := longest.Metadata.Duration; long >= 7*time.Minute {
		facts = append(facts, fmt.Sprintf("The longest track you played was %q at %.1f minutes.", longest.DisplayTitle(), long.Minutes()))
	}

	if days := len(distinctDays(plays, loc)); days > 0 {
		if perDay := float64(len(plays)) / float64(days); perDay >= 5 {
			facts = append(facts, fmt.Sprintf("On average you played %.1f tracks per listening day.", perDay))
		}
	}

	if top := TopN(plays, KindArtist, 1).Entries; len(top) > 0 {
		if share := float64(top[0].Plays) / float64(len(plays)); share >= 0.1 {
			facts = append(facts, fmt.Sprintf("%s accounted for %.1f%% of your listening.", top[0].Name, share*100))
		}
	}
	return facts
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
