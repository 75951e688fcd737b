package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// Ratio is a fraction that may be undefined because its denominator is zero.
type Ratio struct {
	Value   float64
	Defined bool
}

func NewRatio(num, den int) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: float64(num) / float64(den), Defined: true}
}

// String formats the ratio as a percentage, or N/A.
func (r Ratio) String() string {
	if !r.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", r.Value*100)
}

func (r Ratio) MarshalYAML() (any, error) {
	if !r.Defined {
		return "N/A", nil
	}
	return round(r.Value, 3), nil
}

// SkipRate is skips over all decided playbacks.
func SkipRate(plays, skips int) Ratio {
	return NewRatio(skips, plays+skips)
}

// Scores are the behavioural measurements personality rules look at. Shares
// are fractions of plays in [0, 1].
type Scores struct {
	Plays                int
	UniqueArtists        int
	ArtistDiversity      float64
	RepeatRate           float64
	MedianHour           int
	NightShare           float64
	MorningShare         float64
	WeekendShare         float64
	TopArtistShare       float64
	SkipRate             Ratio
	MedianSessionMinutes float64
	AlbumDepth           float64
}

func isNight(hour int) bool   { return hour >= 22 || hour <= 4 }
func isMorning(hour int) bool { return hour >= 5 && hour <= 9 }

// ComputeScores measures plays (and skips, for the skip rate) in loc.
func ComputeScores(plays, skips []scrobble.Record, sessions []Session, loc *time.Location) Scores {
	s := Scores{
		Plays:    len(plays),
		SkipRate: SkipRate(len(plays), len(skips)),
	}
	if len(plays) == 0 {
		return s
	}

	artists := make(map[string]bool)
	tracks := make(map[topKey]bool)
	albumTracks := make(map[topKey]map[string]bool)
	hours := make([]float64, 0, len(plays))
	var night, morning, weekend int
	for _, rec := range plays {
		if a := rec.Artist(); a != "" {
			artists[a] = true
		}
		if k, ok := keyFor(rec, KindTrack); ok {
			tracks[k] = true
		}
		if k, ok := keyFor(rec, KindAlbum); ok {
			if albumTracks[k] == nil {
				albumTracks[k] = make(map[string]bool)
			}
			albumTracks[k][rec.Title()] = true
		}

		local := rec.StartedAt.In(loc)
		h := local.Hour()
		hours = append(hours, float64(h))
		if isNight(h) {
			night++
		}
		if isMorning(h) {
			morning++
		}
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
	}

	n := float64(len(plays))
	s.UniqueArtists = len(artists)
	s.ArtistDiversity = float64(len(artists)) / n
	s.RepeatRate = (n - float64(len(tracks))) / n
	s.MedianHour = int(median(hours))
	s.NightShare = float64(night) / n
	s.MorningShare = float64(morning) / n
	s.WeekendShare = float64(weekend) / n
	s.TopArtistShare = TopN(plays, KindArtist, 5).Share(len(plays))

	if len(sessions) > 0 {
		s.MedianSessionMinutes = Summarize(sessions).MedianSpan.Minutes()
	}
	if len(albumTracks) > 0 {
		total := 0
		for _, t := range albumTracks {
			total += len(t)
		}
		s.AlbumDepth = float64(total) / float64(len(albumTracks))
	}
	return s
}

// Archetype is a listening personality.
type Archetype struct {
	Name        string
	Description string
}

// Rule assigns an archetype when Match holds. Rules are checked in order.
type Rule struct {
	Archetype
	Match func(Scores) bool
}

// DefaultRules are checked top to bottom; the last one always matches.
var DefaultRules = []Rule{
	{
		Archetype{"Silent Observer", "Hardly any plays to go on yet."},
		func(s Scores) bool { return s.Plays == 0 },
	},
	{
		Archetype{"Obsessive", "Plays favourite songs again and again."},
		func(s Scores) bool { return s.RepeatRate >= 0.6 },
	},
	{
		Archetype{"Night Owl", "Most listening happens late at night."},
		func(s Scores) bool { return s.NightShare >= 0.4 },
	},
	{
		Archetype{"Early Bird", "Starts the day with music."},
		func(s Scores) bool { return s.MorningShare >= 0.3 },
	},
	{
		Archetype{"Restless Skipper", "Rarely lets a track finish."},
		func(s Scores) bool { return s.SkipRate.Defined && s.SkipRate.Value >= 0.4 },
	},
	{
		Archetype{"Explorer", "Constantly discovering new artists."},
		func(s Scores) bool { return s.ArtistDiversity >= 0.5 },
	},
	{
		Archetype{"Loyalist", "Sticks with a small circle of artists."},
		func(s Scores) bool { return s.TopArtistShare >= 0.5 },
	},
	{
		Archetype{"Completionist", "Listens to albums front to back."},
		func(s Scores) bool { return s.AlbumDepth >= 6 },
	},
	{
		Archetype{"Marathoner", "Long, uninterrupted listening sessions."},
		func(s Scores) bool { return s.MedianSessionMinutes >= 90 },
	},
	{
		Archetype{"Weekend Warrior", "Saves the listening for the weekend."},
		func(s Scores) bool { return s.WeekendShare >= 0.45 },
	},
	{
		Archetype{"Eclectic", "A bit of everything, any time of day."},
		func(Scores) bool { return true },
	},
}

type Profile struct {
	Primary   Archetype
	// Secondary is the next matching archetype, if any.
	Secondary *Archetype
	Scores    Scores
}

// Classify picks the first matching rule as the primary archetype. The next
// matching rule, unless it is the final fallback, becomes the secondary one.
func Classify(s Scores, rules []Rule) Profile {
	p := Profile{Scores: s}
	found := false
	for i, r := range rules {
		if !r.Match(s) {
			continue
		}
		if !found {
			p.Primary = r.Archetype
			found = true
			continue
		}
		if i < len(rules)-1 {
			a := r.Archetype
			p.Secondary = &a
		}
		break
	}
	return p
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
