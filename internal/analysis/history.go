package analysis

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/ademuri/music-tracker/internal/store"
)

// Lifetime is what the complete play history says about each artist, track
// and album, gathered in one chronological pass. Window analyses use it to
// tell new artists from old ones and rare tracks from favourites.
type Lifetime struct {
	Plays      int
	Corrupt    int
	Milestones MilestoneSummary

	artists map[string]*tally
	tracks  map[topKey]*tally
	albums  map[topKey]map[string]bool
}

type tally struct {
	First time.Time
	Plays int
}

func newLifetime() *Lifetime {
	return &Lifetime{
		artists: make(map[string]*tally),
		tracks:  make(map[topKey]*tally),
		albums:  make(map[topKey]map[string]bool),
	}
}

// ScanHistory reads every record of history once, oldest first, as
// store.QueryAll yields them. Skips are ignored. Corrupt rows are counted and
// passed over; any other error aborts the scan.
func ScanHistory(history iter.Seq2[scrobble.Record, error]) (*Lifetime, error) {
	l := newLifetime()
	m := newMilestoneCounter()
	for rec, err := range history {
		if err != nil {
			var corrupt *store.CorruptRowError
			if errors.As(err, &corrupt) {
				l.Corrupt++
				continue
			}
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if !rec.IsPlay() {
			continue
		}
		l.add(rec)
		m.add(rec)
	}
	l.Milestones = m.summary()
	return l, nil
}

// LifetimeOf treats plays as the complete history.
func LifetimeOf(plays []scrobble.Record) *Lifetime {
	l := newLifetime()
	m := newMilestoneCounter()
	for _, rec := range sortedByStart(plays) {
		l.add(rec)
		m.add(rec)
	}
	l.Milestones = m.summary()
	return l
}

func (l *Lifetime) add(rec scrobble.Record) {
	l.Plays++
	if a := rec.Artist(); a != "" {
		count(l.artists, a, rec.StartedAt)
	}
	if k, ok := keyFor(rec, KindTrack); ok {
		count(l.tracks, k, rec.StartedAt)
	}
	if k, ok := keyFor(rec, KindAlbum); ok && rec.Title() != "" {
		titles := l.albums[k]
		if titles == nil {
			titles = make(map[string]bool)
			l.albums[k] = titles
		}
		titles[rec.Title()] = true
	}
}

func count[K comparable](m map[K]*tally, k K, at time.Time) {
	t := m[k]
	if t == nil {
		m[k] = &tally{First: at, Plays: 1}
		return
	}
	t.Plays++
	if at.Before(t.First) {
		t.First = at
	}
}

// ArtistPlays returns how often artist was ever played and when first.
func (l *Lifetime) ArtistPlays(artist string) (plays int, first time.Time) {
	if t := l.artists[artist]; t != nil {
		return t.Plays, t.First
	}
	return 0, time.Time{}
}

// Discovery splits the artists played in w into those first heard inside w
// and those heard before it.
type Discovery struct {
	Artists    int
	New        []string
	Returning  int
	Rate       Ratio
	FirstFound string
}

func Discover(plays []scrobble.Record, w Window, l *Lifetime) Discovery {
	var d Discovery
	seen := make(map[string]bool)
	var firstAt time.Time
	for _, rec := range sortedByStart(plays) {
		a := rec.Artist()
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		d.Artists++
		_, first := l.ArtistPlays(a)
		if first.IsZero() || !first.Before(w.From) {
			d.New = append(d.New, a)
			if firstAt.IsZero() || rec.StartedAt.Before(firstAt) {
				firstAt = rec.StartedAt
				d.FirstFound = a
			}
			continue
		}
		d.Returning++
	}
	slices.Sort(d.New)
	d.Rate = NewRatio(len(d.New), d.Artists)
	return d
}

// Loyalty is how long a top artist of the window has been listened to.
type Loyalty struct {
	Artist        string
	PlaysInPeriod int
	TotalPlays    int
	FirstPlay     time.Time
	Days          int
}

// ArtistLoyalty looks up the lifetime history of the window's n top
// artists.
func ArtistLoyalty(plays []scrobble.Record, l *Lifetime, n int, now time.Time) []Loyalty {
	var out []Loyalty
	for _, e := range TopN(plays, KindArtist, n).Entries {
		total, first := l.ArtistPlays(e.Name)
		lo := Loyalty{
			Artist:        e.Name,
			PlaysInPeriod: e.Plays,
			TotalPlays:    max(total, e.Plays),
			FirstPlay:     first,
		}
		if !first.IsZero() && now.After(first) {
			lo.Days = int(now.Sub(first) / (24 * time.Hour))
		}
		out = append(out, lo)
	}
	return out
}

// OneHitWonder is a play in the window by an artist played exactly once ever.
type OneHitWonder struct {
	Artist   string
	Title    string
	Album    string
	PlayedAt time.Time
}

func OneHitWonders(plays []scrobble.Record, l *Lifetime) []OneHitWonder {
	var out []OneHitWonder
	for _, rec := range plays {
		a := rec.Artist()
		if a == "" {
			continue
		}
		if total, _ := l.ArtistPlays(a); total == 1 {
			out = append(out, OneHitWonder{Artist: a, Title: rec.Title(), Album: rec.Album(), PlayedAt: rec.StartedAt})
		}
	}
	slices.SortFunc(out, func(a, b OneHitWonder) int {
		return cmp.Or(cmp.Compare(a.Artist, b.Artist), a.PlayedAt.Compare(b.PlayedAt))
	})
	return out
}

// DeepCut is a rarely played track by an artist the window played a lot.
type DeepCut struct {
	Title     string
	Plays     int
	FirstPlay time.Time
}

type ArtistDeepCuts struct {
	Artist       string
	Plays        int
	UniqueTracks int
	Cuts         []DeepCut
}

const (
	deepCutMinArtistPlays = 10
	deepCutMaxTrackPlays  = 2
	deepCutsPerArtist     = 5
)

// DeepCuts lists, for up to n artists with at least ten plays in the
// window, their tracks played at most twice ever, rarest first.
func DeepCuts(plays []scrobble.Record, l *Lifetime, n int) []ArtistDeepCuts {
	byArtist := make(map[string]map[string]bool)
	for _, rec := range plays {
		if a := rec.Artist(); a != "" && rec.Title() != "" {
			if byArtist[a] == nil {
				byArtist[a] = make(map[string]bool)
			}
			byArtist[a][rec.Title()] = true
		}
	}

	var out []ArtistDeepCuts
	for _, e := range TopN(plays, KindArtist, 0).Entries {
		if e.Plays < deepCutMinArtistPlays || (n > 0 && len(out) >= n) {
			break
		}
		dc := ArtistDeepCuts{Artist: e.Name, Plays: e.Plays, UniqueTracks: len(byArtist[e.Name])}
		for k, t := range l.tracks {
			if k.artist == e.Name && t.Plays <= deepCutMaxTrackPlays {
				dc.Cuts = append(dc.Cuts, DeepCut{Title: k.name, Plays: t.Plays, FirstPlay: t.First})
			}
		}
		slices.SortFunc(dc.Cuts, func(a, b DeepCut) int {
			return cmp.Or(
				cmp.Compare(a.Plays, b.Plays),
				b.FirstPlay.Compare(a.FirstPlay),
				cmp.Compare(a.Title, b.Title),
			)
		})
		if len(dc.Cuts) > deepCutsPerArtist {
			dc.Cuts = dc.Cuts[:deepCutsPerArtist]
		}
		out = append(out, dc)
	}
	return out
}

// AlbumCompletion compares the distinct tracks of an album played in the
// window with every track of it ever played.
type AlbumCompletion struct {
	Album        string
	Artist       string
	TracksPlayed int
	TracksKnown  int
	Ratio        float64
}

// AlbumCompletions returns the window's albums, most complete first, and the
// mean completion.
func AlbumCompletions(plays []scrobble.Record, l *Lifetime) ([]AlbumCompletion, float64) {
	played := make(map[topKey]map[string]bool)
	for _, rec := range plays {
		k, ok := keyFor(rec, KindAlbum)
		if !ok || rec.Title() == "" {
			continue
		}
		if played[k] == nil {
			played[k] = make(map[string]bool)
		}
		played[k][rec.Title()] = true
	}

	out := make([]AlbumCompletion, 0, len(played))
	var sum float64
	for k, titles := range played {
		known := max(len(l.albums[k]), len(titles))
		ac := AlbumCompletion{
			Album:        k.name,
			Artist:       k.artist,
			TracksPlayed: len(titles),
			TracksKnown:  known,
			Ratio:        float64(len(titles)) / float64(known),
		}
		sum += ac.Ratio
		out = append(out, ac)
	}
	slices.SortFunc(out, func(a, b AlbumCompletion) int {
		return cmp.Or(
			cmp.Compare(b.Ratio, a.Ratio),
			cmp.Compare(b.TracksPlayed, a.TracksPlayed),
			cmp.Compare(a.Album, b.Album),
			cmp.Compare(a.Artist, b.Artist),
		)
	})
	if len(out) == 0 {
		return out, 0
	}
	return out, sum / float64(len(out))
}
