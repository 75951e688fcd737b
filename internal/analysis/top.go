package analysis

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// Kind selects what TopN groups by.
type Kind int

const (
	KindArtist Kind = iota
	KindAlbum
	KindTrack
)

func (k Kind) String() string {
	switch k {
	case KindArtist:
		return "artist"
	case KindAlbum:
		return "album"
	case KindTrack:
		return "track"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "artist", "artists":
		return KindArtist, nil
	case "album", "albums":
		return KindAlbum, nil
	case "track", "tracks", "song", "songs":
		return KindTrack, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Entry is one ranked row. Artist is set for albums and tracks.
type Entry struct {
	Name      string
	Artist    string
	Plays     int
	Listening time.Duration
}

// Top is the result of TopN. Plays with no usable key are counted in
// Unknown and never ranked.
type Top struct {
	Kind    Kind
	Entries []Entry
	Unknown Entry
}

type topKey struct {
	name, artist string
}

func keyFor(rec scrobble.Record, kind Kind) (topKey, bool) {
	switch kind {
	case KindArtist:
		a := rec.Artist()
		return topKey{name: a}, a != ""
	case KindAlbum:
		artist := rec.Metadata.AlbumArtist
		if artist == "" {
			artist = rec.Artist()
		}
		return topKey{name: rec.Album(), artist: artist}, rec.Album() != ""
	case KindTrack:
		return topKey{name: rec.Title(), artist: rec.Artist()}, rec.Title() != ""
	}
	return topKey{}, false
}

// TopN ranks records by kind. Ties on play count go to the entry with more
// listening time, then by name and artist. n <= 0 returns every entry.
func TopN(records []scrobble.Record, kind Kind, n int) Top {
	top := Top{
		Kind:    kind,
		Unknown: Entry{Name: scrobble.UnknownLabel},
	}

	index := make(map[topKey]int)
	for _, rec := range records {
		key, ok := keyFor(rec, kind)
		if !ok {
			top.Unknown.Plays++
			top.Unknown.Listening += rec.Elapsed
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(top.Entries)
			index[key] = i
			top.Entries = append(top.Entries, Entry{Name: key.name, Artist: key.artist})
		}
		top.Entries[i].Plays++
		top.Entries[i].Listening += rec.Elapsed
	}

	slices.SortFunc(top.Entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(b.Plays, a.Plays),
			cmp.Compare(b.Listening, a.Listening),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Artist, b.Artist),
		)
	})
	if n > 0 && len(top.Entries) > n {
		top.Entries = top.Entries[:n]
	}
	return top
}

// Share returns the fraction of all plays that the listed entries account
// for, including the Unknown bucket in the total.
func (t Top) Share(total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0
	for _, e := range t.Entries {
		sum += e.Plays
	}
	return float64(sum) / float64(total)
}
