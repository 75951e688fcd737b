package playback

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Metadata describes the track a player reports. Values are treated as
// immutable once handed to a Tracker. A zero Duration means the player did
// not report a length.
type Metadata struct {
	Title       string
	Artists     []string
	Album       string
	AlbumArtist string
	Duration    time.Duration
	Genre       string
	Composer    string
	TrackNumber int
	DiscNumber  int
	ReleaseDate string
	URL         string
	ArtURL      string
	Rating      *float64
	BPM         int

	MusicBrainzTrackID string
	ExternalIDs        map[string]string
}

// Artist returns the primary artist, or "" if none was reported.
func (m Metadata) Artist() string {
	if len(m.Artists) == 0 {
		return ""
	}
	return m.Artists[0]
}

// IsEmpty reports whether the metadata identifies nothing at all.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && len(m.Artists) == 0 && m.Album == ""
}

// SameTrack reports whether a and b identify the same track. Only title,
// artists and album take part; duration and identifiers may be missing on
// either side.
func SameTrack(a, b Metadata) bool {
	return a.Title == b.Title && a.Album == b.Album && slices.Equal(a.Artists, b.Artists)
}

// Source is where a track's audio comes from.
type Source string

const (
	SourceLocal     Source = "local"
	SourceStreaming Source = "streaming"
)

// ClassifySource decides whether a track is a local file. Players listed in
// localPlayers are trusted to only play local files, since several of them
// never report xesam:url. Otherwise a file:// URL or an absolute path is local
// and anything else (including no URL) is streaming.
func ClassifySource(rawURL, playerName string, localPlayers []string) Source {
	if playerName != "" {
		name := strings.TrimPrefix(playerName, BusNamePrefix)
		for _, p := range localPlayers {
			if isPlayer(name, p) {
				return SourceLocal
			}
		}
	}

	if rawURL == "" {
		return SourceStreaming
	}
	if filepath.IsAbs(rawURL) {
		return SourceLocal
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return SourceStreaming
	}
	if u.Scheme == "file" {
		return SourceLocal
	}
	return SourceStreaming
}

// isPlayer matches a bus name suffix against an allowlisted player, either
// exactly or followed by an instance suffix such as ".instance1234".
func isPlayer(name, player string) bool {
	if len(name) < len(player) || !strings.EqualFold(name[:len(player)], player) {
		return false
	}
	return len(name) == len(player) || name[len(player)] == '.'
}

// FilePath returns the local path for file:// URLs, or the URL unchanged.
func FilePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return rawURL
	}
	return u.Path
}

// BusNamePrefix is the well-known name prefix every MPRIS player owns.
const BusNamePrefix = "org.mpris.MediaPlayer2."

// DefaultLocalPlayers are players that only play local files.
var DefaultLocalPlayers = []string{
	"io.bassi.Amberol",
	"org.gnome.Lollypop",
	"org.gnome.Music",
	"audacious",
	"deadbeef",
	"quodlibet",
	"clementine",
	"strawberry",
	"rhythmbox",
	"elisa",
	"sayonara",
	"cantata",
}
