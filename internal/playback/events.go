package playback

import "time"

// PlayerID identifies one player instance for the lifetime of its process.
// A player that disappears and comes back gets a new PlayerID.
type PlayerID string

// Event is one observation from an event source. The set of variants is
// closed: only the types in this file implement it.
type Event interface {
	Player() PlayerID
	Time() time.Time
	isEvent()
}

// Header carries the fields every event has.
type Header struct {
	ID   PlayerID
	// Name is the human-readable player name, e.g. "org.mpris.MediaPlayer2.mpv".
	Name string
	At   time.Time
}

func (h Header) Player() PlayerID { return h.ID }
func (h Header) Time() time.Time  { return h.At }
func (Header) isEvent()           {}

type PlayerAppeared struct {
	Header
}

type PlayerVanished struct {
	Header
}

type TrackChanged struct {
	Header
	Metadata Metadata
}

// PositionChanged reports the playback offset within the current track,
// either from a periodic poll or a Seeked signal.
type PositionChanged struct {
	Header
	Position time.Duration
}

type StatusChanged struct {
	Header
	Status Status
}

type RateChanged struct {
	Header
	Rate float64
}

// Status is the playback status a player reports.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

// String returns the status name as MPRIS spells it.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "Stopped"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// ParseStatus converts an MPRIS PlaybackStatus string.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "Playing":
		return StatusPlaying, true
	case "Paused":
		return StatusPaused, true
	case "Stopped":
		return StatusStopped, true
	default:
		return StatusStopped, false
	}
}
