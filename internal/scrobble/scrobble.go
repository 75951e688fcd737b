// Package scrobble decides whether a concluded playback counts as a play.
package scrobble

import (
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
)

// Thresholds are the rules a playback must satisfy to count as a play.
type Thresholds struct {
	// MinPlay is the floor every play must reach.
	MinPlay time.Duration
	// MinPercent is the fraction of the track duration that counts as a play.
	MinPercent float64
	// Absolute counts a play regardless of duration, for very long tracks.
	Absolute time.Duration
}

// DefaultThresholds follows the usual scrobbling rules: at least 30 seconds,
// and either half the track or four minutes.
var DefaultThresholds = Thresholds{
	MinPlay:    30 * time.Second,
	MinPercent: 0.5,
	Absolute:   4 * time.Minute,
}

// Decision is the result of Decide.
type Decision int

const (
	Skip Decision = iota
	Scrobble
)

func (d Decision) String() string {
	if d == Scrobble {
		return "scrobble"
	}
	return "skip"
}

// Decide applies t to elapsed played time and track duration. A zero
// duration means the length is unknown, and then only the floor applies.
func Decide(elapsed, duration time.Duration, t Thresholds) Decision {
	if elapsed < t.MinPlay {
		return Skip
	}
	if duration <= 0 {
		return Scrobble
	}
	if float64(elapsed) >= t.MinPercent*float64(duration) {
		return Scrobble
	}
	if elapsed >= t.Absolute {
		return Scrobble
	}
	return Skip
}

// Outcome is how a record is stored.
type Outcome string

const (
	OutcomePlay Outcome = "play"
	OutcomeSkip Outcome = "skip"
)

// UnknownLabel is shown in place of a missing title or artist.
const UnknownLabel = "Unknown"

// Record is one finalized playback, either a play or a skip. Raw metadata
// fields are kept as reported, including empty ones.
type Record struct {
	ID        int64
	Outcome   Outcome
	Player    string
	StartedAt time.Time
	Elapsed   time.Duration
	Source    playback.Source
	Reason    playback.Reason
	Metadata  playback.Metadata
	Seeks     playback.SeekStats

	// CompletionRatio is elapsed over duration, or nil when the duration is
	// unknown.
	CompletionRatio *float64
}

// IsPlay reports whether the record counts as a play.
func (r Record) IsPlay() bool {
	return r.Outcome == OutcomePlay
}

func (r Record) Title() string  { return r.Metadata.Title }
func (r Record) Artist() string { return r.Metadata.Artist() }
func (r Record) Album() string  { return r.Metadata.Album }

// EndedAt is when playback would have ended with no pauses.
func (r Record) EndedAt() time.Time {
	return r.StartedAt.Add(r.Elapsed)
}

// DisplayTitle returns the title, or UnknownLabel.
func (r Record) DisplayTitle() string {
	if r.Metadata.Title == "" {
		return UnknownLabel
	}
	return r.Metadata.Title
}

// DisplayArtist returns the primary artist, or UnknownLabel.
func (r Record) DisplayArtist() string {
	if a := r.Metadata.Artist(); a != "" {
		return a
	}
	return UnknownLabel
}

// Evaluate turns a concluded accumulator into a record.
func Evaluate(c playback.Concluded, t Thresholds) Record {
	acc := c.Accumulator
	rec := Record{
		Outcome:   OutcomeSkip,
		Player:    string(c.Player),
		StartedAt: acc.StartedAt,
		Elapsed:   acc.Elapsed,
		Source:    acc.Source,
		Reason:    c.Reason,
		Metadata:  acc.Metadata,
		Seeks:     acc.Seeks,
	}
	if Decide(acc.Elapsed, acc.Metadata.Duration, t) == Scrobble {
		rec.Outcome = OutcomePlay
	}
	if d := acc.Metadata.Duration; d > 0 {
		ratio := float64(acc.Elapsed) / float64(d)
		rec.CompletionRatio = &ratio
	}
	return rec
}
