package analysis

import (
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
)

// Category is what a milestone counts.
type Category string

const (
	CategoryPlays   Category = "plays"
	CategoryHours   Category = "hours"
	CategoryArtists Category = "artists"
	CategorySongs   Category = "songs"
)

var categories = []Category{CategoryPlays, CategoryHours, CategoryArtists, CategorySongs}

type Threshold struct {
	Value int
	Name  string
}

// MilestoneThresholds lists each category's milestones in increasing order.
var MilestoneThresholds = map[Category][]Threshold{
	CategoryPlays: {
		{100, "Century Club"},
		{500, "High Fidelity"},
		{1000, "Thousand Play Legend"},
		{5000, "Music Marathon Master"},
		{10000, "Ten Thousand Titan"},
	},
	CategoryHours: {
		{10, "Getting Started"},
		{50, "Dedicated Listener"},
		{100, "Century Hours"},
		{500, "Audiophile Status"},
		{1000, "Legendary Listener"},
	},
	CategoryArtists: {
		{10, "Curious Ears"},
		{50, "Genre Hopper"},
		{100, "Taste Explorer"},
		{250, "Festival Curator"},
	},
	CategorySongs: {
		{100, "Song Collector"},
		{500, "Playlist Pro"},
		{1000, "Track Titan"},
		{2500, "Melody Master"},
	},
}

// Milestone is a threshold that was crossed. ReachedAt is the start of the
// play that crossed it.
type Milestone struct {
	Category  Category
	Name      string
	Value     int
	ReachedAt time.Time
}

// Upcoming is the next milestone in a category and how far along it is.
type Upcoming struct {
	Category Category
	Name     string
	Value    int
	Current  float64
}

// Remaining is how much of the category is left to reach the milestone.
func (u Upcoming) Remaining() float64 {
	return float64(u.Value) - u.Current
}

type MilestoneSummary struct {
	Reached []Milestone
	Next    []Upcoming
}

// Milestones scans plays in chronological order, tracking cumulative plays,
// hours, unique artists and unique songs.
func Milestones(records []scrobble.Record) MilestoneSummary {
	m := newMilestoneCounter()
	for _, rec := range sortedByStart(records) {
		m.add(rec)
	}
	return m.summary()
}

// milestoneCounter holds the running totals of a chronological scan.
type milestoneCounter struct {
	reached   []Milestone
	artists   map[string]bool
	songs     map[topKey]bool
	plays     int
	listening time.Duration
	next      map[Category]int
}

func newMilestoneCounter() *milestoneCounter {
	return &milestoneCounter{
		artists: make(map[string]bool),
		songs:   make(map[topKey]bool),
		next:    make(map[Category]int),
	}
}

func (m *milestoneCounter) current(c Category) float64 {
	switch c {
	case CategoryPlays:
		return float64(m.plays)
	case CategoryHours:
		return m.listening.Hours()
	case CategoryArtists:
		return float64(len(m.artists))
	case CategorySongs:
		return float64(len(m.songs))
	}
	return 0
}

// add counts one play. Plays must arrive oldest first.
func (m *milestoneCounter) add(rec scrobble.Record) {
	m.plays++
	m.listening += rec.Elapsed
	if a := rec.Artist(); a != "" {
		m.artists[a] = true
	}
	if k, ok := keyFor(rec, KindTrack); ok {
		m.songs[k] = true
	}

	for _, c := range categories {
		thresholds := MilestoneThresholds[c]
		for m.next[c] < len(thresholds) && m.current(c) >= float64(thresholds[m.next[c]].Value) {
			t := thresholds[m.next[c]]
			m.reached = append(m.reached, Milestone{
				Category:  c,
				Name:      t.Name,
				Value:     t.Value,
				ReachedAt: rec.StartedAt,
			})
			m.next[c]++
		}
	}
}

func (m *milestoneCounter) summary() MilestoneSummary {
	summary := MilestoneSummary{Reached: m.reached}
	for _, c := range categories {
		thresholds := MilestoneThresholds[c]
		if m.next[c] >= len(thresholds) {
			continue
		}
		t := thresholds[m.next[c]]
		summary.Next = append(summary.Next, Upcoming{
			Category: c,
			Name:     t.Name,
			Value:    t.Value,
			Current:  m.current(c),
		})
	}
	return summary
}
