// Package analysis turns stored plays into listening statistics. Everything
// here is a pure function of its inputs; the Engine only bundles
// configuration and assembles Reports.
package analysis

import (
	"fmt"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/ademuri/music-tracker/internal/store"
)

// Depth selects which sections a report contains.
type Depth string

const (
	DepthDeep        Depth = "deep"
	DepthSessions    Depth = "sessions"
	DepthPersonality Depth = "personality"
	DepthMilestones  Depth = "milestones"
	DepthFull        Depth = "full"
)

func ParseDepth(s string) (Depth, error) {
	switch d := Depth(s); d {
	case DepthDeep, DepthSessions, DepthPersonality, DepthMilestones, DepthFull:
		return d, nil
	}
	return "", fmt.Errorf("unknown depth %q (want deep, sessions, personality, milestones or full)", s)
}

func (d Depth) includes(section Depth) bool {
	return d == DepthFull || d == section
}

type Config struct {
	SessionBreak time.Duration
	TopN         int
	Location     *time.Location
	Rules        []Rule
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		SessionBreak: DefaultSessionBreak,
		TopN:         10,
		Location:     time.Local,
		Rules:        DefaultRules,
		Now:          time.Now,
	}
}

// Engine builds reports. Its configuration is fixed at construction.
type Engine struct {
	cfg Config
}

// NewEngine fills unset fields of cfg from DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SessionBreak <= 0 {
		cfg.SessionBreak = def.SessionBreak
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = def.Rules
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// Window resolves a named period against the engine's clock.
func (e *Engine) Window(p Period) Window {
	return p.Window(e.cfg.Now(), e.cfg.Location)
}

// Report summarizes ds, which should hold the records of w. life is the
// complete history, from ScanHistory; milestones and the comparisons with
// earlier listening come from it. A nil life treats ds as the whole history.
func (e *Engine) Report(ds store.Dataset, life *Lifetime, w Window, depth Depth) *Report {
	loc := e.cfg.Location
	now := e.cfg.Now()
	if life == nil {
		life = LifetimeOf(ds.Plays)
	}

	report := &Report{
		Metadata: ReportMetadata{
			GeneratedDate: now.In(loc).Format(time.DateOnly),
			Period:        w.Label,
			From:          w.From.In(loc).Format(time.DateOnly),
			To:            w.To.In(loc).Add(-time.Nanosecond).Format(time.DateOnly),
			Depth:         depth,
			// The window's rows are part of the history.
			CorruptRows: max(ds.Corrupt, life.Corrupt),
		},
		Overview: overview(ds),
	}

	if depth.includes(DepthDeep) {
		report.Top = e.top(ds.Plays)

		h := HourlyHeatmap(ds.Plays, loc)
		report.Heatmap = &HeatmapReport{Hours: h.Hours, PeakHour: h.Peak, QuietestHour: h.Quietest}

		if day, ok := BiggestDay(ds.Plays, loc); ok {
			report.BiggestDay = &DayReport{
				Date:      day.Date.Format(time.DateOnly),
				Plays:     day.Plays,
				Hours:     round(day.Listening.Hours(), 2),
				TopArtist: day.TopArtist,
				TopTrack:  day.TopTrack,
			}
		}

		streaks := Streaks(ds.Plays, now, loc)
		report.Streaks = &StreakReport{
			Longest: streaks.Longest.Days,
			Current: streaks.Current,
			Streaks: len(streaks.History),
		}
		if streaks.Longest.Days > 0 {
			report.Streaks.LongestFrom = streaks.Longest.Start.Format(time.DateOnly)
			report.Streaks.LongestTo = streaks.Longest.End.Format(time.DateOnly)
		}

		e.history(report, ds, life, w)
	}

	sessions := Sessions(ds.Plays, e.cfg.SessionBreak)
	if depth.includes(DepthSessions) {
		sum := Summarize(sessions)
		report.Sessions = &SessionReport{
			Count:          sum.Count,
			AverageMinutes: round(sum.AverageSpan.Minutes(), 1),
			MedianMinutes:  round(sum.MedianSpan.Minutes(), 1),
			LongestMinutes: round(sum.Longest.Span().Minutes(), 1),
			TotalHours:     round(sum.TotalListening.Hours(), 2),
		}
		if sum.Count > 0 {
			report.Sessions.LongestStart = sum.Longest.Start.In(loc).Format(time.DateTime)
		}
	}

	if depth.includes(DepthPersonality) {
		profile := Classify(ComputeScores(ds.Plays, ds.Skips, sessions, loc), e.cfg.Rules)
		report.Personality = personalityReport(profile)
	}

	if depth.includes(DepthMilestones) {
		report.Milestones = milestoneReport(life.Milestones, loc)
	}

	return report
}

// history fills the sections that look at listening behaviour and compare
// the window with everything before it.
func (e *Engine) history(report *Report, ds store.Dataset, life *Lifetime, w Window) {
	loc := e.cfg.Location
	n := e.cfg.TopN

	completion := CompletionOf(ds.Plays, ds.Skips)
	seeking := SeekingOf(ds.Plays, ds.Skips)
	repeats, repeatDays := RepeatObsessions(ds.Plays, loc, n)
	report.Behavior = &BehaviorReport{
		AverageCompletion: completion.Average,
		FullListens:       completion.Full,
		PartialListens:    completion.Partial,
		MostSkipped:       trackStats(MostSkipped(ds.Skips, n)),
		Seeks:             seeking.Seeks,
		TracksWithSeeks:   seeking.TracksWithSeek,
		IntroSkips:        seeking.IntroSkips,
		RepeatObsessions:  trackStats(repeats),
		DaysWithRepeats:   repeatDays,
	}

	d := Discover(ds.Plays, w, life)
	report.Discovery = &DiscoveryReport{
		Artists:    d.Artists,
		New:        len(d.New),
		Returning:  d.Returning,
		Rate:       d.Rate,
		NewArtists: d.New,
		FirstFound: d.FirstFound,
	}

	for _, lo := range ArtistLoyalty(ds.Plays, life, n, e.cfg.Now()) {
		report.Loyalty = append(report.Loyalty, LoyaltyStat{
			Artist:        lo.Artist,
			PlaysInPeriod: lo.PlaysInPeriod,
			TotalPlays:    lo.TotalPlays,
			FirstPlay:     lo.FirstPlay.In(loc).Format(time.DateOnly),
			Days:          lo.Days,
		})
	}

	for _, m := range MonthlyTopArtists(ds.Plays, loc) {
		report.Monthly = append(report.Monthly, MonthStat{
			Month:         m.Month.Format("2006-01"),
			Plays:         m.Plays,
			TopArtist:     m.TopArtist,
			TopPlays:      m.TopPlays,
			RunnerUp:      m.RunnerUp,
			RunnerUpPlays: m.RunnerUpPlays,
		})
	}

	albums, avg := AlbumCompletions(ds.Plays, life)
	if len(albums) > 0 {
		ac := &AlbumCompletionReport{Average: Ratio{Value: avg, Defined: true}}
		for i, a := range albums {
			if i == n {
				break
			}
			ac.Albums = append(ac.Albums, AlbumStat{
				Album:        a.Album,
				Artist:       a.Artist,
				TracksPlayed: a.TracksPlayed,
				TracksKnown:  a.TracksKnown,
				Completion:   round(a.Ratio, 3),
			})
		}
		report.AlbumCompletion = ac
	}

	for _, o := range OneHitWonders(ds.Plays, life) {
		report.OneHitWonders = append(report.OneHitWonders, OneHitStat{
			Artist:   o.Artist,
			Title:    o.Title,
			Album:    o.Album,
			PlayedOn: o.PlayedAt.In(loc).Format(time.DateOnly),
		})
	}

	for _, dc := range DeepCuts(ds.Plays, life, n) {
		stat := DeepCutStat{Artist: dc.Artist, Plays: dc.Plays, UniqueTracks: dc.UniqueTracks}
		for _, c := range dc.Cuts {
			stat.Cuts = append(stat.Cuts, TrackStat{Title: c.Title, Count: c.Plays})
		}
		report.DeepCuts = append(report.DeepCuts, stat)
	}

	report.FunFacts = FunFacts(ds.Plays, len(d.New), loc)
}

func trackStats(tc []TrackCount) []TrackStat {
	out := make([]TrackStat, 0, len(tc))
	for _, t := range tc {
		out = append(out, TrackStat{Title: t.Title, Artist: t.Artist, Count: t.Count, Days: t.Days})
	}
	return out
}

func overview(ds store.Dataset) Overview {
	o := Overview{
		Plays:    len(ds.Plays),
		Skips:    len(ds.Skips),
		SkipRate: SkipRate(len(ds.Plays), len(ds.Skips)),
	}
	var listening time.Duration
	artists := make(map[string]bool)
	tracks := make(map[topKey]bool)
	for _, rec := range ds.Plays {
		listening += rec.Elapsed
		if a := rec.Artist(); a != "" {
			artists[a] = true
		}
		if k, ok := keyFor(rec, KindTrack); ok {
			tracks[k] = true
		}
	}
	o.ListeningHours = round(listening.Hours(), 2)
	o.UniqueArtists = len(artists)
	o.UniqueTracks = len(tracks)
	return o
}

func (e *Engine) top(plays []scrobble.Record) *TopReport {
	r := &TopReport{UnknownPlays: map[string]int{}}
	for _, kind := range []Kind{KindArtist, KindAlbum, KindTrack} {
		top := TopN(plays, kind, e.cfg.TopN)
		stats := make([]EntryStat, 0, len(top.Entries))
		for _, entry := range top.Entries {
			stats = append(stats, EntryStat{
				Name:    entry.Name,
				Artist:  entry.Artist,
				Plays:   entry.Plays,
				Minutes: round(entry.Listening.Minutes(), 1),
			})
		}
		switch kind {
		case KindArtist:
			r.Artists = stats
		case KindAlbum:
			r.Albums = stats
		case KindTrack:
			r.Tracks = stats
		}
		if top.Unknown.Plays > 0 {
			r.UnknownPlays[kind.String()] = top.Unknown.Plays
		}
	}
	return r
}

func personalityReport(p Profile) *PersonalityReport {
	s := p.Scores
	r := &PersonalityReport{
		Primary:     p.Primary.Name,
		Description: p.Primary.Description,
		Scores: ScoreReport{
			ArtistDiversity:      round(s.ArtistDiversity, 3),
			RepeatRate:           round(s.RepeatRate, 3),
			MedianHour:           s.MedianHour,
			NightShare:           round(s.NightShare, 3),
			MorningShare:         round(s.MorningShare, 3),
			WeekendShare:         round(s.WeekendShare, 3),
			TopArtistShare:       round(s.TopArtistShare, 3),
			SkipRate:             s.SkipRate,
			MedianSessionMinutes: round(s.MedianSessionMinutes, 1),
			AlbumDepth:           round(s.AlbumDepth, 2),
		},
	}
	if p.Secondary != nil {
		r.Secondary = p.Secondary.Name
	}
	return r
}

func milestoneReport(m MilestoneSummary, loc *time.Location) *MilestoneReport {
	r := &MilestoneReport{}
	for _, reached := range m.Reached {
		r.Reached = append(r.Reached, MilestoneStat{
			Category:  reached.Category,
			Name:      reached.Name,
			Value:     reached.Value,
			ReachedAt: reached.ReachedAt.In(loc).Format(time.DateOnly),
		})
	}
	for _, next := range m.Next {
		r.Next = append(r.Next, MilestoneStat{
			Category:  next.Category,
			Name:      next.Name,
			Value:     next.Value,
			Remaining: round(next.Remaining(), 1),
		})
	}
	return r
}
