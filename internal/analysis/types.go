package analysis

// Report is the top-level structure for the listening report. Sections that
// the requested depth does not cover are left nil and omitted from YAML.
type Report struct {
	Metadata    ReportMetadata     `yaml:"report_metadata"`
	Overview    Overview           `yaml:"overview"`
	Top         *TopReport         `yaml:"top,omitempty"`
	Heatmap     *HeatmapReport     `yaml:"hourly_heatmap,omitempty"`
	BiggestDay  *DayReport         `yaml:"biggest_day,omitempty"`
	Streaks     *StreakReport      `yaml:"streaks,omitempty"`
	Sessions    *SessionReport     `yaml:"sessions,omitempty"`
	Personality *PersonalityReport `yaml:"personality,omitempty"`
	Milestones  *MilestoneReport   `yaml:"milestones,omitempty"`

	Behavior        *BehaviorReport        `yaml:"behavior,omitempty"`
	Discovery       *DiscoveryReport       `yaml:"discovery,omitempty"`
	Loyalty         []LoyaltyStat          `yaml:"artist_loyalty,omitempty"`
	Monthly         []MonthStat            `yaml:"monthly_top_artists,omitempty"`
	AlbumCompletion *AlbumCompletionReport `yaml:"album_completion,omitempty"`
	OneHitWonders   []OneHitStat           `yaml:"one_hit_wonders,omitempty"`
	DeepCuts        []DeepCutStat          `yaml:"deep_cuts,omitempty"`
	FunFacts        []string               `yaml:"fun_facts,omitempty"`
}

type ReportMetadata struct {
	GeneratedDate string `yaml:"generated_date"`
	Period        string `yaml:"period"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	Depth         Depth  `yaml:"depth"`
	CorruptRows   int    `yaml:"corrupt_rows"`
}

type Overview struct {
	Plays          int     `yaml:"plays"`
	Skips          int     `yaml:"skips"`
	SkipRate       Ratio   `yaml:"skip_rate"`
	ListeningHours float64 `yaml:"listening_hours"`
	UniqueArtists  int     `yaml:"unique_artists"`
	UniqueTracks   int     `yaml:"unique_tracks"`
}

type TopReport struct {
	Artists []EntryStat `yaml:"artists"`
	Albums  []EntryStat `yaml:"albums"`
	Tracks  []EntryStat `yaml:"tracks"`
	// UnknownPlays counts plays missing the artist, album or title needed
	// for ranking, per list.
	UnknownPlays map[string]int `yaml:"unknown_plays,omitempty"`
}

type EntryStat struct {
	Name    string  `yaml:"name"`
	Artist  string  `yaml:"artist,omitempty"`
	Plays   int     `yaml:"plays"`
	Minutes float64 `yaml:"minutes"`
}

type HeatmapReport struct {
	Hours        [24]int `yaml:"hours,flow"`
	PeakHour     int     `yaml:"peak_hour"`
	QuietestHour int     `yaml:"quietest_hour"`
}

type DayReport struct {
	Date      string  `yaml:"date"`
	Plays     int     `yaml:"plays"`
	Hours     float64 `yaml:"hours"`
	TopArtist string  `yaml:"top_artist"`
	TopTrack  string  `yaml:"top_track"`
}

type StreakReport struct {
	Longest     int    `yaml:"longest_days"`
	LongestFrom string `yaml:"longest_from,omitempty"`
	LongestTo   string `yaml:"longest_to,omitempty"`
	Current     int    `yaml:"current_days"`
	Streaks     int    `yaml:"streak_count"`
}

type SessionReport struct {
	Count          int     `yaml:"count"`
	AverageMinutes float64 `yaml:"average_minutes"`
	MedianMinutes  float64 `yaml:"median_minutes"`
	LongestMinutes float64 `yaml:"longest_minutes"`
	LongestStart   string  `yaml:"longest_start,omitempty"`
	TotalHours     float64 `yaml:"total_hours"`
}

type PersonalityReport struct {
	Primary     string      `yaml:"primary"`
	Description string      `yaml:"description"`
	Secondary   string      `yaml:"secondary,omitempty"`
	Scores      ScoreReport `yaml:"scores"`
}

type ScoreReport struct {
	ArtistDiversity      float64 `yaml:"artist_diversity"`
	RepeatRate           float64 `yaml:"repeat_rate"`
	MedianHour           int     `yaml:"median_hour"`
	NightShare           float64 `yaml:"night_share"`
	MorningShare         float64 `yaml:"morning_share"`
	WeekendShare         float64 `yaml:"weekend_share"`
	TopArtistShare       float64 `yaml:"top_artist_share"`
	SkipRate             Ratio   `yaml:"skip_rate"`
	MedianSessionMinutes float64 `yaml:"median_session_minutes"`
	AlbumDepth           float64 `yaml:"album_depth"`
}

type MilestoneReport struct {
	Reached []MilestoneStat `yaml:"reached"`
	Next    []MilestoneStat `yaml:"next"`
}

type MilestoneStat struct {
	Category  Category `yaml:"category"`
	Name      string   `yaml:"name"`
	Value     int      `yaml:"value"`
	ReachedAt string   `yaml:"reached_at,omitempty"`
	Remaining float64  `yaml:"remaining,omitempty"`
}

type BehaviorReport struct {
	AverageCompletion Ratio       `yaml:"average_completion"`
	FullListens       int         `yaml:"full_listens"`
	PartialListens    int         `yaml:"partial_listens"`
	MostSkipped       []TrackStat `yaml:"most_skipped"`
	Seeks             int         `yaml:"seeks"`
	TracksWithSeeks   int         `yaml:"tracks_with_seeks"`
	IntroSkips        int         `yaml:"intro_skips"`
	RepeatObsessions  []TrackStat `yaml:"repeat_obsessions"`
	DaysWithRepeats   int         `yaml:"days_with_repeats"`
}

type TrackStat struct {
	Title  string `yaml:"title"`
	Artist string `yaml:"artist,omitempty"`
	Count  int    `yaml:"count"`
	Days   int    `yaml:"days,omitempty"`
}

type DiscoveryReport struct {
	Artists    int      `yaml:"artists"`
	New        int      `yaml:"new"`
	Returning  int      `yaml:"returning"`
	Rate       Ratio    `yaml:"rate"`
	NewArtists []string `yaml:"new_artists,omitempty"`
	FirstFound string   `yaml:"first_found,omitempty"`
}

type LoyaltyStat struct {
	Artist        string `yaml:"artist"`
	PlaysInPeriod int    `yaml:"plays_in_period"`
	TotalPlays    int    `yaml:"total_plays"`
	FirstPlay     string `yaml:"first_play"`
	Days          int    `yaml:"days_listening"`
}

type MonthStat struct {
	Month         string `yaml:"month"`
	Plays         int    `yaml:"plays"`
	TopArtist     string `yaml:"top_artist,omitempty"`
	TopPlays      int    `yaml:"top_plays,omitempty"`
	RunnerUp      string `yaml:"runner_up,omitempty"`
	RunnerUpPlays int    `yaml:"runner_up_plays,omitempty"`
}

type AlbumCompletionReport struct {
	Average Ratio       `yaml:"average"`
	Albums  []AlbumStat `yaml:"albums"`
}

type AlbumStat struct {
	Album        string  `yaml:"album"`
	Artist       string  `yaml:"artist,omitempty"`
	TracksPlayed int     `yaml:"tracks_played"`
	TracksKnown  int     `yaml:"tracks_known"`
	Completion   float64 `yaml:"completion"`
}

type OneHitStat struct {
	Artist   string `yaml:"artist"`
	Title    string `yaml:"title"`
	Album    string `yaml:"album,omitempty"`
	PlayedOn string `yaml:"played_on"`
}

type DeepCutStat struct {
	Artist       string      `yaml:"artist"`
	Plays        int         `yaml:"plays"`
	UniqueTracks int         `yaml:"unique_tracks"`
	Cuts         []TrackStat `yaml:"cuts"`
}
