package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ademuri/music-tracker/internal/analysis"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows listening statistics for a period",
	Long: `Shows listening statistics as tables. --depth picks the sections:
deep (top lists, hourly pattern, biggest day, streaks, listening behaviour,
discovery, monthly top artists, fun facts), sessions, personality, milestones,
or full for all of them.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		period, _ := cmd.Flags().GetString("period")
		depth, _ := cmd.Flags().GetString("depth")
		err := printStats(cmd.Context(), os.Stdout, period, depth)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().String("period", string(analysis.PeriodWeek), "week, month, year or all")
	statsCmd.Flags().String("depth", string(analysis.DepthDeep), "deep, sessions, personality, milestones or full")
}

func printStats(ctx context.Context, out io.Writer, period, depth string) error {
	report, err := buildReport(ctx, period, depth)
	if err != nil {
		return err
	}
	for _, a := range renderReport(report) {
		fmt.Fprintln(out, a)
	}
	return nil
}

func renderReport(r *analysis.Report) []Analysis {
	m := r.Metadata
	o := r.Overview
	out := []Analysis{{
		title: fmt.Sprintf("Listening stats: %s (%s to %s)", m.Period, m.From, m.To),
		results: [][]string{
			{"Metric", "Value"},
			{"Plays", humanize.Comma(int64(o.Plays))},
			{"Skips", humanize.Comma(int64(o.Skips))},
			{"Skip rate", o.SkipRate.String()},
			{"Listening hours", humanize.FormatFloat("#,###.#", o.ListeningHours)},
			{"Artists", humanize.Comma(int64(o.UniqueArtists))},
			{"Tracks", humanize.Comma(int64(o.UniqueTracks))},
		},
	}}
	if m.CorruptRows > 0 {
		out[0].summary = fmt.Sprintf("Skipped %d unreadable rows", m.CorruptRows)
	}

	if r.Top != nil {
		out = append(out,
			entryTable("Top artists", []string{"Artist", "Plays", "Minutes"}, r.Top.Artists, false),
			entryTable("Top albums", []string{"Album", "Artist", "Plays", "Minutes"}, r.Top.Albums, true),
			entryTable("Top tracks", []string{"Track", "Artist", "Plays", "Minutes"}, r.Top.Tracks, true),
		)
	}

	if r.Heatmap != nil {
		out = append(out, heatmapTable(r.Heatmap))
	}

	if d := r.BiggestDay; d != nil {
		out = append(out, Analysis{
			title: "Biggest day",
			results: [][]string{
				{"Date", "Plays", "Hours", "Top artist", "Top track"},
				{d.Date, humanize.Comma(int64(d.Plays)), formatFloat(d.Hours), d.TopArtist, d.TopTrack},
			},
		})
	}

	if s := r.Streaks; s != nil {
		a := Analysis{
			title: "Streaks",
			results: [][]string{
				{"Current", "Longest", "Streaks"},
				{days(s.Current), days(s.Longest), strconv.Itoa(s.Streaks)},
			},
		}
		if s.Longest > 0 {
			a.summary = fmt.Sprintf("Longest streak ran from %s to %s", s.LongestFrom, s.LongestTo)
		}
		out = append(out, a)
	}

	if b := r.Behavior; b != nil {
		out = append(out, Analysis{
			title: "Listening behaviour",
			results: [][]string{
				{"Average completion", "Full", "Partial", "Seeks", "Intro skips", "Days with repeats"},
				{
					b.AverageCompletion.String(),
					humanize.Comma(int64(b.FullListens)),
					humanize.Comma(int64(b.PartialListens)),
					humanize.Comma(int64(b.Seeks)),
					humanize.Comma(int64(b.IntroSkips)),
					days(b.DaysWithRepeats),
				},
			},
		})
		if len(b.MostSkipped) > 0 {
			out = append(out, trackTable("Most skipped", "Skips", b.MostSkipped))
		}
		if len(b.RepeatObsessions) > 0 {
			out = append(out, trackTable("On repeat", "Repeats", b.RepeatObsessions))
		}
	}

	if d := r.Discovery; d != nil {
		a := Analysis{
			title: "Discovery",
			results: [][]string{
				{"Artists", "New", "Returning", "Discovery rate"},
				{humanize.Comma(int64(d.Artists)), humanize.Comma(int64(d.New)), humanize.Comma(int64(d.Returning)), d.Rate.String()},
			},
		}
		if d.FirstFound != "" {
			a.summary = fmt.Sprintf("First new artist: %s", d.FirstFound)
		}
		out = append(out, a)
	}

	if len(r.Monthly) > 0 {
		a := Analysis{
			title:   "Top artist by month",
			results: [][]string{{"Month", "Plays", "Top artist", "Runner-up"}},
		}
		for _, m := range r.Monthly {
			a.results = append(a.results, []string{m.Month, humanize.Comma(int64(m.Plays)), m.TopArtist, m.RunnerUp})
		}
		out = append(out, a)
	}

	if len(r.FunFacts) > 0 {
		out = append(out, Analysis{title: "Fun facts", summary: strings.Join(r.FunFacts, "\n")})
	}

	if s := r.Sessions; s != nil {
		a := Analysis{
			title: "Sessions",
			results: [][]string{
				{"Sessions", "Average (min)", "Median (min)", "Longest (min)", "Total hours"},
				{
					humanize.Comma(int64(s.Count)),
					formatFloat(s.AverageMinutes),
					formatFloat(s.MedianMinutes),
					formatFloat(s.LongestMinutes),
					formatFloat(s.TotalHours),
				},
			},
		}
		if s.LongestStart != "" {
			a.summary = fmt.Sprintf("Longest session started %s", s.LongestStart)
		}
		out = append(out, a)
	}

	if p := r.Personality; p != nil {
		sc := p.Scores
		a := Analysis{
			title: fmt.Sprintf("Personality: %s", p.Primary),
			results: [][]string{
				{"Score", "Value"},
				{"Artist diversity", formatShare(sc.ArtistDiversity)},
				{"Repeat rate", formatShare(sc.RepeatRate)},
				{"Median hour", fmt.Sprintf("%02d:00", sc.MedianHour)},
				{"Night listening", formatShare(sc.NightShare)},
				{"Morning listening", formatShare(sc.MorningShare)},
				{"Weekend listening", formatShare(sc.WeekendShare)},
				{"Top artist share", formatShare(sc.TopArtistShare)},
				{"Skip rate", sc.SkipRate.String()},
				{"Median session (min)", formatFloat(sc.MedianSessionMinutes)},
				{"Tracks per album", formatFloat(sc.AlbumDepth)},
			},
			summary: p.Description,
		}
		if p.Secondary != "" {
			a.summary += fmt.Sprintf("\nSecondary: %s", p.Secondary)
		}
		out = append(out, a)
	}

	if ms := r.Milestones; ms != nil {
		a := Analysis{
			title:   "Milestones",
			results: [][]string{{"Category", "Milestone", "Value", "Status"}},
		}
		for _, reached := range ms.Reached {
			a.results = append(a.results, []string{
				string(reached.Category), reached.Name, humanize.Comma(int64(reached.Value)), "reached " + reached.ReachedAt,
			})
		}
		for _, next := range ms.Next {
			a.results = append(a.results, []string{
				string(next.Category), next.Name, humanize.Comma(int64(next.Value)), formatFloat(next.Remaining) + " to go",
			})
		}
		out = append(out, a)
	}

	return out
}

func trackTable(title, count string, tracks []analysis.TrackStat) Analysis {
	a := Analysis{title: title, results: [][]string{{"Track", "Artist", count}}}
	for _, t := range tracks {
		a.results = append(a.results, []string{t.Title, t.Artist, humanize.Comma(int64(t.Count))})
	}
	return a
}

func entryTable(title string, header []string, entries []analysis.EntryStat, withArtist bool) Analysis {
	a := Analysis{title: title, results: [][]string{header}}
	for _, e := range entries {
		row := []string{e.Name}
		if withArtist {
			row = append(row, e.Artist)
		}
		row = append(row, humanize.Comma(int64(e.Plays)), formatFloat(e.Minutes))
		a.results = append(a.results, row)
	}
	if len(entries) == 0 {
		a.summary = "No plays"
	}
	return a
}

func heatmapTable(h *analysis.HeatmapReport) Analysis {
	peak := h.Hours[h.PeakHour]
	a := Analysis{
		title:   "Plays by hour",
		results: [][]string{{"Hour", "Plays", ""}},
	}
	for hour, plays := range h.Hours {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", (plays*30+peak-1)/peak)
		}
		a.results = append(a.results, []string{fmt.Sprintf("%02d", hour), strconv.Itoa(plays), bar})
	}
	a.summary = fmt.Sprintf("Peak hour %02d:00, quietest %02d:00", h.PeakHour, h.QuietestHour)
	return a
}

func formatFloat(f float64) string {
	return humanize.FormatFloat("#,###.#", f)
}

func formatShare(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
