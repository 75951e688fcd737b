/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ademuri/music-tracker/internal/analysis"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	limitArtists int
	limitAlbums  int
	limitTracks  int
)

var topNCmd = &cobra.Command{
	Use:   "top-n [from] [to (optional)]",
	Short: "Generates a textual summary of music taste",
	Long:  `Generates a summary of top artists, albums and tracks over a specified period.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		err := printTopN(cmd.Context(), os.Stdout, viper.GetString("database"), args)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(topNCmd)
	topNCmd.Flags().IntVar(&limitArtists, "artists", 10, "Number of top artists to show")
	topNCmd.Flags().IntVar(&limitAlbums, "albums", 10, "Number of top albums to show")
	topNCmd.Flags().IntVar(&limitTracks, "tracks", 10, "Number of top tracks to show")
}

func printTopN(ctx context.Context, out io.Writer, dbPath string, args []string) error {
	w, err := windowFromArgs(args, time.Local)
	if err != nil {
		return err
	}

	ds, err := loadDataset(ctx, dbPath, w)
	if err != nil {
		return err
	}

	var listening time.Duration
	for _, rec := range ds.Plays {
		listening += rec.Elapsed
	}

	fmt.Fprintf(out, "Listening Summary\n")
	fmt.Fprintf(out, "Period: %s to %s\n", w.From.Format(time.DateOnly), w.To.Add(-time.Nanosecond).Format(time.DateOnly))
	fmt.Fprintf(out, "Total Plays: %s (%s listening, %s skipped)\n\n",
		humanize.Comma(int64(len(ds.Plays))), formatListening(listening), humanize.Comma(int64(len(ds.Skips))))

	sections := []struct {
		kind  analysis.Kind
		limit int
		title string
	}{
		{analysis.KindArtist, limitArtists, "Artists"},
		{analysis.KindAlbum, limitAlbums, "Albums"},
		{analysis.KindTrack, limitTracks, "Tracks"},
	}
	for _, section := range sections {
		if section.limit <= 0 {
			continue
		}
		top := analysis.TopN(ds.Plays, section.kind, section.limit)

		fmt.Fprintf(out, "## Top %d %s\n", section.limit, section.title)
		for i, entry := range top.Entries {
			if entry.Artist != "" {
				fmt.Fprintf(out, "%d. %s - %s (%d)\n", i+1, entry.Name, entry.Artist, entry.Plays)
			} else {
				fmt.Fprintf(out, "%d. %s (%d)\n", i+1, entry.Name, entry.Plays)
			}
		}
		fmt.Fprintln(out)
	}

	if ds.Corrupt > 0 {
		fmt.Fprintf(out, "Skipped %d unreadable rows\n", ds.Corrupt)
	}
	return nil
}
