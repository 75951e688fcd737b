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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var topArtistsNumber int
var topArtistsThreshold int
var topArtistsCmd = &cobra.Command{
	Use:   "top-artists [from] [to (optional)]",
	Short: "Lists your most played artists",
	Long:  `Uses the specified date or date range. Date strings look like 'yyyy', 'yyyy-mm', or 'yyyy-mm-dd'.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		config := AnalyserConfig{NumToReturn: topArtistsNumber, FilterThreshold: topArtistsThreshold}
		err := printTop(cmd.Context(), os.Stdout, viper.GetString("database"), args, analysis.KindArtist, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(topArtistsCmd)

	topArtistsCmd.Flags().IntVarP(&topArtistsNumber, "number", "n", 10, "number of results to return")
	topArtistsCmd.Flags().IntVar(&topArtistsThreshold, "min-plays", 0, "only list artists with more plays than this")
}

// printTop prints one ranking for the date range in args.
func printTop(ctx context.Context, out io.Writer, dbPath string, args []string, kind analysis.Kind, config AnalyserConfig) error {
	w, err := windowFromArgs(args, time.Local)
	if err != nil {
		return err
	}

	results, err := analyse(ctx, dbPath, w, TopAnalyzer{Kind: kind}.SetConfig(config))
	if err != nil {
		return err
	}
	for _, result := range results {
		result.title = ""
		fmt.Fprintln(out, result)
	}
	return nil
}
