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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ademuri/music-tracker/internal/analysis"
	"github.com/ademuri/music-tracker/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

type Analysis struct {
	title   string
	results [][]string
	summary string
}

type AnalyserConfig struct {
	// Number of results to return, default is all results.
	NumToReturn int

	// Only return results with more plays than this. Default is all results.
	FilterThreshold int
}

type Analyser interface {
	GetResults(ds store.Dataset, w analysis.Window) Analysis

	GetName() string
}

// loadDataset reads everything the analysers need for w.
func loadDataset(ctx context.Context, dbPath string, w analysis.Window) (store.Dataset, error) {
	s, err := openExistingStore(dbPath)
	if err != nil {
		return store.Dataset{}, err
	}
	defer s.Close()

	ds, err := s.Window(ctx, w.From, w.To)
	if err != nil {
		return store.Dataset{}, fmt.Errorf("reading plays: %w", err)
	}
	return ds, nil
}

// analyse loads w once and runs every analyser over it.
func analyse(ctx context.Context, dbPath string, w analysis.Window, analysers ...Analyser) ([]Analysis, error) {
	ds, err := loadDataset(ctx, dbPath, w)
	if err != nil {
		return nil, err
	}
	results := make([]Analysis, 0, len(analysers))
	for _, a := range analysers {
		results = append(results, a.GetResults(ds, w))
	}
	return results, nil
}

// TopAnalyzer ranks artists, albums or tracks.
type TopAnalyzer struct {
	Kind   analysis.Kind
	Config AnalyserConfig
}

func (t TopAnalyzer) SetConfig(config AnalyserConfig) TopAnalyzer {
	t.Config = config
	return t
}

func (t TopAnalyzer) GetName() string {
	switch t.Kind {
	case analysis.KindAlbum:
		return "Top albums"
	case analysis.KindTrack:
		return "Top tracks"
	default:
		return "Top artists"
	}
}

func (t TopAnalyzer) GetResults(ds store.Dataset, w analysis.Window) (a Analysis) {
	top := analysis.TopN(ds.Plays, t.Kind, 0)

	a.title = t.GetName()
	switch t.Kind {
	case analysis.KindArtist:
		a.results = [][]string{{"Artist", "Plays", "Time"}}
	case analysis.KindAlbum:
		a.results = [][]string{{"Artist", "Album", "Plays", "Time"}}
	case analysis.KindTrack:
		a.results = [][]string{{"Artist", "Track", "Plays", "Time"}}
	}

	for i, entry := range top.Entries {
		if t.Config.NumToReturn > 0 && i >= t.Config.NumToReturn {
			break
		}
		if t.Config.FilterThreshold > 0 && entry.Plays <= t.Config.FilterThreshold {
			continue
		}
		row := []string{entry.Name}
		if t.Kind != analysis.KindArtist {
			row = []string{entry.Artist, entry.Name}
		}
		row = append(row, humanize.Comma(int64(entry.Plays)), formatListening(entry.Listening))
		a.results = append(a.results, row)
	}

	a.summary = fmt.Sprintf("Found %s %ss and %s plays from %s to %s",
		humanize.Comma(int64(len(top.Entries))), t.Kind, humanize.Comma(int64(len(ds.Plays))),
		w.From.Format(time.DateOnly), w.To.Add(-time.Nanosecond).Format(time.DateOnly))
	if top.Unknown.Plays > 0 {
		a.summary += fmt.Sprintf(" (%s plays with no %s)", humanize.Comma(int64(top.Unknown.Plays)), t.Kind)
	}
	return a
}

// formatListening renders a duration as hours and minutes.
func formatListening(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%sh %02dm", humanize.Comma(int64(h)), m)
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	if a.title != "" {
		fmt.Fprintf(out, "%s\n", a.title)
	}
	if len(a.results) > 0 {
		table := tablewriter.NewWriter(out)
		table.Header(a.results[0])
		for _, row := range a.results[1:] {
			if err := table.Append(row); err != nil {
				return fmt.Sprintf("Error rendering table: %v", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if a.summary != "" {
		fmt.Fprintf(out, "%s\n", a.summary)
	}
	return out.String()
}
