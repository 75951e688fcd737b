package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ademuri/music-tracker/internal/config"
	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/ademuri/music-tracker/internal/store"
	"github.com/spf13/viper"
)

func createTestDb(t *testing.T) (*store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "plays.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })

	return s, dbPath
}

// useDatabase points the global configuration at dbPath for one test.
func useDatabase(t *testing.T, dbPath string) {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	viper.Set(config.KeyDatabase, dbPath)
	t.Cleanup(viper.Reset)
}

func addPlay(t *testing.T, s *store.Store, started time.Time, artist, album, title string, elapsed time.Duration) {
	t.Helper()
	addRecord(t, s, scrobble.OutcomePlay, started, artist, album, title, elapsed)
}

func addRecord(t *testing.T, s *store.Store, outcome scrobble.Outcome, started time.Time, artist, album, title string, elapsed time.Duration) {
	t.Helper()
	rec := scrobble.Record{
		Outcome:   outcome,
		Player:    "org.mpris.MediaPlayer2.mpd",
		StartedAt: started,
		Elapsed:   elapsed,
		Source:    playback.SourceLocal,
		Reason:    playback.ReasonTrackChanged,
		Metadata: playback.Metadata{
			Title:    title,
			Album:    album,
			Duration: 4 * time.Minute,
			URL:      "file:///music/" + title + ".flac",
		},
	}
	if artist != "" {
		rec.Metadata.Artists = []string{artist}
	}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append(%q): %v", title, err)
	}
}
