package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/music-tracker/internal/config"
	"github.com/ademuri/music-tracker/internal/mpris"
	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set(config.KeyDatabase, filepath.Join(t.TempDir(), "plays.db"))
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestRunTrackerReconnectsAndPersists(t *testing.T) {
	reconnectEvery = time.Millisecond
	t.Cleanup(func() { reconnectEvery = 5 * time.Second })

	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Date(2024, 2, 2, 21, 0, 0, 0, time.UTC)
	h := func(sec int) playback.Header {
		return playback.Header{ID: "mpd#1", Name: "org.mpris.MediaPlayer2.mpd", At: start.Add(time.Duration(sec) * time.Second)}
	}

	connects := 0
	connect := func(ctx context.Context, opts mpris.Options) (<-chan playback.Event, error) {
		connects++
		switch connects {
		case 1:
			return nil, errors.New("bus not ready")
		case 2:
			events := make(chan playback.Event, 8)
			events <- playback.PlayerAppeared{Header: h(0)}
			events <- playback.TrackChanged{Header: h(0), Metadata: playback.Metadata{
				Title:    "Archangel",
				Artists:  []string{"Burial"},
				Album:    "Untrue",
				Duration: 4 * time.Minute,
				URL:      "file:///music/burial/untrue/02.flac",
			}}
			events <- playback.StatusChanged{Header: h(0), Status: playback.StatusPlaying}
			events <- playback.StatusChanged{Header: h(200), Status: playback.StatusStopped}
			close(events)
			return events, nil
		default:
			cancel()
			return make(chan playback.Event), nil
		}
	}

	if err := runTracker(ctx, cfg, zerolog.Nop(), connect); err != nil {
		t.Fatalf("runTracker: %v", err)
	}
	if connects != 3 {
		t.Errorf("Expected 3 connection attempts, got %d", connects)
	}

	s, err := store.New(cfg.Database)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()
	plays, _, err := s.QueryRange(context.Background(), start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(plays) != 1 || plays[0].Title() != "Archangel" || plays[0].Elapsed != 200*time.Second {
		t.Fatalf("Expected one 200s play of Archangel, got %+v", plays)
	}
}

func TestRunTrackerGivesUpWithoutBus(t *testing.T) {
	reconnectEvery = time.Millisecond
	t.Cleanup(func() { reconnectEvery = 5 * time.Second })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	connect := func(context.Context, mpris.Options) (<-chan playback.Event, error) {
		return nil, errors.New("no session bus")
	}
	err := runTracker(ctx, testConfig(t), zerolog.Nop(), connect)
	if err == nil {
		t.Fatalf("Expected an error when the bus never comes up")
	}
}

func TestRunTrackerLogsLastPlay(t *testing.T) {
	cfg := testConfig(t)
	s, err := store.New(cfg.Database)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	addPlay(t, s, time.Date(2024, 2, 1, 20, 0, 0, 0, time.UTC), "Burial", "Untrue", "Etched Headplate", 5*time.Minute)
	s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	connect := func(context.Context, mpris.Options) (<-chan playback.Event, error) {
		cancel()
		return make(chan playback.Event), nil
	}

	var logs bytes.Buffer
	if err := runTracker(ctx, cfg, zerolog.New(&logs), connect); err != nil {
		t.Fatalf("runTracker: %v", err)
	}
	started, _, _ := strings.Cut(logs.String(), "\n")
	if !strings.Contains(started, `"message":"Tracking started"`) || !strings.Contains(started, `"plays":1`) || !strings.Contains(started, `"last_play":`) {
		t.Errorf("Expected startup log with the last play, got %s", started)
	}
}
