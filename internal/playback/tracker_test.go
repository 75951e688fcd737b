package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPlayer     PlayerID = "org.mpris.MediaPlayer2.mpv.1"
	testPlayerName          = "org.mpris.MediaPlayer2.mpv"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(sec float64) Header {
	return Header{
		ID:   testPlayer,
		Name: testPlayerName,
		At:   t0.Add(time.Duration(sec * float64(time.Second))),
	}
}

func localTrack(title string, duration time.Duration) Metadata {
	return Metadata{
		Title:    title,
		Artists:  []string{"Artist"},
		Album:    "Album",
		Duration: duration,
		URL:      "file:///music/" + title + ".flac",
	}
}

func newTestTracker(cfg Config) *Tracker {
	return NewTracker(testPlayer, testPlayerName, cfg)
}

func feed(t *testing.T, tr *Tracker, events ...Event) []Concluded {
	t.Helper()
	var out []Concluded
	for _, ev := range events {
		out = append(out, tr.Handle(ev)...)
	}
	return out
}

func TestTrackChangeConcludesPlayingTrack(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 3*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		TrackChanged{Header: at(100), Metadata: localTrack("b", 3*time.Minute)},
	)

	require.Len(t, got, 1)
	assert.Equal(t, ReasonTrackChanged, got[0].Reason)
	assert.Equal(t, "a", got[0].Accumulator.Metadata.Title)
	assert.Equal(t, 100*time.Second, got[0].Accumulator.Elapsed)
	assert.Equal(t, t0, got[0].Accumulator.StartedAt)
	assert.Equal(t, SourceLocal, got[0].Accumulator.Source)

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.Metadata.Title)
	assert.Equal(t, StatePlaying, tr.State())
	assert.Equal(t, t0.Add(100*time.Second), cur.StartedAt)
}

func TestPausedTimeDoesNotAccrue(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 3*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		StatusChanged{Header: at(10), Status: StatusPaused},
		StatusChanged{Header: at(50), Status: StatusPlaying},
		TrackChanged{Header: at(60), Metadata: localTrack("b", 3*time.Minute)},
	)

	require.Len(t, got, 1)
	assert.Equal(t, 20*time.Second, got[0].Accumulator.Elapsed)
	assert.Equal(t, t0, got[0].Accumulator.StartedAt)
	// The player was playing when b arrived, so b starts playing immediately.
	assert.Equal(t, StatePlaying, tr.State())
}

func TestStoppedTrackWaitsForPlaying(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 3*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		StatusChanged{Header: at(10), Status: StatusStopped},
		TrackChanged{Header: at(20), Metadata: localTrack("b", 3*time.Minute)},
	)
	assert.Equal(t, StateIdle, tr.State())
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.False(t, cur.InProgress())
}

func TestEmptyMetadataBetweenTracksKeepsPlaying(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	events := []Event{
		TrackChanged{Header: at(0), Metadata: localTrack("a", 200*time.Second)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		TrackChanged{Header: at(200), Metadata: Metadata{}},
		TrackChanged{Header: at(200), Metadata: localTrack("b", 200*time.Second)},
	}
	for sec := 205; sec <= 400; sec += 5 {
		events = append(events, PositionChanged{Header: at(float64(sec)), Position: time.Duration(sec-200) * time.Second})
	}
	got := feed(t, tr, events...)
	got = append(got, tr.Terminate(ReasonShutdown, t0.Add(400*time.Second))...)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Accumulator.Metadata.Title)
	assert.Equal(t, 200*time.Second, got[0].Accumulator.Elapsed)
	assert.Equal(t, "b", got[1].Accumulator.Metadata.Title)
	assert.Equal(t, t0.Add(200*time.Second), got[1].Accumulator.StartedAt)
	assert.Equal(t, 200*time.Second, got[1].Accumulator.Elapsed)
	assert.Zero(t, got[1].Accumulator.Seeks.Count)
}

func TestEmptyMetadataWhilePausedWaitsForPlaying(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 200*time.Second)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		StatusChanged{Header: at(50), Status: StatusPaused},
		TrackChanged{Header: at(60), Metadata: Metadata{}},
		TrackChanged{Header: at(70), Metadata: localTrack("b", 200*time.Second)},
	)
	assert.Equal(t, StatePaused, tr.State())
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.False(t, cur.InProgress())
}

func TestPositionJumpWhilePausedDoesNotAddElapsed(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		StatusChanged{Header: at(20), Status: StatusPaused},
		PositionChanged{Header: at(30), Position: 150 * time.Second},
		StatusChanged{Header: at(60), Status: StatusPlaying},
	)
	got := tr.Terminate(ReasonShutdown, t0.Add(70*time.Second))

	require.Len(t, got, 1)
	acc := got[0].Accumulator
	assert.Equal(t, 30*time.Second, acc.Elapsed)
	assert.Equal(t, 1, acc.Seeks.Count)
	assert.Equal(t, 130*time.Second, acc.Seeks.Forward)
	assert.Equal(t, 160*time.Second, acc.LastPosition)
}

func TestForwardSeekDoesNotAddElapsed(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(5), Position: 5 * time.Second},
		PositionChanged{Header: at(10), Position: 120 * time.Second},
	)
	got := tr.Terminate(ReasonShutdown, t0.Add(10*time.Second))

	require.Len(t, got, 1)
	acc := got[0].Accumulator
	assert.Equal(t, 10*time.Second, acc.Elapsed)
	assert.Equal(t, 1, acc.Seeks.Count)
	assert.Equal(t, 110*time.Second, acc.Seeks.Forward)
	assert.Zero(t, acc.Seeks.Backward)
	assert.False(t, acc.Seeks.IntroSkipped)
	assert.Equal(t, ReasonShutdown, got[0].Reason)
}

func TestSmallDriftIsNotASeek(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(10), Position: 12 * time.Second},
	)
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Zero(t, cur.Seeks.Count)
	assert.Equal(t, 12*time.Second, cur.LastPosition)
	assert.Equal(t, 10*time.Second, cur.Elapsed)
}

func TestIntroSkip(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(1), Position: 40 * time.Second},
		PositionChanged{Header: at(2), Position: 10 * time.Second},
	)
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.True(t, cur.Seeks.IntroSkipped)
	assert.Equal(t, 2, cur.Seeks.Count)
	assert.Equal(t, 39*time.Second, cur.Seeks.Forward)
	assert.Equal(t, 31*time.Second, cur.Seeks.Backward)
	assert.Equal(t, 2*time.Second, cur.Elapsed)
}

func TestRateScalesAccrual(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		RateChanged{Header: at(10), Rate: 2},
		RateChanged{Header: at(20), Rate: 0},
		TrackChanged{Header: at(30), Metadata: localTrack("b", 5*time.Minute)},
	)

	require.Len(t, got, 1)
	// 10s at 1x, 10s at 2x, 10s at 1x again.
	assert.Equal(t, 40*time.Second, got[0].Accumulator.Elapsed)
	assert.Equal(t, 1.0, tr.Rate())
}

func TestNeverPlayedTrackIsDiscarded(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		TrackChanged{Header: at(60), Metadata: localTrack("b", 5*time.Minute)},
		PlayerVanished{Header: at(120)},
	)
	assert.Empty(t, got)
	assert.Equal(t, StateConcluded, tr.State())
}

func TestSameTrackRefreshesMetadata(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 0)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		TrackChanged{Header: at(5), Metadata: localTrack("a", 200*time.Second)},
	)
	assert.Empty(t, got)

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 200*time.Second, cur.Metadata.Duration)
	assert.Equal(t, t0, cur.StartedAt)
	assert.Equal(t, 5*time.Second, cur.Elapsed)
}

func TestVanishedTrackerIgnoresLaterEvents(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PlayerVanished{Header: at(45)},
		StatusChanged{Header: at(50), Status: StatusPlaying},
		TrackChanged{Header: at(60), Metadata: localTrack("b", 5*time.Minute)},
	)
	require.Len(t, got, 1)
	assert.Equal(t, ReasonPlayerVanished, got[0].Reason)
	assert.Equal(t, 45*time.Second, got[0].Accumulator.Elapsed)
	assert.Empty(t, tr.Terminate(ReasonShutdown, t0.Add(time.Hour)))
}

func TestClockGoingBackwardsDoesNotAccrue(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", 5*time.Minute)},
		StatusChanged{Header: at(10), Status: StatusPlaying},
		PositionChanged{Header: at(5), Position: 0},
	)
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Zero(t, cur.Elapsed)
}

func TestLoopIsOneAccumulatorByDefault(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(61), Position: time.Second},
	)
	assert.Empty(t, got)

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 1, cur.Seeks.Count)
	assert.Equal(t, 61*time.Second, cur.Elapsed)
}

func TestSplitLoops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitLoops = true
	tr := newTestTracker(cfg)

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(61), Position: time.Second},
	)
	require.Len(t, got, 1)
	assert.Equal(t, ReasonLoop, got[0].Reason)
	assert.Equal(t, 61*time.Second, got[0].Accumulator.Elapsed)
	assert.Zero(t, got[0].Accumulator.Seeks.Count)

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.Metadata.Title)
	assert.Equal(t, t0.Add(61*time.Second), cur.StartedAt)
	assert.Zero(t, cur.Elapsed)
}

func TestSplitLoopsNeedsMinimumPlay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitLoops = true
	tr := newTestTracker(cfg)

	got := feed(t, tr,
		TrackChanged{Header: at(0), Metadata: localTrack("a", time.Minute)},
		StatusChanged{Header: at(0), Status: StatusPlaying},
		PositionChanged{Header: at(1), Position: 20 * time.Second},
		PositionChanged{Header: at(10), Position: 0},
	)
	assert.Empty(t, got)
}

func TestEventsForOtherPlayersAreIgnored(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	other := Header{ID: "someone-else", At: t0}

	feed(t, tr, StatusChanged{Header: other, Status: StatusPlaying})
	assert.Equal(t, StateIdle, tr.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "Playing", StatePlaying.String())
	assert.Equal(t, "Paused", StatePaused.String())
	assert.Equal(t, "Concluded", StateConcluded.String())
	assert.Equal(t, "Unknown", State(42).String())
}
