package mpris

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

func metadataVariant() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mpris:trackid":            dbus.MakeVariant(dbus.ObjectPath("/org/mpd/Track/7")),
		"xesam:title":              dbus.MakeVariant("Hyperballad"),
		"xesam:artist":             dbus.MakeVariant([]string{"Björk", ""}),
		"xesam:album":              dbus.MakeVariant("Post"),
		"xesam:albumArtist":        dbus.MakeVariant([]string{"Björk"}),
		"mpris:length":             dbus.MakeVariant(int64(321_000_000)),
		"xesam:genre":              dbus.MakeVariant([]string{"Electronic", "Art Pop"}),
		"xesam:composer":           dbus.MakeVariant("Björk"),
		"xesam:trackNumber":        dbus.MakeVariant(int32(4)),
		"xesam:discNumber":         dbus.MakeVariant(int32(1)),
		"xesam:contentCreated":     dbus.MakeVariant("1995"),
		"xesam:url":                dbus.MakeVariant("file:///music/post/04.flac"),
		"mpris:artUrl":             dbus.MakeVariant("file:///music/post/cover.jpg"),
		"xesam:userRating":         dbus.MakeVariant(0.8),
		"xesam:audioBPM":           dbus.MakeVariant(int32(110)),
		"xesam:musicBrainzTrackID": dbus.MakeVariant([]string{"mbid-1"}),
		"xesam:musicBrainzAlbumID": dbus.MakeVariant("album-1"),
	}
}

func TestParseMetadata(t *testing.T) {
	md := parseMetadata(metadataVariant())

	assert.Equal(t, "Hyperballad", md.Title)
	assert.Equal(t, []string{"Björk"}, md.Artists)
	assert.Equal(t, "Post", md.Album)
	assert.Equal(t, "Björk", md.AlbumArtist)
	assert.Equal(t, 321*time.Second, md.Duration)
	assert.Equal(t, "Electronic, Art Pop", md.Genre)
	assert.Equal(t, "Björk", md.Composer)
	assert.Equal(t, 4, md.TrackNumber)
	assert.Equal(t, 1, md.DiscNumber)
	assert.Equal(t, "1995", md.ReleaseDate)
	assert.Equal(t, "file:///music/post/04.flac", md.URL)
	assert.Equal(t, "file:///music/post/cover.jpg", md.ArtURL)
	require.NotNil(t, md.Rating)
	assert.InDelta(t, 0.8, *md.Rating, 1e-9)
	assert.Equal(t, 110, md.BPM)
	assert.Equal(t, "mbid-1", md.MusicBrainzTrackID)
	assert.Equal(t, map[string]string{
		"mpris_trackid":      "/org/mpd/Track/7",
		"musicBrainzAlbumID": "album-1",
	}, md.ExternalIDs)
}

func TestParseMetadataToleratesOddTypes(t *testing.T) {
	md := parseMetadata(map[string]dbus.Variant{
		"xesam:title":  dbus.MakeVariant(42),
		"xesam:artist": dbus.MakeVariant("Solo"),
		"mpris:length": dbus.MakeVariant(uint64(90_000_000)),
	})
	assert.Empty(t, md.Title)
	assert.Equal(t, []string{"Solo"}, md.Artists)
	assert.Equal(t, 90*time.Second, md.Duration)
	assert.Nil(t, md.Rating)
	assert.Nil(t, md.ExternalIDs)

	md = parseMetadata(map[string]dbus.Variant{"mpris:length": dbus.MakeVariant(int64(-1))})
	assert.Zero(t, md.Duration)
	assert.True(t, md.IsEmpty())
}

func TestPropertyEventsOrder(t *testing.T) {
	h := playback.Header{ID: "p", Name: "org.mpris.MediaPlayer2.mpd", At: now}
	events := propertyEvents(h, map[string]dbus.Variant{
		"Position":       dbus.MakeVariant(int64(5_000_000)),
		"PlaybackStatus": dbus.MakeVariant("Playing"),
		"Rate":           dbus.MakeVariant(1.5),
		"Metadata":       dbus.MakeVariant(metadataVariant()),
		"Volume":         dbus.MakeVariant(0.5),
	})

	require.Len(t, events, 4)
	assert.IsType(t, playback.TrackChanged{}, events[0])
	assert.Equal(t, playback.RateChanged{Header: h, Rate: 1.5}, events[1])
	assert.Equal(t, playback.StatusChanged{Header: h, Status: playback.StatusPlaying}, events[2])
	assert.Equal(t, playback.PositionChanged{Header: h, Position: 5 * time.Second}, events[3])
	for _, ev := range events {
		assert.Equal(t, now, ev.Time())
	}
}

func TestPropertyEventsIgnoresUnknownStatus(t *testing.T) {
	events := propertyEvents(playback.Header{}, map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Buffering"),
	})
	assert.Empty(t, events)
}

type fakeBus struct {
	busNames []string
	owners   map[string]string
	props    map[string]map[string]dbus.Variant
}

func (f *fakeBus) names(context.Context) ([]string, error) { return f.busNames, nil }

func (f *fakeBus) owner(_ context.Context, name string) (string, error) {
	o, ok := f.owners[name]
	if !ok {
		return "", errors.New("no owner")
	}
	return o, nil
}

func (f *fakeBus) properties(_ context.Context, name string) (map[string]dbus.Variant, error) {
	return f.props[name], nil
}

func (f *fakeBus) property(_ context.Context, name, prop string) (dbus.Variant, error) {
	v, ok := f.props[name][prop]
	if !ok {
		return dbus.Variant{}, errors.New("no such property")
	}
	return v, nil
}

func drain(w *watcher) []playback.Event {
	var out []playback.Event
	for {
		select {
		case ev := <-w.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

const mpd = "org.mpris.MediaPlayer2.mpd"

func newTestWatcher() (*watcher, *fakeBus) {
	fb := &fakeBus{
		busNames: []string{"org.freedesktop.Notifications", mpd},
		owners:   map[string]string{mpd: ":1.7"},
		props:    map[string]map[string]dbus.Variant{
			mpd: {
				"Metadata":       dbus.MakeVariant(metadataVariant()),
				"PlaybackStatus": dbus.MakeVariant("Playing"),
				"Position":       dbus.MakeVariant(int64(12_000_000)),
			},
		},
	}
	return newWatcher(fb, Options{Log: zerolog.Nop(), Now: func() time.Time { return now }}), fb
}

func TestWatcherDiscoversRunningPlayers(t *testing.T) {
	w, _ := newTestWatcher()
	require.NoError(t, w.discover(context.Background()))

	events := drain(w)
	require.Len(t, events, 4)
	appeared, ok := events[0].(playback.PlayerAppeared)
	require.True(t, ok)
	assert.Equal(t, mpd, appeared.Name)
	assert.True(t, strings.HasPrefix(string(appeared.ID), mpd+"#"))
	assert.IsType(t, playback.TrackChanged{}, events[1])
	assert.IsType(t, playback.StatusChanged{}, events[2])
	assert.IsType(t, playback.PositionChanged{}, events[3])
	for _, ev := range events {
		assert.Equal(t, appeared.ID, ev.Player())
	}
}

func TestWatcherSignals(t *testing.T) {
	w, fb := newTestWatcher()
	ctx := context.Background()
	require.NoError(t, w.discover(ctx))
	first := drain(w)[0].Player()

	w.handle(ctx, &dbus.Signal{
		Sender: ":1.7",
		Name:   seekedSignal,
		Body:   []interface{}{int64(60_000_000)},
	})
	w.handle(ctx, &dbus.Signal{
		Sender: ":1.99",
		Name:   seekedSignal,
		Body:   []interface{}{int64(1)},
	})
	events := drain(w)
	require.Len(t, events, 1)
	assert.Equal(t, playback.PositionChanged{
		Header:   playback.Header{ID: first, Name: mpd, At: now},
		Position: time.Minute,
	}, events[0])

	// Invalidated properties are read back from the player.
	fb.props[mpd]["PlaybackStatus"] = dbus.MakeVariant("Paused")
	w.handle(ctx, &dbus.Signal{
		Sender: ":1.7",
		Name:   propsChanged,
		Body:   []interface{}{playerInterface, map[string]dbus.Variant{}, []string{"PlaybackStatus"}},
	})
	events = drain(w)
	require.Len(t, events, 1)
	assert.Equal(t, playback.StatusPaused, events[0].(playback.StatusChanged).Status)

	// Other interfaces are ignored.
	w.handle(ctx, &dbus.Signal{
		Sender: ":1.7",
		Name:   propsChanged,
		Body:   []interface{}{"org.mpris.MediaPlayer2", map[string]dbus.Variant{"Identity": dbus.MakeVariant("mpd")}, []string{}},
	})
	assert.Empty(t, drain(w))

	// A restarted player is a new identity.
	w.handle(ctx, &dbus.Signal{
		Name: nameOwnerChanged,
		Body: []interface{}{mpd, ":1.7", ":1.8"},
	})
	events = drain(w)
	require.GreaterOrEqual(t, len(events), 2)
	vanished, ok := events[0].(playback.PlayerVanished)
	require.True(t, ok)
	assert.Equal(t, first, vanished.ID)
	appeared, ok := events[1].(playback.PlayerAppeared)
	require.True(t, ok)
	assert.NotEqual(t, first, appeared.ID)

	w.handle(ctx, &dbus.Signal{
		Name: nameOwnerChanged,
		Body: []interface{}{mpd, ":1.8", ""},
	})
	events = drain(w)
	require.Len(t, events, 1)
	assert.IsType(t, playback.PlayerVanished{}, events[0])
	assert.Empty(t, w.players)
}

func TestWatcherPollsPlayingPlayers(t *testing.T) {
	w, fb := newTestWatcher()
	ctx := context.Background()
	require.NoError(t, w.discover(ctx))
	drain(w)

	fb.props[mpd]["Position"] = dbus.MakeVariant(int64(17_000_000))
	w.poll(ctx)
	events := drain(w)
	require.Len(t, events, 1)
	assert.Equal(t, 17*time.Second, events[0].(playback.PositionChanged).Position)

	w.handle(ctx, &dbus.Signal{
		Sender: ":1.7",
		Name:   propsChanged,
		Body:   []interface{}{playerInterface, map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Paused")}, []string{}},
	})
	drain(w)
	w.poll(ctx)
	assert.Empty(t, drain(w))
}
