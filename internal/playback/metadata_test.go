package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		player string
		want   Source
	}{
		{"file url", "file:///home/me/Music/a.flac", "org.mpris.MediaPlayer2.mpv", SourceLocal},
		{"absolute path", "/home/me/Music/a.flac", "org.mpris.MediaPlayer2.mpv", SourceLocal},
		{"https", "https://open.spotify.com/track/1", "org.mpris.MediaPlayer2.spotify", SourceStreaming},
		{"no url", "", "org.mpris.MediaPlayer2.firefox", SourceStreaming},
		{"allowlisted player without url", "", "org.mpris.MediaPlayer2.rhythmbox", SourceLocal},
		{"allowlist is case insensitive", "", "org.mpris.MediaPlayer2.Rhythmbox", SourceLocal},
		{"allowlisted bare name", "", "deadbeef", SourceLocal},
		{"instance suffix", "", "org.mpris.MediaPlayer2.strawberry.instance1234", SourceLocal},
		{"instance suffix is case insensitive", "", "org.mpris.MediaPlayer2.Elisa.instance7", SourceLocal},
		{"name prefix is not a match", "", "org.mpris.MediaPlayer2.strawberryfields", SourceStreaming},
		{"relative path", "music/a.flac", "org.mpris.MediaPlayer2.vlc", SourceStreaming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySource(tt.url, tt.player, DefaultLocalPlayers))
		})
	}
}

func TestSameTrack(t *testing.T) {
	a := Metadata{Title: "Song", Artists: []string{"A", "B"}, Album: "LP"}

	b := a
	b.Duration = 100
	b.MusicBrainzTrackID = "abc"
	assert.True(t, SameTrack(a, b))

	c := a
	c.Artists = []string{"B", "A"}
	assert.False(t, SameTrack(a, c))

	d := a
	d.Album = "Live"
	assert.False(t, SameTrack(a, d))
}

func TestMetadataHelpers(t *testing.T) {
	assert.Equal(t, "", Metadata{}.Artist())
	assert.Equal(t, "A", Metadata{Artists: []string{"A", "B"}}.Artist())
	assert.True(t, Metadata{}.IsEmpty())
	assert.False(t, Metadata{Album: "LP"}.IsEmpty())

	assert.Equal(t, "/music/a b.flac", FilePath("file:///music/a%20b.flac"))
	assert.Equal(t, "https://x/y", FilePath("https://x/y"))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("Paused")
	assert.True(t, ok)
	assert.Equal(t, StatusPaused, s)

	_, ok = ParseStatus("Buffering")
	assert.False(t, ok)
}
