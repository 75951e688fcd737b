package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.True(t, cfg.LocalOnly)
	assert.Equal(t, 30*time.Second, cfg.Thresholds.MinPlay)
	assert.Equal(t, 0.5, cfg.Thresholds.MinPercent)
	assert.Equal(t, 240*time.Second, cfg.Thresholds.Absolute)
	assert.Equal(t, 30*time.Minute, cfg.SessionBreak)
	assert.Equal(t, 3*time.Second, cfg.SeekTolerance)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, uint(5), cfg.WriteAttempts)
	assert.Equal(t, playback.DefaultLocalPlayers, cfg.LocalPlayers)
	assert.True(t, strings.HasSuffix(cfg.Database, DefaultDatabaseName))

	pb := cfg.Playback()
	assert.Equal(t, cfg.Thresholds.MinPlay, pb.LoopMinPlay)
	assert.Equal(t, uint(5), cfg.Recorder().Attempts)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRACK_LOCAL_ONLY", "false")
	t.Setenv("MIN_PLAY_SECONDS", "45")
	t.Setenv("MIN_PLAY_PERCENT", "0.8")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.False(t, cfg.LocalOnly)
	assert.Equal(t, 45*time.Second, cfg.Thresholds.MinPlay)
	assert.Equal(t, 0.8, cfg.Thresholds.MinPercent)
}

func TestExplicitValues(t *testing.T) {
	v := newViper()
	v.Set(KeyDatabase, "/tmp/plays.db")
	v.Set(KeySplitLoops, true)
	v.Set(KeySessionBreak, "45m")
	v.Set(KeyLocalPlayers, []string{"mpv"})

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/plays.db", cfg.Database)
	assert.True(t, cfg.SplitLoops)
	assert.Equal(t, 45*time.Minute, cfg.SessionBreak)
	assert.Equal(t, []string{"mpv"}, cfg.LocalPlayers)
}

func TestValidation(t *testing.T) {
	v := newViper()
	v.Set(KeyMinPlayPercent, 1.5)
	v.Set(KeyPollInterval, "0s")
	v.Set(KeyWriteAttempts, 0)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyMinPlayPercent)
	assert.Contains(t, err.Error(), KeyPollInterval)
	assert.Contains(t, err.Error(), KeyWriteAttempts)
}
