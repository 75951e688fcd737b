// Package config turns viper settings into an immutable Config.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ademuri/music-tracker/internal/daemon"
	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/scrobble"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Keys understood by Load.
const (
	KeyDatabase          = "database"
	KeyLocalOnly         = "track_local_only"
	KeyLocalPlayers      = "local_players"
	KeyMinPlaySeconds    = "min_play_seconds"
	KeyMinPlayPercent    = "min_play_percent"
	KeyAbsolutePlaySecs  = "absolute_play_seconds"
	KeySessionBreak      = "session_break"
	KeySeekTolerance     = "seek_tolerance"
	KeySplitLoops        = "split_loops"
	KeyPollInterval      = "poll_interval"
	KeyWriteAttempts     = "write_attempts"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	DefaultDatabaseName  = "music-tracker.db"
	defaultPollInterval  = 5 * time.Second
	defaultWriteAttempts = 5
)

// Config is the resolved configuration. Build it with Load; it is never
// modified afterwards.
type Config struct {
	Database      string
	LocalOnly     bool
	LocalPlayers  []string
	Thresholds    scrobble.Thresholds
	SessionBreak  time.Duration
	SeekTolerance time.Duration
	SplitLoops    bool
	PollInterval  time.Duration
	WriteAttempts uint
	LogLevel      string
	LogFormat     string
}

// SetDefaults registers every default on v and binds the environment
// variables that override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabase, defaultDatabase())
	v.SetDefault(KeyLocalOnly, true)
	v.SetDefault(KeyLocalPlayers, playback.DefaultLocalPlayers)
	v.SetDefault(KeyMinPlaySeconds, int(scrobble.DefaultThresholds.MinPlay/time.Second))
	v.SetDefault(KeyMinPlayPercent, scrobble.DefaultThresholds.MinPercent)
	v.SetDefault(KeyAbsolutePlaySecs, int(scrobble.DefaultThresholds.Absolute/time.Second))
	v.SetDefault(KeySessionBreak, 30*time.Minute)
	v.SetDefault(KeySeekTolerance, 3*time.Second)
	v.SetDefault(KeySplitLoops, false)
	v.SetDefault(KeyPollInterval, defaultPollInterval)
	v.SetDefault(KeyWriteAttempts, defaultWriteAttempts)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	// The long-standing variable names have no prefix.
	v.BindEnv(KeyLocalOnly, "TRACK_LOCAL_ONLY")
	v.BindEnv(KeyMinPlaySeconds, "MIN_PLAY_SECONDS")
	v.BindEnv(KeyMinPlayPercent, "MIN_PLAY_PERCENT")
	v.BindEnv(KeyDatabase, "MUSIC_TRACKER_DATABASE")
	v.BindEnv(KeyLogLevel, "MUSIC_TRACKER_LOG_LEVEL")
}

func defaultDatabase() string {
	home, err := homedir.Dir()
	if err != nil {
		return DefaultDatabaseName
	}
	return filepath.Join(home, ".local", "share", "music-tracker", DefaultDatabaseName)
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	db, err := homedir.Expand(v.GetString(KeyDatabase))
	if err != nil {
		return Config{}, fmt.Errorf("expanding database path: %w", err)
	}

	cfg := Config{
		Database:     db,
		LocalOnly:    v.GetBool(KeyLocalOnly),
		LocalPlayers: v.GetStringSlice(KeyLocalPlayers),
		Thresholds: scrobble.Thresholds{
			MinPlay:    time.Duration(v.GetInt(KeyMinPlaySeconds)) * time.Second,
			MinPercent: v.GetFloat64(KeyMinPlayPercent),
			Absolute:   time.Duration(v.GetInt(KeyAbsolutePlaySecs)) * time.Second,
		},
		SessionBreak:  v.GetDuration(KeySessionBreak),
		SeekTolerance: v.GetDuration(KeySeekTolerance),
		SplitLoops:    v.GetBool(KeySplitLoops),
		PollInterval:  v.GetDuration(KeyPollInterval),
		WriteAttempts: v.GetUint(KeyWriteAttempts),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFormat:     v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.Thresholds.MinPlay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMinPlaySeconds))
	}
	if c.Thresholds.MinPercent <= 0 || c.Thresholds.MinPercent > 1 {
		errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", KeyMinPlayPercent, c.Thresholds.MinPercent))
	}
	if c.Thresholds.Absolute <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyAbsolutePlaySecs))
	}
	if c.SessionBreak <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySessionBreak))
	}
	if c.SeekTolerance < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeySeekTolerance))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyPollInterval))
	}
	if c.WriteAttempts == 0 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyWriteAttempts))
	}
	return errors.Join(errs...)
}

// Playback returns the tracker configuration.
func (c Config) Playback() playback.Config {
	return playback.Config{
		SeekTolerance: c.SeekTolerance,
		SplitLoops:    c.SplitLoops,
		LoopMinPlay:   c.Thresholds.MinPlay,
		LocalOnly:     c.LocalOnly,
		LocalPlayers:  c.LocalPlayers,
	}
}

// Recorder returns the write-behind configuration.
func (c Config) Recorder() daemon.RecorderConfig {
	rc := daemon.DefaultRecorderConfig()
	rc.Attempts = c.WriteAttempts
	return rc
}
