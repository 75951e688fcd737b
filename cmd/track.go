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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ademuri/music-tracker/internal/config"
	"github.com/ademuri/music-tracker/internal/daemon"
	"github.com/ademuri/music-tracker/internal/logging"
	"github.com/ademuri/music-tracker/internal/mpris"
	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/store"
)

// shutdownGrace bounds how long pending plays may take to reach the database
// after a stop signal.
const shutdownGrace = 10 * time.Second

// reconnectEvery is the minimum time between two connections to the bus.
var reconnectEvery = 5 * time.Second

// trackCmd represents the track command
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Records plays from local media players",
	Long: `Watches every MPRIS media player on the session bus and stores each track
that was played long enough. Runs until interrupted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = runTracker(ctx, cfg, log, mpris.Connect)
		if err != nil {
			log.Error().Err(err).Msg("Tracker stopped")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	var localOnly bool
	trackCmd.Flags().BoolVar(&localOnly, "local-only", true, "Only record tracks played from local files")

	var splitLoops bool
	trackCmd.Flags().BoolVar(&splitLoops, "split-loops", false, "Record each repeat of a looping track as its own play")

	var pollInterval time.Duration
	trackCmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "How often to read the position of playing players")

	bindTrackFlags(viper.GetViper())
}

func bindTrackFlags(v *viper.Viper) {
	v.BindPFlag(config.KeyLocalOnly, trackCmd.Flags().Lookup("local-only"))
	v.BindPFlag(config.KeySplitLoops, trackCmd.Flags().Lookup("split-loops"))
	v.BindPFlag(config.KeyPollInterval, trackCmd.Flags().Lookup("poll-interval"))
}

// connectFunc opens an event source. mpris.Connect in production.
type connectFunc func(ctx context.Context, opts mpris.Options) (<-chan playback.Event, error)

// runTracker records plays until ctx is done, reconnecting whenever the
// event source goes away.
func runTracker(ctx context.Context, cfg config.Config, log zerolog.Logger, connect connectFunc) error {
	s, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	plays, skips, err := s.CountOutcomes(ctx)
	if err != nil {
		return fmt.Errorf("counting plays: %w", err)
	}
	latest, err := s.LatestPlay(ctx)
	if err != nil {
		return err
	}
	started := log.Info().
		Str("database", cfg.Database).
		Int("plays", plays).
		Int("skips", skips).
		Bool("local_only", cfg.LocalOnly)
	if !latest.IsZero() {
		started = started.Time("last_play", latest)
	}
	started.Msg("Tracking started")

	rec := daemon.NewRecorder(s, log, cfg.Recorder())
	d := daemon.New(playback.NewCoordinator(cfg.Playback()), rec, cfg.Thresholds, log)

	runErr := watch(ctx, d, log, cfg.PollInterval, connect)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := rec.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Some plays were not saved")
	}

	if errors.Is(runErr, context.Canceled) {
		log.Info().Msg("Tracking stopped")
		return nil
	}
	return runErr
}

// watch feeds the daemon from a fresh connection each time the previous one
// closes. Reconnects are paced so a flapping bus cannot spin.
func watch(ctx context.Context, d *daemon.Daemon, log zerolog.Logger, poll time.Duration, connect connectFunc) error {
	limiter := rate.NewLimiter(rate.Every(reconnectEvery), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		var events <-chan playback.Event
		err := retry.Do(
			func() error {
				var err error
				events, err = connect(ctx, mpris.Options{PollInterval: poll, Log: log})
				return err
			},
			retry.Attempts(5),
			retry.Delay(time.Second),
			retry.DelayType(retry.BackOffDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn().Err(err).Uint("attempt", n+1).Msg("Connecting to session bus failed, retrying")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to session bus: %w", err)
		}

		err = d.Run(ctx, events)
		if !errors.Is(err, daemon.ErrSourceClosed) {
			return err
		}
		log.Warn().Msg("Event source closed, reconnecting")
	}
}
