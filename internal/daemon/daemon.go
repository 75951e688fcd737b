// Package daemon runs the tracking loop: events in, decided records out.
package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/rs/zerolog"
)

// ErrSourceClosed is returned by Run when the event channel is closed.
var ErrSourceClosed = errors.New("event source closed")

// Submitter accepts decided records. *Recorder implements it.
type Submitter interface {
	Submit(rec scrobble.Record)
}

type Daemon struct {
	coord      *playback.Coordinator
	sink       Submitter
	thresholds scrobble.Thresholds
	log        zerolog.Logger

	// Now is used for shutdown and disconnect conclusions.
	Now func() time.Time
}

func New(coord *playback.Coordinator, sink Submitter, thresholds scrobble.Thresholds, log zerolog.Logger) *Daemon {
	d := &Daemon{
		coord:      coord,
		sink:       sink,
		thresholds: thresholds,
		log:        log,
		Now:        time.Now,
	}
	coord.Discarded = func(c playback.Concluded) {
		log.Debug().
			Str("player", c.PlayerName).
			Str("title", c.Accumulator.Metadata.Title).
			Str("source", string(c.Accumulator.Source)).
			Msg("Ignoring non-local track")
	}
	return d
}

// Run consumes events until ctx is done or the channel is closed. On
// cancellation every player is concluded with reason shutdown and ctx.Err()
// is returned. When the channel closes every player is treated as vanished
// and ErrSourceClosed is returned. The coordinator is only touched from
// this goroutine.
func (d *Daemon) Run(ctx context.Context, events <-chan playback.Event) error {
	for {
		select {
		case <-ctx.Done():
			d.conclude(d.coord.Shutdown(d.Now()))
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				d.conclude(d.coord.VanishAll(d.Now()))
				return ErrSourceClosed
			}
			d.logEvent(ev)
			d.conclude(d.coord.Dispatch(ev))
		}
	}
}

func (d *Daemon) conclude(concluded []playback.Concluded) {
	for _, c := range concluded {
		rec := scrobble.Evaluate(c, d.thresholds)
		e := d.log.Info()
		if !rec.IsPlay() {
			e = d.log.Debug()
		}
		e.Str("outcome", string(rec.Outcome)).
			Str("player", c.PlayerName).
			Str("artist", rec.DisplayArtist()).
			Str("title", rec.DisplayTitle()).
			Dur("elapsed", rec.Elapsed).
			Dur("duration", rec.Metadata.Duration).
			Str("reason", string(rec.Reason)).
			Msg("Track concluded")
		d.sink.Submit(rec)
	}
}

func (d *Daemon) logEvent(ev playback.Event) {
	switch e := ev.(type) {
	case playback.PlayerAppeared:
		d.log.Info().Str("player", e.Name).Str("id", string(e.ID)).Msg("Player appeared")
	case playback.PlayerVanished:
		d.log.Info().Str("player", e.Name).Str("id", string(e.ID)).Msg("Player vanished")
	case playback.TrackChanged:
		d.log.Debug().Str("player", e.Name).Str("artist", e.Metadata.Artist()).Str("title", e.Metadata.Title).Msg("Track changed")
	case playback.StatusChanged:
		d.log.Debug().Str("player", e.Name).Stringer("status", e.Status).Msg("Status changed")
	case playback.RateChanged:
		d.log.Debug().Str("player", e.Name).Float64("rate", e.Rate).Msg("Rate changed")
	case playback.PositionChanged:
		d.log.Trace().Str("player", e.Name).Dur("position", e.Position).Msg("Position")
	}
}
