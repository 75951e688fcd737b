package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/ademuri/music-tracker/internal/store"
	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Appender persists records. *store.Store implements it.
type Appender interface {
	Append(ctx context.Context, rec scrobble.Record) error
}

type RecorderConfig struct {
	// Attempts is how many times one flush tries a record before leaving it
	// queued for the next flush.
	Attempts uint
	// Delay is the initial backoff between attempts.
	Delay time.Duration
	// RetryAfter is how long a failed flush waits before trying again.
	RetryAfter time.Duration
	// FlushInterval is the minimum time between flushes.
	FlushInterval time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Attempts:      5,
		Delay:         100 * time.Millisecond,
		RetryAfter:    30 * time.Second,
		FlushInterval: 100 * time.Millisecond,
	}
}

// Recorder writes records in the background so the event loop never waits
// on the database. Records that fail to write stay queued and are retried.
type Recorder struct {
	store   Appender
	log     zerolog.Logger
	cfg     RecorderConfig
	limiter *rate.Limiter

	mu      sync.Mutex
	pending []scrobble.Record
	closed  bool

	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRecorder starts the writer goroutine. Call Close to stop it.
func NewRecorder(s Appender, log zerolog.Logger, cfg RecorderConfig) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.Attempts == 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = def.Delay
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = def.RetryAfter
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		store:   s,
		log:     log,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.FlushInterval), 1),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.run()
	return r
}

// Submit queues rec for writing. It never blocks on I/O.
func (r *Recorder) Submit(rec scrobble.Record) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		withRecord(r.log.Error(), rec).Msg("Recorder closed, play not saved")
		return
	}
	r.pending = append(r.pending, rec)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of records not yet written.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close flushes what it can before ctx is done. Records that could not be
// written are logged in full and reported in the returned error.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		r.cancel()
		<-r.done
	}
	r.cancel()

	r.mu.Lock()
	lost := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, rec := range lost {
		withRecord(r.log.Error(), rec).Msg("Play could not be saved")
	}
	if len(lost) > 0 {
		return fmt.Errorf("%d plays could not be saved", len(lost))
	}
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)

	var retryAt <-chan time.Time
	for {
		select {
		case <-r.wake:
		case <-retryAt:
		case <-r.stop:
			r.flush(r.ctx)
			return
		}
		retryAt = nil

		if err := r.limiter.Wait(r.ctx); err != nil {
			return
		}
		if !r.flush(r.ctx) {
			retryAt = time.After(r.cfg.RetryAfter)
		}
	}
}

// flush writes queued records in order. It stops at the first record that
// still fails after retries and reports whether the queue is empty.
func (r *Recorder) flush(ctx context.Context) bool {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			return true
		}
		rec := r.pending[0]
		r.mu.Unlock()

		err := r.write(ctx, rec)
		if err != nil && ctx.Err() != nil {
			return false
		}
		var werr *store.WriteError
		if err != nil && errors.As(err, &werr) {
			r.log.Warn().Err(err).Int("pending", r.Pending()).Msg("Writing play failed, will retry")
			return false
		}
		if err != nil {
			withRecord(r.log.Error(), rec).Err(err).Msg("Dropping play that cannot be stored")
		}

		r.mu.Lock()
		r.pending = r.pending[1:]
		r.mu.Unlock()
	}
}

func (r *Recorder) write(ctx context.Context, rec scrobble.Record) error {
	return retry.Do(
		func() error {
			return r.store.Append(ctx, rec)
		},
		retry.Attempts(r.cfg.Attempts),
		retry.Delay(r.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var werr *store.WriteError
			return errors.As(err, &werr)
		}),
		retry.OnRetry(func(n uint, err error) {
			r.log.Debug().Uint("attempt", n+1).Err(err).Msg("Retrying write")
		}),
	)
}

func withRecord(e *zerolog.Event, rec scrobble.Record) *zerolog.Event {
	return e.
		Str("outcome", string(rec.Outcome)).
		Str("player", rec.Player).
		Time("started_at", rec.StartedAt).
		Dur("elapsed", rec.Elapsed).
		Str("title", rec.DisplayTitle()).
		Str("artist", rec.DisplayArtist()).
		Str("album", rec.Album()).
		Str("source", string(rec.Source)).
		Str("reason", string(rec.Reason))
}
