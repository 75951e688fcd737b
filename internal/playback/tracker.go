package playback

import "time"

// State is the tracker's view of a player.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateConcluded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateConcluded:
		return "Concluded"
	default:
		return "Unknown"
	}
}

// Reason says why an accumulator was concluded.
type Reason string

const (
	ReasonTrackChanged   Reason = "track_changed"
	ReasonPlayerVanished Reason = "player_vanished"
	ReasonShutdown       Reason = "shutdown"
	ReasonLoop           Reason = "loop"
)

// Config controls tracker behaviour. The zero value is usable but tolerates
// no position drift at all; see DefaultConfig.
type Config struct {
	// SeekTolerance is how far a reported position may differ from the
	// projected one before the jump counts as a seek.
	SeekTolerance time.Duration

	// SplitLoops makes a jump back to the start of the same track conclude the
	// current accumulator, once it has accrued at least LoopMinPlay.
	SplitLoops  bool
	LoopMinPlay time.Duration

	// LocalOnly discards conclusions of streaming tracks.
	LocalOnly    bool
	LocalPlayers []string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		SeekTolerance: 3 * time.Second,
		LoopMinPlay:   30 * time.Second,
		LocalOnly:     true,
		LocalPlayers:  DefaultLocalPlayers,
	}
}

// SeekStats counts the seeks made during one accumulator.
type SeekStats struct {
	Count        int
	Forward      time.Duration
	Backward     time.Duration
	IntroSkipped bool
}

// Accumulator is the running tally for one track on one player.
type Accumulator struct {
	Metadata     Metadata
	Source       Source
	StartedAt    time.Time
	Elapsed      time.Duration
	LastPosition time.Duration
	LastStatus   Status
	Seeks        SeekStats

	lastTick time.Time
}

// InProgress reports whether the track was ever observed playing.
func (a *Accumulator) InProgress() bool {
	return !a.StartedAt.IsZero()
}

// Concluded is emitted exactly once per accumulator that was ever playing.
type Concluded struct {
	Player      PlayerID
	PlayerName  string
	Reason      Reason
	At          time.Time
	Accumulator Accumulator
}

const (
	introStart = 5 * time.Second
	introEnd   = 15 * time.Second
)

// Tracker is the playback state machine for a single player. It is not safe
// for concurrent use; the Coordinator owns all trackers.
type Tracker struct {
	id   PlayerID
	name string
	cfg  Config

	state State
	rate  float64
	acc   *Accumulator
}

// NewTracker returns a tracker in the Idle state.
func NewTracker(id PlayerID, name string, cfg Config) *Tracker {
	return &Tracker{
		id:    id,
		name:  name,
		cfg:   cfg,
		state: StateIdle,
		rate:  1,
	}
}

func (t *Tracker) ID() PlayerID  { return t.id }
func (t *Tracker) Name() string  { return t.name }
func (t *Tracker) State() State  { return t.state }
func (t *Tracker) Rate() float64 { return t.rate }

// Current returns a copy of the active accumulator.
func (t *Tracker) Current() (Accumulator, bool) {
	if t.acc == nil {
		return Accumulator{}, false
	}
	return *t.acc, true
}

// Handle applies one event and returns the accumulators it concluded, oldest
// first. Events for other players are ignored.
func (t *Tracker) Handle(ev Event) []Concluded {
	if ev.Player() != t.id || t.state == StateConcluded {
		return nil
	}

	switch e := ev.(type) {
	case PlayerAppeared:
		return nil
	case TrackChanged:
		return t.onTrackChanged(e)
	case StatusChanged:
		t.onStatusChanged(e)
	case PositionChanged:
		return t.onPositionChanged(e)
	case RateChanged:
		t.onRateChanged(e)
	case PlayerVanished:
		return t.Terminate(ReasonPlayerVanished, e.At)
	}
	return nil
}

// Terminate concludes any in-progress accumulator and moves the tracker to
// its terminal state. Further events are ignored.
func (t *Tracker) Terminate(reason Reason, at time.Time) []Concluded {
	if t.state == StateConcluded {
		return nil
	}
	c, ok := t.conclude(reason, at)
	t.state = StateConcluded
	if !ok {
		return nil
	}
	return []Concluded{c}
}

func (t *Tracker) onTrackChanged(e TrackChanged) []Concluded {
	if t.acc != nil && SameTrack(t.acc.Metadata, e.Metadata) {
		t.settle(e.At)
		t.acc.Metadata = e.Metadata
		t.acc.Source = ClassifySource(e.Metadata.URL, t.name, t.cfg.LocalPlayers)
		return nil
	}

	wasPlaying := t.state == StatePlaying

	var out []Concluded
	if c, ok := t.conclude(ReasonTrackChanged, e.At); ok {
		out = append(out, c)
	}

	if e.Metadata.IsEmpty() {
		// Players clear their metadata between tracks and when the queue
		// ends. The reported status still holds; a real stop arrives as a
		// StatusChanged.
		return out
	}

	t.acc = &Accumulator{
		Metadata:   e.Metadata,
		Source:     ClassifySource(e.Metadata.URL, t.name, t.cfg.LocalPlayers),
		LastStatus: StatusStopped,
	}

	// A player advancing to the next track stays Playing and sends no new
	// status, so accrual starts right away.
	if wasPlaying {
		t.startPlaying(e.At)
	}
	return out
}

func (t *Tracker) onStatusChanged(e StatusChanged) {
	switch e.Status {
	case StatusPlaying:
		if t.acc == nil {
			t.state = StatePlaying
			return
		}
		if t.state != StatePlaying {
			t.startPlaying(e.At)
		}
	case StatusPaused:
		t.settle(e.At)
		t.state = StatePaused
	case StatusStopped:
		t.settle(e.At)
		t.state = StateIdle
	}
	if t.acc != nil {
		t.acc.LastStatus = e.Status
	}
}

func (t *Tracker) onPositionChanged(e PositionChanged) []Concluded {
	if t.acc == nil {
		return nil
	}
	t.settle(e.At)

	from := t.acc.LastPosition
	diff := e.Position - from
	if abs(diff) <= t.cfg.SeekTolerance {
		t.acc.LastPosition = e.Position
		return nil
	}

	if diff < 0 && t.cfg.SplitLoops && t.state == StatePlaying &&
		e.Position <= t.cfg.SeekTolerance && t.acc.Elapsed >= t.cfg.LoopMinPlay {
		meta := t.acc.Metadata
		c, ok := t.conclude(ReasonLoop, e.At)
		t.acc = &Accumulator{
			Metadata: meta,
			Source:   ClassifySource(meta.URL, t.name, t.cfg.LocalPlayers),
		}
		t.startPlaying(e.At)
		t.acc.LastPosition = e.Position
		if !ok {
			return nil
		}
		return []Concluded{c}
	}

	t.recordSeek(from, e.Position)
	t.acc.LastPosition = e.Position
	return nil
}

func (t *Tracker) onRateChanged(e RateChanged) {
	t.settle(e.At)
	if e.Rate <= 0 {
		t.rate = 1
		return
	}
	t.rate = e.Rate
}

func (t *Tracker) startPlaying(at time.Time) {
	t.state = StatePlaying
	if t.acc == nil {
		return
	}
	if t.acc.StartedAt.IsZero() {
		t.acc.StartedAt = at
	}
	t.acc.lastTick = at
	t.acc.LastStatus = StatusPlaying
}

// settle accrues played time up to at. Only time spent Playing counts, scaled
// by the current rate; the projected position moves with it.
func (t *Tracker) settle(at time.Time) {
	if t.acc == nil || t.state != StatePlaying {
		return
	}
	d := at.Sub(t.acc.lastTick)
	if d <= 0 {
		return
	}
	adv := time.Duration(float64(d) * t.rate)
	t.acc.Elapsed += adv
	t.acc.LastPosition += adv
	t.acc.lastTick = at
}

func (t *Tracker) recordSeek(from, to time.Duration) {
	s := &t.acc.Seeks
	s.Count++
	if to > from {
		s.Forward += to - from
	} else {
		s.Backward += from - to
	}
	if from < introStart && to > introEnd {
		s.IntroSkipped = true
	}
}

// conclude detaches the accumulator. It reports false when there was nothing
// that ever played.
func (t *Tracker) conclude(reason Reason, at time.Time) (Concluded, bool) {
	if t.acc == nil {
		return Concluded{}, false
	}
	t.settle(at)
	acc := *t.acc
	t.acc = nil
	if !acc.InProgress() {
		return Concluded{}, false
	}
	return Concluded{
		Player:      t.id,
		PlayerName:  t.name,
		Reason:      reason,
		At:          at,
		Accumulator: acc,
	}, true
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
