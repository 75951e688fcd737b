package playback

import (
	"slices"
	"time"
)

// Coordinator routes events to one Tracker per player. It owns every tracker
// and must only be used from a single goroutine.
type Coordinator struct {
	cfg      Config
	trackers map[PlayerID]*Tracker

	// Discarded, if set, is called for conclusions dropped by the local-only
	// filter.
	Discarded func(Concluded)
}

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		trackers: make(map[PlayerID]*Tracker),
	}
}

// Dispatch applies ev to its player's tracker, creating the tracker if the
// player is not known yet. Vanished players are forgotten.
func (c *Coordinator) Dispatch(ev Event) []Concluded {
	id := ev.Player()
	t, ok := c.trackers[id]
	if !ok {
		if _, vanished := ev.(PlayerVanished); vanished {
			return nil
		}
		name := ""
		if h, ok := header(ev); ok {
			name = h.Name
		}
		t = NewTracker(id, name, c.cfg)
		c.trackers[id] = t
	}

	out := t.Handle(ev)
	if t.State() == StateConcluded {
		delete(c.trackers, id)
	}
	return c.filter(out)
}

// VanishAll concludes every tracker as if its player disappeared. It is used
// when the event source itself goes away.
func (c *Coordinator) VanishAll(at time.Time) []Concluded {
	return c.terminateAll(ReasonPlayerVanished, at)
}

// Shutdown force-concludes every tracker.
func (c *Coordinator) Shutdown(at time.Time) []Concluded {
	return c.terminateAll(ReasonShutdown, at)
}

// Players returns the known player ids in sorted order.
func (c *Coordinator) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(c.trackers))
	for id := range c.trackers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Coordinator) Tracker(id PlayerID) (*Tracker, bool) {
	t, ok := c.trackers[id]
	return t, ok
}

func (c *Coordinator) terminateAll(reason Reason, at time.Time) []Concluded {
	var out []Concluded
	for _, id := range c.Players() {
		out = append(out, c.trackers[id].Terminate(reason, at)...)
		delete(c.trackers, id)
	}
	return c.filter(out)
}

func (c *Coordinator) filter(in []Concluded) []Concluded {
	if !c.cfg.LocalOnly || len(in) == 0 {
		return in
	}
	out := in[:0]
	for _, con := range in {
		if con.Accumulator.Source == SourceLocal {
			out = append(out, con)
			continue
		}
		if c.Discarded != nil {
			c.Discarded(con)
		}
	}
	return out
}

func header(ev Event) (Header, bool) {
	switch e := ev.(type) {
	case PlayerAppeared:
		return e.Header, true
	case PlayerVanished:
		return e.Header, true
	case TrackChanged:
		return e.Header, true
	case PositionChanged:
		return e.Header, true
	case StatusChanged:
		return e.Header, true
	case RateChanged:
		return e.Header, true
	}
	return Header{}, false
}
