package mpris

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Options struct {
	// PollInterval is how often the position of playing players is read.
	PollInterval time.Duration
	Log          zerolog.Logger
	// Now stamps events. Defaults to time.Now.
	Now func() time.Time
}

// bus is the part of the session bus the watcher talks to.
type bus interface {
	names(ctx context.Context) ([]string, error)
	owner(ctx context.Context, name string) (string, error)
	properties(ctx context.Context, name string) (map[string]dbus.Variant, error)
	property(ctx context.Context, name, prop string) (dbus.Variant, error)
}

type player struct {
	id      playback.PlayerID
	name    string
	playing bool
}

type watcher struct {
	bus     bus
	opts    Options
	events  chan playback.Event
	players map[string]*player // by unique owner name
}

// Connect opens the session bus and starts emitting events for every MPRIS
// player on it. The returned channel is closed when ctx is done or the bus
// connection is lost.
func Connect(ctx context.Context, opts Options) (<-chan playback.Event, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}

	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(busInterface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg0Namespace(strings.TrimSuffix(playback.BusNamePrefix, ".")),
		},
		{
			dbus.WithMatchObjectPath(objectPath),
			dbus.WithMatchInterface(propsInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchObjectPath(objectPath),
			dbus.WithMatchInterface(playerInterface),
			dbus.WithMatchMember("Seeked"),
		},
	}
	for _, m := range matches {
		if err := conn.AddMatchSignalContext(ctx, m...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribing to signals: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 64)
	conn.Signal(signals)

	w := newWatcher(sessionBus{conn}, opts)
	go func() {
		defer conn.Close()
		w.run(ctx, signals)
	}()
	return w.events, nil
}

func newWatcher(b bus, opts Options) *watcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &watcher{
		bus:     b,
		opts:    opts,
		events:  make(chan playback.Event, 64),
		players: map[string]*player{},
	}
}

func (w *watcher) run(ctx context.Context, signals <-chan *dbus.Signal) {
	defer close(w.events)

	if err := w.discover(ctx); err != nil {
		w.opts.Log.Error().Err(err).Msg("Discovering players failed")
		return
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				w.opts.Log.Warn().Msg("Session bus connection lost")
				return
			}
			w.handle(ctx, sig)
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// discover adds every player already on the bus.
func (w *watcher) discover(ctx context.Context) error {
	names, err := w.bus.names(ctx)
	if err != nil {
		return fmt.Errorf("listing bus names: %w", err)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, playback.BusNamePrefix) {
			continue
		}
		owner, err := w.bus.owner(ctx, name)
		if err != nil {
			w.opts.Log.Warn().Err(err).Str("player", name).Msg("Player has no owner, skipping")
			continue
		}
		w.add(ctx, name, owner)
	}
	return nil
}

func (w *watcher) handle(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case nameOwnerChanged:
		if len(sig.Body) != 3 {
			return
		}
		name, _ := sig.Body[0].(string)
		oldOwner, _ := sig.Body[1].(string)
		newOwner, _ := sig.Body[2].(string)
		if !strings.HasPrefix(name, playback.BusNamePrefix) {
			return
		}
		if oldOwner != "" {
			w.remove(ctx, oldOwner)
		}
		if newOwner != "" {
			w.add(ctx, name, newOwner)
		}

	case propsChanged:
		p, ok := w.players[sig.Sender]
		if !ok || len(sig.Body) < 2 {
			return
		}
		if iface, _ := sig.Body[0].(string); iface != playerInterface {
			return
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		if len(sig.Body) > 2 {
			invalidated, _ := sig.Body[2].([]string)
			changed = w.refetch(ctx, p, changed, invalidated)
		}
		w.emit(ctx, p, propertyEvents(w.header(p), changed)...)

	case seekedSignal:
		p, ok := w.players[sig.Sender]
		if !ok || len(sig.Body) < 1 {
			return
		}
		us, ok := sig.Body[0].(int64)
		if !ok {
			return
		}
		w.emit(ctx, p, positionEvent(w.header(p), us))
	}
}

// refetch reads properties a player invalidated instead of sending.
func (w *watcher) refetch(ctx context.Context, p *player, changed map[string]dbus.Variant, invalidated []string) map[string]dbus.Variant {
	if len(invalidated) == 0 {
		return changed
	}
	out := make(map[string]dbus.Variant, len(changed)+len(invalidated))
	for k, v := range changed {
		out[k] = v
	}
	for _, prop := range invalidated {
		v, err := w.bus.property(ctx, p.name, prop)
		if err != nil {
			w.opts.Log.Debug().Err(err).Str("player", p.name).Str("property", prop).Msg("Reading invalidated property failed")
			continue
		}
		out[prop] = v
	}
	return out
}

func (w *watcher) add(ctx context.Context, name, owner string) {
	if _, ok := w.players[owner]; ok {
		return
	}
	p := &player{
		id:   playback.PlayerID(name + "#" + uuid.NewString()),
		name: name,
	}
	w.players[owner] = p
	w.emit(ctx, p, playback.PlayerAppeared{Header: w.header(p)})

	props, err := w.bus.properties(ctx, name)
	if err != nil {
		w.opts.Log.Warn().Err(err).Str("player", name).Msg("Reading initial player state failed")
		return
	}
	w.emit(ctx, p, propertyEvents(w.header(p), props)...)
}

func (w *watcher) remove(ctx context.Context, owner string) {
	p, ok := w.players[owner]
	if !ok {
		return
	}
	delete(w.players, owner)
	w.emit(ctx, p, playback.PlayerVanished{Header: w.header(p)})
}

// poll reads the position of every playing player so drift and seeks the
// player never signalled are still noticed.
func (w *watcher) poll(ctx context.Context) {
	for _, p := range w.players {
		if !p.playing {
			continue
		}
		v, err := w.bus.property(ctx, p.name, "Position")
		if err != nil {
			w.opts.Log.Debug().Err(err).Str("player", p.name).Msg("Reading position failed")
			continue
		}
		us, ok := v.Value().(int64)
		if !ok {
			continue
		}
		w.emit(ctx, p, positionEvent(w.header(p), us))
	}
}

func (w *watcher) header(p *player) playback.Header {
	return playback.Header{ID: p.id, Name: p.name, At: w.opts.Now()}
}

func (w *watcher) emit(ctx context.Context, p *player, events ...playback.Event) {
	for _, ev := range events {
		if s, ok := ev.(playback.StatusChanged); ok {
			p.playing = s.Status == playback.StatusPlaying
		}
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

type sessionBus struct {
	conn *dbus.Conn
}

func (b sessionBus) names(ctx context.Context) ([]string, error) {
	var names []string
	err := b.conn.BusObject().CallWithContext(ctx, busInterface+".ListNames", 0).Store(&names)
	return names, err
}

func (b sessionBus) owner(ctx context.Context, name string) (string, error) {
	var owner string
	err := b.conn.BusObject().CallWithContext(ctx, busInterface+".GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

func (b sessionBus) properties(ctx context.Context, name string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	err := b.conn.Object(name, objectPath).CallWithContext(ctx, propsInterface+".GetAll", 0, playerInterface).Store(&props)
	return props, err
}

func (b sessionBus) property(ctx context.Context, name, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	err := b.conn.Object(name, objectPath).CallWithContext(ctx, propsInterface+".Get", 0, playerInterface, prop).Store(&v)
	return v, err
}
