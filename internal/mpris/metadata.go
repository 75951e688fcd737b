// Package mpris turns MPRIS players on the D-Bus session bus into playback
// events.
package mpris

import (
	"strings"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/godbus/dbus/v5"
)

const (
	objectPath       = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerInterface  = "org.mpris.MediaPlayer2.Player"
	propsInterface   = "org.freedesktop.DBus.Properties"
	propsChanged     = propsInterface + ".PropertiesChanged"
	seekedSignal     = playerInterface + ".Seeked"
	busInterface     = "org.freedesktop.DBus"
	nameOwnerChanged = busInterface + ".NameOwnerChanged"
)

// parseMetadata converts the Metadata property of a player. Players disagree
// on the types of several fields, so every accessor is lenient and a missing
// or mistyped entry simply stays zero.
func parseMetadata(m map[string]dbus.Variant) playback.Metadata {
	md := playback.Metadata{
		Title:       str(m, "xesam:title"),
		Artists:     strs(m, "xesam:artist"),
		Album:       str(m, "xesam:album"),
		AlbumArtist: first(strs(m, "xesam:albumArtist")),
		Duration:    time.Duration(integer(m, "mpris:length")) * time.Microsecond,
		Genre:       strings.Join(strs(m, "xesam:genre"), ", "),
		Composer:    strings.Join(strs(m, "xesam:composer"), ", "),
		TrackNumber: int(integer(m, "xesam:trackNumber")),
		DiscNumber:  int(integer(m, "xesam:discNumber")),
		ReleaseDate: str(m, "xesam:contentCreated"),
		URL:         str(m, "xesam:url"),
		ArtURL:      str(m, "mpris:artUrl"),
		BPM:         int(integer(m, "xesam:audioBPM")),

		MusicBrainzTrackID: first(strs(m, "xesam:musicBrainzTrackID")),
	}
	if md.Duration < 0 {
		md.Duration = 0
	}
	if r, ok := float(m, "xesam:userRating"); ok {
		md.Rating = &r
	}

	ids := map[string]string{}
	if id, ok := m["mpris:trackid"]; ok {
		switch v := id.Value().(type) {
		case dbus.ObjectPath:
			ids["mpris_trackid"] = string(v)
		case string:
			ids["mpris_trackid"] = v
		}
	}
	for _, key := range []string{"xesam:musicBrainzAlbumID", "xesam:musicBrainzArtistID", "xesam:musicBrainzAlbumArtistID"} {
		if v := first(strs(m, key)); v != "" {
			ids[strings.TrimPrefix(key, "xesam:")] = v
		}
	}
	if len(ids) > 0 {
		md.ExternalIDs = ids
	}
	return md
}

func str(m map[string]dbus.Variant, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch s := v.Value().(type) {
	case string:
		return s
	case dbus.ObjectPath:
		return string(s)
	}
	return ""
}

func strs(m map[string]dbus.Variant, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch s := v.Value().(type) {
	case []string:
		var out []string
		for _, e := range s {
			if e != "" {
				out = append(out, e)
			}
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return nil
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func integer(m map[string]dbus.Variant, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.Value().(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case int16:
		return int64(n)
	case uint16:
		return int64(n)
	case byte:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func float(m map[string]dbus.Variant, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.Value().(type) {
	case float64:
		return n, true
	case int64, int32, uint64, uint32:
		return float64(integer(m, key)), true
	}
	return 0, false
}

// propertyEvents converts one PropertiesChanged payload into events. When a
// payload carries several properties the events always come out as track,
// rate, status, position, all sharing h.
func propertyEvents(h playback.Header, changed map[string]dbus.Variant) []playback.Event {
	var events []playback.Event
	if v, ok := changed["Metadata"]; ok {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			events = append(events, playback.TrackChanged{Header: h, Metadata: parseMetadata(md)})
		}
	}
	if r, ok := float(changed, "Rate"); ok {
		events = append(events, playback.RateChanged{Header: h, Rate: r})
	}
	if s := str(changed, "PlaybackStatus"); s != "" {
		if status, ok := playback.ParseStatus(s); ok {
			events = append(events, playback.StatusChanged{Header: h, Status: status})
		}
	}
	if _, ok := changed["Position"]; ok {
		events = append(events, positionEvent(h, integer(changed, "Position")))
	}
	return events
}

func positionEvent(h playback.Header, us int64) playback.PositionChanged {
	if us < 0 {
		us = 0
	}
	return playback.PositionChanged{Header: h, Position: time.Duration(us) * time.Microsecond}
}
