package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/goccy/go-json"
)

const insertPlay = `
INSERT INTO plays (
  started_at, player, outcome, title, artist, artists, album, album_artist,
  duration_ms, elapsed_ms, completion, source, reason, url,
  seek_count, seek_forward_ms, seek_backward_ms, intro_skipped,
  genre, composer, track_number, disc_number, release_date, bpm, rating,
  musicbrainz_track_id, external_ids
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (started_at, player) DO NOTHING`

// Append persists rec. A record with the same start time and player as an
// existing one is ignored, so retrying a write is always safe. Failures are
// reported as *WriteError.
func (s *Store) Append(ctx context.Context, rec scrobble.Record) error {
	if rec.StartedAt.IsZero() {
		return fmt.Errorf("appending play: record has no start time")
	}
	if rec.Outcome != scrobble.OutcomePlay && rec.Outcome != scrobble.OutcomeSkip {
		return fmt.Errorf("appending play: unknown outcome %q", rec.Outcome)
	}

	artists := rec.Metadata.Artists
	if artists == nil {
		artists = []string{}
	}
	artistsJSON, err := json.Marshal(artists)
	if err != nil {
		return fmt.Errorf("encoding artists: %w", err)
	}

	var externalIDs sql.NullString
	if len(rec.Metadata.ExternalIDs) > 0 {
		b, err := json.Marshal(rec.Metadata.ExternalIDs)
		if err != nil {
			return fmt.Errorf("encoding external ids: %w", err)
		}
		externalIDs = sql.NullString{String: string(b), Valid: true}
	}

	m := rec.Metadata
	_, err = s.db.ExecContext(ctx, insertPlay,
		rec.StartedAt.UnixMilli(),
		rec.Player,
		string(rec.Outcome),
		m.Title,
		m.Artist(),
		string(artistsJSON),
		m.Album,
		nullString(m.AlbumArtist),
		nullMillis(m.Duration.Milliseconds()),
		rec.Elapsed.Milliseconds(),
		rec.CompletionRatio,
		string(rec.Source),
		string(rec.Reason),
		nullString(m.URL),
		rec.Seeks.Count,
		rec.Seeks.Forward.Milliseconds(),
		rec.Seeks.Backward.Milliseconds(),
		rec.Seeks.IntroSkipped,
		nullString(m.Genre),
		nullString(m.Composer),
		nullInt(m.TrackNumber),
		nullInt(m.DiscNumber),
		nullString(m.ReleaseDate),
		nullInt(m.BPM),
		m.Rating,
		nullString(m.MusicBrainzTrackID),
		externalIDs,
	)
	if err != nil {
		return &WriteError{Op: "insert", Err: err}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func nullMillis(ms int64) sql.NullInt64 {
	return sql.NullInt64{Int64: ms, Valid: ms > 0}
}
