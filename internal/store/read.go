package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/ademuri/music-tracker/internal/playback"
	"github.com/ademuri/music-tracker/internal/scrobble"
	"github.com/goccy/go-json"
)

const selectPlays = `
SELECT
  id, started_at, player, outcome, title, artists, album, album_artist,
  duration_ms, elapsed_ms, completion, source, reason, url,
  seek_count, seek_forward_ms, seek_backward_ms, intro_skipped,
  genre, composer, track_number, disc_number, release_date, bpm, rating,
  musicbrainz_track_id, external_ids
FROM plays`

// Dataset is everything the analytics need for one window.
type Dataset struct {
	Plays   []scrobble.Record
	Skips   []scrobble.Record
	Corrupt int
}

// QueryRange returns the plays that started in [from, to), oldest first.
// Skips are excluded. Rows that cannot be decoded are skipped and counted.
func (s *Store) QueryRange(ctx context.Context, from, to time.Time) ([]scrobble.Record, int, error) {
	query := selectPlays + `
WHERE outcome = 'play' AND started_at >= ? AND started_at < ?
ORDER BY started_at ASC, id ASC`

	var plays []scrobble.Record
	corrupt := 0
	err := s.scan(ctx, query, []any{from.UnixMilli(), to.UnixMilli()}, func(rec scrobble.Record, err error) bool {
		if err != nil {
			corrupt++
			return true
		}
		plays = append(plays, rec)
		return true
	})
	if err != nil {
		return nil, 0, fmt.Errorf("querying plays: %w", err)
	}
	return plays, corrupt, nil
}

// Window returns the plays and skips that started in [from, to).
func (s *Store) Window(ctx context.Context, from, to time.Time) (Dataset, error) {
	query := selectPlays + `
WHERE started_at >= ? AND started_at < ?
ORDER BY started_at ASC, id ASC`

	var ds Dataset
	err := s.scan(ctx, query, []any{from.UnixMilli(), to.UnixMilli()}, func(rec scrobble.Record, err error) bool {
		switch {
		case err != nil:
			ds.Corrupt++
		case rec.IsPlay():
			ds.Plays = append(ds.Plays, rec)
		default:
			ds.Skips = append(ds.Skips, rec)
		}
		return true
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("querying window: %w", err)
	}
	return ds, nil
}

// QueryAll iterates over every stored record, plays and skips, oldest first.
// Each call runs a fresh query. Undecodable rows are yielded as
// *CorruptRowError and iteration continues; any other error ends it.
func (s *Store) QueryAll(ctx context.Context) iter.Seq2[scrobble.Record, error] {
	return func(yield func(scrobble.Record, error) bool) {
		query := selectPlays + " ORDER BY started_at ASC, id ASC"
		err := s.scan(ctx, query, nil, yield)
		if err != nil {
			yield(scrobble.Record{}, fmt.Errorf("querying all plays: %w", err))
		}
	}
}

// CountOutcomes returns the number of stored plays and skips.
func (s *Store) CountOutcomes(ctx context.Context) (plays, skips int, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT
  COALESCE(SUM(CASE WHEN outcome = 'play' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN outcome = 'skip' THEN 1 ELSE 0 END), 0)
FROM plays`)
	if err := row.Scan(&plays, &skips); err != nil {
		return 0, 0, fmt.Errorf("counting plays: %w", err)
	}
	return plays, skips, nil
}

// LatestPlay returns when the most recent play started, or the zero time if
// there are none.
func (s *Store) LatestPlay(ctx context.Context) (time.Time, error) {
	row := s.db.QueryRowContext(ctx, "SELECT started_at FROM plays WHERE outcome = 'play' ORDER BY started_at DESC LIMIT 1")
	var ms int64
	err := row.Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("getting latest play: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// scan runs query and hands each decoded row to fn until it returns false.
// The returned error covers the query itself, not individual rows.
func (s *Store) scan(ctx context.Context, query string, args []any, fn func(scrobble.Record, error) bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r row
		if err := rows.Scan(r.dest()...); err != nil {
			return err
		}
		rec, err := r.record()
		if err != nil {
			err = &CorruptRowError{ID: r.id, Err: err}
		}
		if !fn(rec, err) {
			return nil
		}
	}
	return rows.Err()
}

// row holds one raw plays row. Columns other than id are scanned loosely so
// that a badly typed value is reported as a corrupt row rather than failing
// the whole query.
type row struct {
	id     int64
	values [26]any
}

func (r *row) dest() []any {
	dest := make([]any, 0, len(r.values)+1)
	dest = append(dest, &r.id)
	for i := range r.values {
		dest = append(dest, &r.values[i])
	}
	return dest
}

type decoder struct {
	vals []any
	i    int
	err  error
}

func (d *decoder) next() any {
	v := d.vals[d.i]
	d.i++
	return v
}

func (d *decoder) fail(col string, v any) {
	if d.err == nil {
		d.err = fmt.Errorf("column %s: unexpected value %v", col, v)
	}
}

func (d *decoder) int(col string, required bool) int64 {
	v := d.next()
	switch x := v.(type) {
	case int64:
		return x
	case nil:
		if required {
			d.fail(col, v)
		}
		return 0
	case []byte:
		if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
	}
	d.fail(col, v)
	return 0
}

func (d *decoder) float(col string) *float64 {
	v := d.next()
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return &x
	case int64:
		f := float64(x)
		return &f
	}
	d.fail(col, v)
	return nil
}

func (d *decoder) str(col string) string {
	v := d.next()
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	d.fail(col, v)
	return ""
}

func (r *row) record() (scrobble.Record, error) {
	d := &decoder{vals: r.values[:]}

	startedMs := d.int("started_at", true)
	player := d.str("player")
	outcome := scrobble.Outcome(d.str("outcome"))
	title := d.str("title")
	artistsJSON := d.str("artists")
	album := d.str("album")
	albumArtist := d.str("album_artist")
	durationMs := d.int("duration_ms", false)
	elapsedMs := d.int("elapsed_ms", true)
	completion := d.float("completion")
	source := playback.Source(d.str("source"))
	reason := playback.Reason(d.str("reason"))
	url := d.str("url")
	seekCount := d.int("seek_count", false)
	seekForward := d.int("seek_forward_ms", false)
	seekBackward := d.int("seek_backward_ms", false)
	introSkipped := d.int("intro_skipped", false)
	genre := d.str("genre")
	composer := d.str("composer")
	trackNumber := d.int("track_number", false)
	discNumber := d.int("disc_number", false)
	releaseDate := d.str("release_date")
	bpm := d.int("bpm", false)
	rating := d.float("rating")
	mbid := d.str("musicbrainz_track_id")
	externalJSON := d.str("external_ids")
	if d.err != nil {
		return scrobble.Record{}, d.err
	}

	if startedMs <= 0 {
		return scrobble.Record{}, fmt.Errorf("invalid start time %d", startedMs)
	}
	if elapsedMs < 0 {
		return scrobble.Record{}, fmt.Errorf("negative elapsed time %d", elapsedMs)
	}
	if outcome != scrobble.OutcomePlay && outcome != scrobble.OutcomeSkip {
		return scrobble.Record{}, fmt.Errorf("unknown outcome %q", outcome)
	}

	var artists []string
	if artistsJSON != "" {
		if err := json.Unmarshal([]byte(artistsJSON), &artists); err != nil {
			return scrobble.Record{}, fmt.Errorf("decoding artists: %w", err)
		}
	}
	var externalIDs map[string]string
	if externalJSON != "" {
		if err := json.Unmarshal([]byte(externalJSON), &externalIDs); err != nil {
			return scrobble.Record{}, fmt.Errorf("decoding external ids: %w", err)
		}
	}
	if len(artists) == 0 {
		artists = nil
	}

	return scrobble.Record{
		ID:        r.id,
		Outcome:   outcome,
		Player:    player,
		StartedAt: time.UnixMilli(startedMs),
		Elapsed:   time.Duration(elapsedMs) * time.Millisecond,
		Source:    source,
		Reason:    reason,
		Metadata: playback.Metadata{
			Title:              title,
			Artists:            artists,
			Album:              album,
			AlbumArtist:        albumArtist,
			Duration:           time.Duration(durationMs) * time.Millisecond,
			Genre:              genre,
			Composer:           composer,
			TrackNumber:        int(trackNumber),
			DiscNumber:         int(discNumber),
			ReleaseDate:        releaseDate,
			URL:                url,
			Rating:             rating,
			BPM:                int(bpm),
			MusicBrainzTrackID: mbid,
			ExternalIDs:        externalIDs,
		},
		Seeks: playback.SeekStats{
			Count:        int(seekCount),
			Forward:      time.Duration(seekForward) * time.Millisecond,
			Backward:     time.Duration(seekBackward) * time.Millisecond,
			IntroSkipped: introSkipped != 0,
		},
		CompletionRatio: completion,
	}, nil
}
