package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
	"github.com/avast/retry-go"
)

// TagSourceLastfm marks genre tags filled in from last.fm artist tags.
const TagSourceLastfm = "lastfm"

// CreateUser ensures a user exists in the database.
func (s *Store) CreateUser(ctx context.Context, user string) error {
	return createUser(ctx, s.db, user)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func createUser(ctx context.Context, db execer, user string) error {
	var name string
	err := db.QueryRowContext(ctx, "SELECT name FROM User WHERE name = ?", user).Scan(&name)
	if err == sql.ErrNoRows {
		_, err := db.ExecContext(ctx, "INSERT INTO User (name, created_at) VALUES (?, ?)", user, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("inserting user %q: %w", user, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking user %q: %w", user, err)
	}
	return nil
}

// AddTracks inserts a batch of tracks transactionally. A track with the same
// artist, title and source as an existing one replaces its features instead.
// It returns the number of newly inserted tracks.
func (s *Store) AddTracks(ctx context.Context, user string, tracks []analysis.Track) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createUser(ctx, tx, user); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var added int
	for _, t := range tracks {
		if t.Source == "" {
			t.Source = analysis.SourceUpload
		}
		if t.ImportedAt.IsZero() {
			t.ImportedAt = now
		}
		inserted, err := upsertTrack(ctx, tx, user, t)
		if err != nil {
			return 0, err
		}
		if inserted {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return added, nil
}

func upsertTrack(ctx context.Context, tx *sql.Tx, user string, t analysis.Track) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM Track WHERE user = ? AND artist = ? AND title = ? AND source = ?",
		user, t.Artist, t.Title, t.Source).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("checking track %q: %w", t.Title, err)
	}

	if err == nil {
		_, err := tx.ExecContext(ctx, `
			UPDATE Track SET tempo = ?, effective_tempo = ?, energy = ?, valence = ?, enriched_valence = ?,
				genre_tag = ?, musical_key = ?, play_count = ?, rating = ?, duration_seconds = ?
			WHERE id = ?`,
			t.Tempo, t.EffectiveTempo, t.Energy, t.Valence, t.EnrichedValence,
			t.GenreTag, t.Key, t.PlayCount, t.Rating, t.DurationSeconds, id)
		if err != nil {
			return false, fmt.Errorf("updating track %q: %w", t.Title, err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO Track (user, title, artist, tempo, effective_tempo, energy, valence, enriched_valence,
			genre_tag, musical_key, play_count, rating, source, duration_seconds, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user, t.Title, t.Artist, t.Tempo, t.EffectiveTempo, t.Energy, t.Valence, t.EnrichedValence,
		t.GenreTag, t.Key, t.PlayCount, t.Rating, t.Source, t.DurationSeconds, t.ImportedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("inserting track %q: %w", t.Title, err)
	}
	return true, nil
}

// SaveGenres replaces the stored taxonomy. Cached reports embed genre ids and
// names, so the genealogy cache is cleared in the same transaction.
func (s *Store) SaveGenres(ctx context.Context, nodes []taxonomy.GenreNode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM Genre"); err != nil {
		return fmt.Errorf("clearing genres: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM GenealogyCache"); err != nil {
		return fmt.Errorf("clearing genealogy cache: %w", err)
	}

	for _, n := range nodes {
		var parent sql.NullInt64
		if !n.IsRoot() {
			parent = sql.NullInt64{Int64: n.ParentID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO Genre (id, name, slug, parent_id, era_start, era_end, tempo_min, tempo_max,
				energy_min, energy_max, origin_location, cultural_context, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Name, n.Slug, parent, n.EraStart, n.EraEnd, n.TempoMin, n.TempoMax,
			n.EnergyMin, n.EnergyMax, n.OriginLocation, n.CulturalContext, n.Description)
		if err != nil {
			return fmt.Errorf("inserting genre %q: %w", n.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// PutGenealogy overwrites the cache row of the entry's key. Lock contention
// from other processes is retried.
func (s *Store) PutGenealogy(ctx context.Context, e analysis.CacheEntry) error {
	err := retry.Do(
		func() error {
			_, err := s.db.ExecContext(ctx, `
				INSERT OR REPLACE INTO GenealogyCache (user, mode, granularity, content_hash, computed_at, payload)
				VALUES (?, ?, ?, ?, ?, ?)`,
				e.Key.User, string(e.Key.Mode), string(e.Key.Granularity), e.ContentHash, e.ComputedAt.UTC(), e.Payload)
			return err
		},
		retry.RetryIf(isBusy),
		retry.Attempts(5),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("writing genealogy cache for %q: %w", e.Key.User, err)
	}
	return nil
}

func (s *Store) RecordSnapshot(ctx context.Context, snap analysis.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO AnalysisHistory (run_id, user, mode, granularity, track_count, avg_tempo, avg_energy,
			primary_genre, coherence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.User, string(snap.Mode), string(snap.Granularity), snap.TrackCount, snap.AvgTempo,
		snap.AvgEnergy, snap.PrimaryGenre, snap.Coherence, snap.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording snapshot %s: %w", snap.RunID, err)
	}
	return nil
}

// SetArtistGenreTag fills the genre tag of the user's tracks by artist that
// have none. Operator-entered tags are never overwritten. It returns the number
// of tracks updated.
func (s *Store) SetArtistGenreTag(ctx context.Context, user, artist, tag string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE Track SET genre_tag = ?, tag_source = ?
		WHERE user = ? AND artist = ? AND genre_tag = ''`,
		tag, TagSourceLastfm, user, artist)
	if err != nil {
		return 0, fmt.Errorf("tagging tracks of %q: %w", artist, err)
	}
	return res.RowsAffected()
}
