package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM User ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListTracks returns the tracks of a user whose source is included by mode,
// ordered by id.
func (s *Store) ListTracks(ctx context.Context, user string, mode analysis.FilterMode) ([]analysis.Track, error) {
	query := `
		SELECT id, title, artist, tempo, effective_tempo, energy, valence, enriched_valence,
			genre_tag, musical_key, play_count, rating, source, duration_seconds, imported_at
		FROM Track
		WHERE user = ?`
	args := []interface{}{user}
	if sources := mode.Sources(); len(sources) > 0 {
		query += " AND source IN (?" + strings.Repeat(", ?", len(sources)-1) + ")"
		for _, src := range sources {
			args = append(args, src)
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tracks for %q: %w", user, err)
	}
	defer rows.Close()

	var tracks []analysis.Track
	for rows.Next() {
		var t analysis.Track
		var tempo, effTempo, energy, valence, enriched sql.NullFloat64
		var imported sql.NullTime
		err := rows.Scan(&t.ID, &t.Title, &t.Artist, &tempo, &effTempo, &energy, &valence, &enriched,
			&t.GenreTag, &t.Key, &t.PlayCount, &t.Rating, &t.Source, &t.DurationSeconds, &imported)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		t.Tempo = nullFloat(tempo)
		t.EffectiveTempo = nullFloat(effTempo)
		t.Energy = nullFloat(energy)
		t.Valence = nullFloat(valence)
		t.EnrichedValence = nullFloat(enriched)
		if imported.Valid {
			t.ImportedAt = imported.Time.UTC()
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// LoadTaxonomy builds the taxonomy from the seeded genres.
func (s *Store) LoadTaxonomy(ctx context.Context) (*taxonomy.Taxonomy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, parent_id, era_start, era_end, tempo_min, tempo_max,
			energy_min, energy_max, origin_location, cultural_context, description
		FROM Genre
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying genres: %w", err)
	}
	defer rows.Close()

	var nodes []taxonomy.GenreNode
	for rows.Next() {
		var (
			n      taxonomy.GenreNode
			parent sql.NullInt64
		)
		err := rows.Scan(&n.ID, &n.Name, &n.Slug, &parent, &n.EraStart, &n.EraEnd, &n.TempoMin, &n.TempoMax,
			&n.EnergyMin, &n.EnergyMax, &n.OriginLocation, &n.CulturalContext, &n.Description)
		if err != nil {
			return nil, fmt.Errorf("scanning genre: %w", err)
		}
		n.ParentID = parent.Int64
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoGenres
	}

	tax, err := taxonomy.New(nodes)
	if err != nil {
		return nil, fmt.Errorf("building taxonomy: %w", err)
	}
	return tax, nil
}

// GetGenealogy returns the cache row for key, or analysis.ErrCacheMiss.
func (s *Store) GetGenealogy(ctx context.Context, key analysis.CacheKey) (analysis.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT content_hash, computed_at, payload
		FROM GenealogyCache
		WHERE user = ? AND mode = ? AND granularity = ?`,
		key.User, string(key.Mode), string(key.Granularity))

	e := analysis.CacheEntry{Key: key}
	err := row.Scan(&e.ContentHash, &e.ComputedAt, &e.Payload)
	if err == sql.ErrNoRows {
		return analysis.CacheEntry{}, fmt.Errorf("genealogy for %q: %w", key.User, analysis.ErrCacheMiss)
	}
	if err != nil {
		return analysis.CacheEntry{}, fmt.Errorf("reading genealogy cache: %w", err)
	}
	return e, nil
}

// History returns up to limit snapshots of a user, newest first.
func (s *Store) History(ctx context.Context, user string, limit int) ([]analysis.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, user, mode, granularity, track_count, avg_tempo, avg_energy,
			primary_genre, coherence, created_at
		FROM AnalysisHistory
		WHERE user = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %q: %w", user, err)
	}
	defer rows.Close()

	var out []analysis.Snapshot
	for rows.Next() {
		var snap analysis.Snapshot
		err := rows.Scan(&snap.RunID, &snap.User, &snap.Mode, &snap.Granularity, &snap.TrackCount, &snap.AvgTempo,
			&snap.AvgEnergy, &snap.PrimaryGenre, &snap.Coherence, &snap.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.CreatedAt = snap.CreatedAt.UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

// ArtistsMissingTags lists the artists of a user that have at least one track
// without a genre tag.
func (s *Store) ArtistsMissingTags(ctx context.Context, user string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT artist
		FROM Track
		WHERE user = ? AND artist <> '' AND genre_tag = ''
		ORDER BY artist`, user)
	if err != nil {
		return nil, fmt.Errorf("querying artists for tag enrichment: %w", err)
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}
