package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

func createTestDb(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "genealogy.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func f(v float64) *float64 {
	return &v
}

func seedGenres(t *testing.T, s *Store) {
	t.Helper()
	nodes, err := taxonomy.DefaultNodes()
	if err != nil {
		t.Fatalf("DefaultNodes() error: %v", err)
	}
	if err := s.SaveGenres(context.Background(), nodes); err != nil {
		t.Fatalf("SaveGenres() error: %v", err)
	}
}

func TestNewInMemory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	defer s.Close()

	if err := s.CreateUser(context.Background(), "alice"); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	exists, err := columnExists(s.db, "Track", "enriched_valence")
	if err != nil || !exists {
		t.Errorf("columnExists(Track.enriched_valence) = %v, %v", exists, err)
	}
}

func TestCreateUser(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	user := "testuser"
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%q) error: %v", user, err)
	}

	// Idempotency
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%q) error: %v", user, err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error: %v", err)
	}
	if len(users) != 1 || users[0] != user {
		t.Errorf("ListUsers() = %v", users)
	}
}

func TestAddAndListTracks(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	imported := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)

	tracks := []analysis.Track{
		{Title: "Pulse", Artist: "A", Tempo: f(70), EffectiveTempo: f(140), Energy: f(0.8), GenreTag: "grime",
			Key: "8A", PlayCount: 5, Rating: 200, Source: analysis.SourceRekordbox, DurationSeconds: 240, ImportedAt: imported},
		{Title: "Drift", Artist: "B", Valence: f(0.3), EnrichedValence: f(0.4)},
	}
	added, err := s.AddTracks(ctx, "alice", tracks)
	if err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}
	if added != 2 {
		t.Errorf("AddTracks() added %d, want 2", added)
	}

	got, err := s.ListTracks(ctx, "alice", analysis.ModeAll)
	if err != nil {
		t.Fatalf("ListTracks() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTracks() returned %d tracks, want 2", len(got))
	}
	first := got[0]
	if *first.Tempo != 70 || *first.EffectiveTempo != 140 || *first.Energy != 0.8 || first.Valence != nil {
		t.Errorf("features not preserved: %+v", first)
	}
	if first.GenreTag != "grime" || first.Key != "8A" || first.PlayCount != 5 || first.Rating != 200 {
		t.Errorf("metadata not preserved: %+v", first)
	}
	if !first.ImportedAt.Equal(imported) {
		t.Errorf("ImportedAt = %v, want %v", first.ImportedAt, imported)
	}
	second := got[1]
	if second.Source != analysis.SourceUpload || second.Tempo != nil || *second.EnrichedValence != 0.4 || second.ImportedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", second)
	}
}

func TestListTracksFilterMode(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	_, err := s.AddTracks(ctx, "alice", []analysis.Track{
		{Title: "1", Source: analysis.SourceRekordbox},
		{Title: "2", Source: analysis.SourceSerato},
		{Title: "3", Source: analysis.SourceUpload},
	})
	if err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}
	if _, err := s.AddTracks(ctx, "bob", []analysis.Track{{Title: "4"}}); err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}

	tests := []struct {
		mode analysis.FilterMode
		want int
	}{
		{analysis.ModeAll, 3},
		{analysis.ModeDJ, 2},
		{analysis.ModePersonal, 1},
	}
	for _, tt := range tests {
		got, err := s.ListTracks(ctx, "alice", tt.mode)
		if err != nil {
			t.Fatalf("ListTracks(%s) error: %v", tt.mode, err)
		}
		if len(got) != tt.want {
			t.Errorf("ListTracks(%s) returned %d tracks, want %d", tt.mode, len(got), tt.want)
		}
	}
}

func TestAddTracksUpdatesExisting(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	track := analysis.Track{Title: "Pulse", Artist: "A", Tempo: f(128)}
	if _, err := s.AddTracks(ctx, "alice", []analysis.Track{track}); err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}
	track.Tempo = f(130)
	added, err := s.AddTracks(ctx, "alice", []analysis.Track{track})
	if err != nil {
		t.Fatalf("AddTracks() repeat error: %v", err)
	}
	if added != 0 {
		t.Errorf("repeat import added %d tracks, want 0", added)
	}

	got, _ := s.ListTracks(ctx, "alice", analysis.ModeAll)
	if len(got) != 1 || *got[0].Tempo != 130 {
		t.Errorf("ListTracks() = %+v, want one track at 130 BPM", got)
	}
}

func TestSaveAndLoadTaxonomy(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	if _, err := s.LoadTaxonomy(ctx); !errors.Is(err, ErrNoGenres) {
		t.Errorf("LoadTaxonomy() on empty db error = %v, want ErrNoGenres", err)
	}

	seedGenres(t, s)
	tax, err := s.LoadTaxonomy(ctx)
	if err != nil {
		t.Fatalf("LoadTaxonomy() error: %v", err)
	}
	want, _ := taxonomy.Default()
	if tax.Len() != want.Len() {
		t.Errorf("loaded %d genres, want %d", tax.Len(), want.Len())
	}

	grime, ok := tax.NodeBySlug("grime")
	if !ok {
		t.Fatal("grime missing after reload")
	}
	var names []string
	for _, n := range tax.Lineage(grime.ID) {
		names = append(names, n.Slug)
	}
	if len(names) != 4 || names[0] != "reggae" || names[3] != "grime" {
		t.Errorf("Lineage(grime) = %v", names)
	}

	// Reseeding replaces rather than duplicates.
	seedGenres(t, s)
	tax, err = s.LoadTaxonomy(ctx)
	if err != nil {
		t.Fatalf("LoadTaxonomy() after reseed error: %v", err)
	}
	if tax.Len() != want.Len() {
		t.Errorf("reseeded taxonomy has %d genres, want %d", tax.Len(), want.Len())
	}
}

func TestGenealogyCache(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	key := analysis.CacheKey{User: "alice", Mode: analysis.ModeDJ, Granularity: analysis.Detailed}

	if _, err := s.GetGenealogy(ctx, key); !errors.Is(err, analysis.ErrCacheMiss) {
		t.Fatalf("GetGenealogy() on empty cache error = %v, want ErrCacheMiss", err)
	}

	computed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := analysis.CacheEntry{Key: key, ContentHash: "abc", ComputedAt: computed, Payload: []byte(`{"user":"alice"}`)}
	if err := s.PutGenealogy(ctx, entry); err != nil {
		t.Fatalf("PutGenealogy() error: %v", err)
	}
	got, err := s.GetGenealogy(ctx, key)
	if err != nil {
		t.Fatalf("GetGenealogy() error: %v", err)
	}
	if got.ContentHash != "abc" || !got.ComputedAt.Equal(computed) || !bytes.Equal(got.Payload, entry.Payload) {
		t.Errorf("GetGenealogy() = %+v", got)
	}

	entry.ContentHash = "def"
	if err := s.PutGenealogy(ctx, entry); err != nil {
		t.Fatalf("PutGenealogy() overwrite error: %v", err)
	}
	if got, _ := s.GetGenealogy(ctx, key); got.ContentHash != "def" {
		t.Errorf("overwrite not applied: %+v", got)
	}

	other := key
	other.Granularity = analysis.Simplified
	if _, err := s.GetGenealogy(ctx, other); !errors.Is(err, analysis.ErrCacheMiss) {
		t.Errorf("granularity not part of the key: %v", err)
	}

	// Reseeding the taxonomy invalidates every cached report.
	seedGenres(t, s)
	if _, err := s.GetGenealogy(ctx, key); !errors.Is(err, analysis.ErrCacheMiss) {
		t.Errorf("cache survived a reseed: %v", err)
	}
}

func TestHistory(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		snap := analysis.Snapshot{
			RunID:        "run-" + string(rune('a'+i)),
			User:         "alice",
			Mode:         analysis.ModeAll,
			Granularity:  analysis.Detailed,
			TrackCount:   10 + i,
			PrimaryGenre: "House",
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.RecordSnapshot(ctx, snap); err != nil {
			t.Fatalf("RecordSnapshot() error: %v", err)
		}
	}

	got, err := s.History(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("History() returned %d rows, want 3", len(got))
	}
	if got[0].RunID != "run-e" || got[0].TrackCount != 14 || got[0].Mode != analysis.ModeAll {
		t.Errorf("newest snapshot = %+v", got[0])
	}
	if !got[2].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("oldest returned snapshot at %v", got[2].CreatedAt)
	}

	if none, _ := s.History(ctx, "bob", 3); len(none) != 0 {
		t.Errorf("History(bob) = %v", none)
	}
}

func TestSetArtistGenreTag(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	_, err := s.AddTracks(ctx, "alice", []analysis.Track{
		{Title: "1", Artist: "Skepta"},
		{Title: "2", Artist: "Skepta", GenreTag: "road rap"},
		{Title: "3", Artist: "Burial"},
		{Title: "4"},
	})
	if err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}

	artists, err := s.ArtistsMissingTags(ctx, "alice")
	if err != nil {
		t.Fatalf("ArtistsMissingTags() error: %v", err)
	}
	if len(artists) != 2 || artists[0] != "Burial" || artists[1] != "Skepta" {
		t.Errorf("ArtistsMissingTags() = %v", artists)
	}

	n, err := s.SetArtistGenreTag(ctx, "alice", "Skepta", "grime")
	if err != nil {
		t.Fatalf("SetArtistGenreTag() error: %v", err)
	}
	if n != 1 {
		t.Errorf("SetArtistGenreTag() updated %d tracks, want 1", n)
	}

	tracks, _ := s.ListTracks(ctx, "alice", analysis.ModeAll)
	if tracks[0].GenreTag != "grime" || tracks[1].GenreTag != "road rap" {
		t.Errorf("tags = %q, %q", tracks[0].GenreTag, tracks[1].GenreTag)
	}

	artists, _ = s.ArtistsMissingTags(ctx, "alice")
	if len(artists) != 1 || artists[0] != "Burial" {
		t.Errorf("ArtistsMissingTags() after tagging = %v", artists)
	}
}

func TestAnalyzerOverStore(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	seedGenres(t, s)
	_, err := s.AddTracks(ctx, "alice", []analysis.Track{
		{Title: "1", Artist: "A", Tempo: f(140), Energy: f(0.85), GenreTag: "grime", PlayCount: 8},
		{Title: "2", Artist: "B", Tempo: f(124), Energy: f(0.7), GenreTag: "deep house"},
		{Title: "3", Artist: "C", Tempo: f(174), Energy: f(0.9), Source: analysis.SourceSerato},
	})
	if err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}

	a := analysis.NewAnalyzer(s, s, s, analysis.DefaultConfig(), nil)
	req := analysis.Request{User: "alice", Mode: analysis.ModeAll, Granularity: analysis.Detailed}

	first, err := a.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !first.Genealogy.Available || first.Genealogy.PrimaryGenre != "Grime" {
		t.Errorf("genealogy = %+v", first.Genealogy)
	}

	second, err := a.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !second.FromCache || second.Genealogy.Narrative != first.Genealogy.Narrative {
		t.Errorf("second run not served from the sqlite cache")
	}

	history, err := s.History(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 1 || history[0].PrimaryGenre != "Grime" {
		t.Errorf("History() = %+v, want one snapshot", history)
	}
}

func TestAnalyzerWithoutGenres(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()
	if _, err := s.AddTracks(ctx, "withtracks", []analysis.Track{
		{Title: "1", Artist: "A", Tempo: f(140), Energy: f(0.85), GenreTag: "grime", Key: "5A"},
		{Title: "2", Artist: "B", Tempo: f(124), Energy: f(0.7), GenreTag: "deep house", Key: "8A"},
	}); err != nil {
		t.Fatalf("AddTracks() error: %v", err)
	}
	a := analysis.NewAnalyzer(s, s, s, analysis.DefaultConfig(), nil)

	for _, user := range []string{"nobody", "withtracks"} {
		r, err := a.Analyze(ctx, analysis.Request{User: user, Mode: analysis.ModeAll, Granularity: analysis.Detailed})
		if err != nil {
			t.Fatalf("Analyze(%s) error: %v", user, err)
		}
		if r.Genealogy.Available || r.Genealogy.Reason == "" {
			t.Errorf("Analyze(%s) genealogy = %+v, want unavailable with a reason", user, r.Genealogy)
		}
	}

	r, _ := a.Analyze(ctx, analysis.Request{User: "withtracks", Mode: analysis.ModeAll, Granularity: analysis.Detailed})
	if !r.Coherence.Available || r.Stats == nil || r.Stats.Aggregate.TrackCount != 2 {
		t.Errorf("coherence %+v, stats %+v", r.Coherence, r.Stats)
	}
	if history, _ := s.History(ctx, "withtracks", 10); len(history) != 0 {
		t.Errorf("History() = %+v, want no snapshots without a genealogy", history)
	}
}
