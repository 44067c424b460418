package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

func f(v float64) *float64 {
	return &v
}

func newTestTaxonomy(t *testing.T, nodes ...taxonomy.GenreNode) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.New(nodes)
	if err != nil {
		t.Fatalf("taxonomy.New() error: %v", err)
	}
	return tax
}

var (
	grimeNode = taxonomy.GenreNode{
		ID: 1, Name: "Grime", Slug: "grime", EraStart: 2002,
		TempoMin: 138, TempoMax: 145, EnergyMin: 0.75, EnergyMax: 0.9,
		CulturalContext: "Pirate radio and MC culture",
	}
	trapNode = taxonomy.GenreNode{
		ID: 2, Name: "Trap", Slug: "trap", EraStart: 2000,
		TempoMin: 130, TempoMax: 170, EnergyMin: 0.7, EnergyMax: 0.9,
	}
)

// lineageNodes is a small tree: Electronic > House > Deep House, plus Techno.
func lineageNodes() []taxonomy.GenreNode {
	return []taxonomy.GenreNode{
		{ID: 10, Name: "Electronic", Slug: "electronic", EraStart: 1970, TempoMin: 80, TempoMax: 180, EnergyMin: 0.3, EnergyMax: 0.95, Description: "Electronic music"},
		{ID: 11, Name: "House", Slug: "house", ParentID: 10, EraStart: 1980, TempoMin: 115, TempoMax: 130, EnergyMin: 0.6, EnergyMax: 0.85, CulturalContext: "Chicago club scene"},
		{ID: 12, Name: "Deep House", Slug: "deep-house", ParentID: 11, EraStart: 1985, TempoMin: 115, TempoMax: 125, EnergyMin: 0.5, EnergyMax: 0.7},
		{ID: 13, Name: "Tech House", Slug: "tech-house", ParentID: 11, EraStart: 1990, TempoMin: 120, TempoMax: 130, EnergyMin: 0.65, EnergyMax: 0.8},
		{ID: 14, Name: "Techno", Slug: "techno", ParentID: 10, EraStart: 1985, TempoMin: 120, TempoMax: 150, EnergyMin: 0.7, EnergyMax: 0.95},
		{ID: 15, Name: "Future House", Slug: "future-house", ParentID: 12, EraStart: 2013, TempoMin: 120, TempoMax: 128, EnergyMin: 0.7, EnergyMax: 0.9},
	}
}

type staticTaxonomy struct {
	tax *taxonomy.Taxonomy
}

func (s staticTaxonomy) LoadTaxonomy(context.Context) (*taxonomy.Taxonomy, error) {
	return s.tax, nil
}

type fakeTracks struct {
	mu     sync.Mutex
	tracks map[string][]Track
}

func (f *fakeTracks) ListTracks(_ context.Context, user string, mode FilterMode) ([]Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sources := mode.Sources()
	var out []Track
	for _, t := range f.tracks[user] {
		if sources == nil || contains(sources, t.Source) {
			out = append(out, t)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeResults struct {
	mu        sync.Mutex
	entries   map[CacheKey]CacheEntry
	snapshots []Snapshot
	getErr    error
	putErr    error
}

func newFakeResults() *fakeResults {
	return &fakeResults{entries: make(map[CacheKey]CacheEntry)}
}

func (r *fakeResults) GetGenealogy(_ context.Context, key CacheKey) (CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return CacheEntry{}, r.getErr
	}
	e, ok := r.entries[key]
	if !ok {
		return CacheEntry{}, ErrCacheMiss
	}
	return e, nil
}

func (r *fakeResults) PutGenealogy(_ context.Context, e CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.entries[e.Key] = e
	return nil
}

func (r *fakeResults) RecordSnapshot(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return nil
}
