package analysis

import (
	"fmt"
	"time"
)

// FilterMode selects which tracks of a catalog take part in an analysis.
type FilterMode string

const (
	ModeAll      FilterMode = "all"
	ModeDJ       FilterMode = "dj"
	ModePersonal FilterMode = "personal"
)

// Sources lists the ingestion sources included by the mode. ModeAll returns nil.
func (m FilterMode) Sources() []string {
	switch m {
	case ModeDJ:
		return []string{SourceRekordbox, SourceSerato}
	case ModePersonal:
		return []string{SourceUpload}
	}
	return nil
}

func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(s); m {
	case ModeAll, ModeDJ, ModePersonal:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown filter mode %q", ErrInvalidRequest, s)
}

// Granularity controls whether influences are reported per subgenre or rolled
// up into their parents.
type Granularity string

const (
	Detailed   Granularity = "detailed"
	Simplified Granularity = "simplified"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Detailed, Simplified:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidRequest, s)
}

const (
	SourceRekordbox = "rekordbox"
	SourceSerato    = "serato"
	SourceUpload    = "upload"
)

// Track is one catalog entry with already-extracted features. Nil pointers
// mark features that were never measured.
type Track struct {
	ID     int64  `yaml:"id" json:"id"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Artist string `yaml:"artist,omitempty" json:"artist,omitempty"`

	Tempo *float64 `yaml:"tempo,omitempty" json:"tempo,omitempty" validate:"omitempty,gt=0"`
	// EffectiveTempo is the perceived tempo for material detected at half time.
	EffectiveTempo *float64 `yaml:"effective_tempo,omitempty" json:"effective_tempo,omitempty" validate:"omitempty,gt=0"`
	Energy         *float64 `yaml:"energy,omitempty" json:"energy,omitempty" validate:"omitempty,gte=0,lte=1"`
	Valence        *float64 `yaml:"valence,omitempty" json:"valence,omitempty" validate:"omitempty,gte=0,lte=1"`
	// EnrichedValence comes from an external audio-features provider and wins
	// over the locally estimated Valence.
	EnrichedValence *float64 `yaml:"enriched_valence,omitempty" json:"enriched_valence,omitempty" validate:"omitempty,gte=0,lte=1"`

	GenreTag string `yaml:"genre,omitempty" json:"genre,omitempty"`
	Key      string `yaml:"key,omitempty" json:"key,omitempty"`

	PlayCount int64 `yaml:"play_count,omitempty" json:"play_count,omitempty" validate:"gte=0"`
	Rating    int64 `yaml:"rating,omitempty" json:"rating,omitempty" validate:"gte=0"`

	Source          string    `yaml:"source,omitempty" json:"source,omitempty" validate:"omitempty,oneof=rekordbox serato upload"`
	DurationSeconds float64   `yaml:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
	ImportedAt      time.Time `yaml:"imported_at,omitempty" json:"imported_at,omitempty"`
}

// MatchTempo returns the tempo used for genre matching.
func (t Track) MatchTempo() (float64, bool) {
	if t.EffectiveTempo != nil && *t.EffectiveTempo > 0 {
		return *t.EffectiveTempo, true
	}
	if t.Tempo != nil && *t.Tempo > 0 {
		return *t.Tempo, true
	}
	return 0, false
}

func (t Track) MoodValence() (float64, bool) {
	if t.EnrichedValence != nil {
		return *t.EnrichedValence, true
	}
	if t.Valence != nil {
		return *t.Valence, true
	}
	return 0, false
}

// Request is the input of one analysis run.
type Request struct {
	User         string      `validate:"required"`
	Mode         FilterMode  `validate:"oneof=all dj personal"`
	Granularity  Granularity `validate:"oneof=detailed simplified"`
	ForceRefresh bool
}

// Report is everything an analysis run produces. It is also the cached payload.
type Report struct {
	User        string          `yaml:"user" json:"user"`
	Mode        FilterMode      `yaml:"mode" json:"mode"`
	Granularity Granularity     `yaml:"granularity" json:"granularity"`
	ComputedAt  time.Time       `yaml:"computed_at" json:"computed_at"`
	TrackCount  int             `yaml:"track_count" json:"track_count"`
	Genealogy   Genealogy       `yaml:"genealogy" json:"genealogy"`
	Coherence   CoherenceReport `yaml:"coherence" json:"coherence"`
	Stats       *CatalogStats   `yaml:"catalog_stats,omitempty" json:"catalog_stats,omitempty"`

	FromCache bool `yaml:"-" json:"-"`
}

type Genealogy struct {
	Available bool   `yaml:"available" json:"available"`
	Reason    string `yaml:"reason,omitempty" json:"reason,omitempty"`

	Influences        []Influence `yaml:"influences,omitempty" json:"influences,omitempty"`
	PrimaryGenre      string      `yaml:"primary_genre,omitempty" json:"primary_genre,omitempty"`
	MatchScorePercent float64     `yaml:"match_score_percent,omitempty" json:"match_score_percent,omitempty"`
	Lineage           []string    `yaml:"lineage,omitempty" json:"lineage,omitempty"`
	Descendants       []string    `yaml:"descendants,omitempty" json:"descendants,omitempty"`
	Narrative         string      `yaml:"narrative,omitempty" json:"narrative,omitempty"`
	Tree              *TreeExport `yaml:"tree,omitempty" json:"tree,omitempty"`

	ClassifiedTracks   int `yaml:"classified_tracks" json:"classified_tracks"`
	UnclassifiedTracks int `yaml:"unclassified_tracks" json:"unclassified_tracks"`
}

// Influence is one genre cluster of the ranked influence list.
type Influence struct {
	GenreID       int64    `yaml:"genre_id" json:"genre_id"`
	GenreName     string   `yaml:"genre" json:"genre"`
	Slug          string   `yaml:"slug" json:"slug"`
	Era           string   `yaml:"era,omitempty" json:"era,omitempty"`
	Percentage    float64  `yaml:"percentage" json:"percentage"`
	TrackCount    int      `yaml:"track_count" json:"track_count"`
	WeightedCount float64  `yaml:"weighted_count" json:"weighted_count"`
	AvgTempo      *float64 `yaml:"avg_tempo,omitempty" json:"avg_tempo,omitempty"`
	AvgEnergy     *float64 `yaml:"avg_energy,omitempty" json:"avg_energy,omitempty"`
	AvgValence    *float64 `yaml:"avg_valence,omitempty" json:"avg_valence,omitempty"`
	Subgenres     []string `yaml:"subgenres,omitempty" json:"subgenres,omitempty"`
}

// TreeExport is a node/edge graph of ancestors, the current taste and a few
// descendants, ready for visualisation.
type TreeExport struct {
	Nodes []TreeNode `yaml:"nodes" json:"nodes"`
	Edges []TreeEdge `yaml:"edges" json:"edges"`
}

type TreeNode struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Era         string `yaml:"era,omitempty" json:"era,omitempty"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type TreeEdge struct {
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Style string `yaml:"style,omitempty" json:"style,omitempty"`
}

const (
	NodeAncestor   = "ancestor"
	NodeCurrent    = "current"
	NodeUser       = "user"
	NodeDescendant = "descendant"
)

type CoherenceReport struct {
	Available bool   `yaml:"available" json:"available"`
	Reason    string `yaml:"reason,omitempty" json:"reason,omitempty"`

	Overall             float64 `yaml:"overall" json:"overall"`
	TempoConsistency    float64 `yaml:"tempo_consistency" json:"tempo_consistency"`
	EnergyConsistency   float64 `yaml:"energy_consistency" json:"energy_consistency"`
	GenreCoherence      float64 `yaml:"genre_coherence" json:"genre_coherence"`
	KeyCoherence        float64 `yaml:"key_coherence" json:"key_coherence"`
	MoodCoherence       float64 `yaml:"mood_coherence" json:"mood_coherence"`
	InterpretationLabel string  `yaml:"interpretation,omitempty" json:"interpretation,omitempty"`
}

// CacheKey identifies one cached report.
type CacheKey struct {
	User        string
	Mode        FilterMode
	Granularity Granularity
}

type CacheEntry struct {
	Key         CacheKey
	ContentHash string
	ComputedAt  time.Time
	Payload     []byte
}

// Snapshot is one row of a user's analysis history.
type Snapshot struct {
	RunID        string      `yaml:"run_id" json:"run_id"`
	User         string      `yaml:"user" json:"user"`
	Mode         FilterMode  `yaml:"mode" json:"mode"`
	Granularity  Granularity `yaml:"granularity" json:"granularity"`
	TrackCount   int         `yaml:"track_count" json:"track_count"`
	AvgTempo     float64     `yaml:"avg_tempo" json:"avg_tempo"`
	AvgEnergy    float64     `yaml:"avg_energy" json:"avg_energy"`
	PrimaryGenre string      `yaml:"primary_genre,omitempty" json:"primary_genre,omitempty"`
	Coherence    float64     `yaml:"coherence" json:"coherence"`
	CreatedAt    time.Time   `yaml:"created_at" json:"created_at"`
}
