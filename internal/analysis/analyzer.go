// Package analysis classifies a catalog against the genre taxonomy and
// produces its influence genealogy, taste coherence and catalog statistics.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ademuri/taste-genealogy/internal/metrics"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrCacheMiss is returned by a ResultStore when no entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")
	// ErrNoTaxonomy is wrapped by a TaxonomySource that has no genres yet.
	ErrNoTaxonomy = errors.New("no genre taxonomy")
)

const reasonNoTaxonomy = "No genre taxonomy seeded. Run seed-genres to load one."

var validate = validator.New(validator.WithRequiredStructEnabled())

// TrackSource provides the read-only track set of a user.
type TrackSource interface {
	ListTracks(ctx context.Context, user string, mode FilterMode) ([]Track, error)
}

// TaxonomySource provides the genre taxonomy, which is static for a run.
type TaxonomySource interface {
	LoadTaxonomy(ctx context.Context) (*taxonomy.Taxonomy, error)
}

// ResultStore persists cached reports and the analysis history.
type ResultStore interface {
	GetGenealogy(ctx context.Context, key CacheKey) (CacheEntry, error)
	PutGenealogy(ctx context.Context, entry CacheEntry) error
	RecordSnapshot(ctx context.Context, s Snapshot) error
}

// Analyzer runs the full pipeline behind the result cache. It holds no
// mutable state and may serve concurrent requests.
type Analyzer struct {
	tracks  TrackSource
	genres  TaxonomySource
	results ResultStore
	cfg     Config
	matcher *Matcher
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewAnalyzer(tracks TrackSource, genres TaxonomySource, results ResultStore, cfg Config, log *zap.SugaredLogger) *Analyzer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Analyzer{
		tracks:  tracks,
		genres:  genres,
		results: results,
		cfg:     cfg,
		matcher: NewMatcher(cfg),
		log:     log,
		now:     time.Now,
	}
}

// Analyze returns the report for a request, from the cache when the stored
// entry is still valid for both the catalog and the configuration. Only
// failures to read tracks or the taxonomy are returned as errors; an unseeded
// taxonomy and cache failures are not.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	start := time.Now()
	log := a.log.With("user", req.User, "mode", req.Mode, "granularity", req.Granularity)

	tracks, err := a.tracks.ListTracks(ctx, req.User, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("listing tracks for %q: %w", req.User, err)
	}

	key := CacheKey{User: req.User, Mode: req.Mode, Granularity: req.Granularity}
	hash := CacheHash(ContentHash(tracks), a.cfg.Fingerprint())

	if req.ForceRefresh {
		metrics.CacheLookups.WithLabelValues(metrics.CacheForced).Inc()
	} else if report, ok := a.cached(ctx, log, key, hash); ok {
		metrics.AnalysisDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
		return report, nil
	}

	var tax *taxonomy.Taxonomy
	if len(tracks) > 0 {
		tax, err = a.genres.LoadTaxonomy(ctx)
		switch {
		case errors.Is(err, ErrNoTaxonomy):
			log.Warnw("no genre taxonomy, genealogy unavailable", "error", err)
		case err != nil:
			return nil, fmt.Errorf("loading taxonomy: %w", err)
		}
	}

	report := a.compute(req, tracks, tax)
	metrics.GenealogyComputations.WithLabelValues(string(req.Mode), string(req.Granularity)).Inc()
	log.Debugw("computed genealogy", "tracks", len(tracks), "primary", report.Genealogy.PrimaryGenre)

	a.store(ctx, log, key, hash, report)
	if report.Genealogy.Available {
		a.recordSnapshot(ctx, log, report)
	}

	metrics.AnalysisDuration.WithLabelValues("computed").Observe(time.Since(start).Seconds())
	return report, nil
}

func (a *Analyzer) cached(ctx context.Context, log *zap.SugaredLogger, key CacheKey, hash string) (*Report, bool) {
	entry, err := a.results.GetGenealogy(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false
	case err != nil:
		log.Warnw("reading genealogy cache failed, recomputing", "error", err)
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		return nil, false
	case entry.ContentHash != hash:
		metrics.CacheLookups.WithLabelValues(metrics.CacheStale).Inc()
		return nil, false
	case a.now().Sub(entry.ComputedAt) > a.cfg.CacheExpiry:
		metrics.CacheLookups.WithLabelValues(metrics.CacheExpired).Inc()
		return nil, false
	}

	var report Report
	if err := json.Unmarshal(entry.Payload, &report); err != nil {
		log.Warnw("decoding cached genealogy failed, recomputing", "error", err)
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		return nil, false
	}
	report.FromCache = true
	metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
	return &report, true
}

func (a *Analyzer) compute(req Request, tracks []Track, tax *taxonomy.Taxonomy) *Report {
	r := &Report{
		User:        req.User,
		Mode:        req.Mode,
		Granularity: req.Granularity,
		ComputedAt:  a.now().UTC().Truncate(time.Second),
		TrackCount:  len(tracks),
		Coherence:   Coherence(tracks),
	}
	if len(tracks) == 0 {
		r.Genealogy = Genealogy{Available: false, Reason: reasonNoTracks}
		return r
	}
	r.Stats = Stats(tracks)
	if tax == nil {
		r.Genealogy = Genealogy{Available: false, Reason: reasonNoTaxonomy}
		return r
	}

	agg := Aggregate(tracks, tax, a.matcher, a.cfg)
	metrics.TracksClassified.WithLabelValues("classified").Add(float64(agg.Classified))
	metrics.TracksClassified.WithLabelValues("unclassified").Add(float64(agg.Unclassified))
	if req.Granularity == Simplified {
		agg = agg.Simplify(tax)
	}

	r.Genealogy = BuildGenealogy(agg.Influences(a.cfg.TopN), tax, len(tracks), r.ComputedAt)
	r.Genealogy.ClassifiedTracks = agg.Classified
	r.Genealogy.UnclassifiedTracks = agg.Unclassified
	return r
}

func (a *Analyzer) store(ctx context.Context, log *zap.SugaredLogger, key CacheKey, hash string, report *Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		log.Warnw("encoding genealogy for cache failed", "error", err)
		metrics.CacheWriteErrors.Inc()
		return
	}
	entry := CacheEntry{
		Key:         key,
		ContentHash: hash,
		ComputedAt:  report.ComputedAt,
		Payload:     payload,
	}
	if err := a.results.PutGenealogy(ctx, entry); err != nil {
		log.Warnw("writing genealogy cache failed", "error", err)
		metrics.CacheWriteErrors.Inc()
	}
}

func (a *Analyzer) recordSnapshot(ctx context.Context, log *zap.SugaredLogger, r *Report) {
	s := Snapshot{
		RunID:        uuid.NewString(),
		User:         r.User,
		Mode:         r.Mode,
		Granularity:  r.Granularity,
		TrackCount:   r.TrackCount,
		PrimaryGenre: r.Genealogy.PrimaryGenre,
		Coherence:    round(r.Coherence.Overall, 3),
		CreatedAt:    r.ComputedAt,
	}
	if r.Stats != nil {
		s.AvgTempo = r.Stats.Aggregate.AvgTempo
		s.AvgEnergy = r.Stats.Aggregate.AvgEnergy
	}
	if err := a.results.RecordSnapshot(ctx, s); err != nil {
		log.Warnw("recording analysis snapshot failed", "error", err)
	}
}
