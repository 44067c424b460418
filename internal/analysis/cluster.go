package analysis

import (
	"math"
	"sort"

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

// Genres is the read-only view of the taxonomy used by the pipeline.
type Genres interface {
	Node(id int64) (taxonomy.GenreNode, bool)
	All() []taxonomy.GenreNode
	Lineage(id int64) []taxonomy.GenreNode
	Descendants(id int64) []taxonomy.GenreNode
}

// Candidate is one qualifying genre for a track.
type Candidate struct {
	Genre taxonomy.GenreNode
	Score float64
}

// Candidates returns the qualifying genres for a track, best first. Equal
// scores are ordered by genre ID.
func (m *Matcher) Candidates(t Track, genres []taxonomy.GenreNode) []Candidate {
	var out []Candidate
	for _, g := range genres {
		score := m.Score(t, g)
		if m.Qualifies(score) {
			out = append(out, Candidate{Genre: g, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Genre.ID < out[j].Genre.ID
	})
	return out
}

// BestMatch picks a track's genre. When the top candidate is a root genre,
// the first subgenre within the tie-break margin wins instead.
func (m *Matcher) BestMatch(t Track, genres []taxonomy.GenreNode) (Candidate, bool) {
	cands := m.Candidates(t, genres)
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	if !best.Genre.IsRoot() {
		return best, true
	}
	for _, c := range cands[1:] {
		if best.Score-c.Score > m.cfg.TieBreakMargin {
			break
		}
		if !c.Genre.IsRoot() {
			return c, true
		}
	}
	return best, true
}

// Cluster accumulates the tracks assigned to one genre.
type Cluster struct {
	Genre         taxonomy.GenreNode
	WeightedCount float64
	TrackCount    int
	Percentage    float64
	Subgenres     []string

	tempos   []float64
	energies []float64
	valences []float64
	absorbed []subgenreShare
}

type subgenreShare struct {
	name   string
	weight float64
}

// Aggregation is the result of clustering a catalog.
type Aggregation struct {
	// Clusters are sorted by percentage, highest first, and not truncated.
	Clusters     []*Cluster
	Classified   int
	Unclassified int
	TotalWeight  float64
}

// Aggregate assigns every track to its best genre and rolls the preference
// weights up into per-genre percentages. Tracks without a qualifying match
// are counted as unclassified and left out of the denominator.
func Aggregate(tracks []Track, genres Genres, m *Matcher, cfg Config) Aggregation {
	all := genres.All()
	weights := PreferenceWeights(tracks, cfg)

	var agg Aggregation
	byGenre := make(map[int64]*Cluster)
	for i, t := range tracks {
		best, ok := m.BestMatch(t, all)
		if !ok {
			agg.Unclassified++
			continue
		}
		agg.Classified++

		c, exists := byGenre[best.Genre.ID]
		if !exists {
			c = &Cluster{Genre: best.Genre}
			byGenre[best.Genre.ID] = c
		}
		c.add(t, weights[i])
		agg.TotalWeight += weights[i]
	}

	for _, c := range byGenre {
		agg.Clusters = append(agg.Clusters, c)
	}
	agg.finish()
	return agg
}

func (c *Cluster) add(t Track, weight float64) {
	c.WeightedCount += weight
	c.TrackCount++
	if tempo, ok := t.MatchTempo(); ok {
		c.tempos = append(c.tempos, tempo)
	}
	if t.Energy != nil {
		c.energies = append(c.energies, *t.Energy)
	}
	if v, ok := t.MoodValence(); ok {
		c.valences = append(c.valences, v)
	}
}

func (c *Cluster) merge(o *Cluster, subgenre bool) {
	c.WeightedCount += o.WeightedCount
	c.TrackCount += o.TrackCount
	c.tempos = append(c.tempos, o.tempos...)
	c.energies = append(c.energies, o.energies...)
	c.valences = append(c.valences, o.valences...)
	if subgenre {
		c.absorbed = append(c.absorbed, subgenreShare{name: o.Genre.Name, weight: o.WeightedCount})
	}
}

func (a *Aggregation) finish() {
	for _, c := range a.Clusters {
		if a.TotalWeight > 0 {
			c.Percentage = c.WeightedCount / a.TotalWeight * 100
		}
		sort.SliceStable(c.absorbed, func(i, j int) bool {
			if c.absorbed[i].weight != c.absorbed[j].weight {
				return c.absorbed[i].weight > c.absorbed[j].weight
			}
			return c.absorbed[i].name < c.absorbed[j].name
		})
		c.Subgenres = nil
		for _, s := range c.absorbed {
			c.Subgenres = append(c.Subgenres, s.name)
		}
	}
	sort.Slice(a.Clusters, func(i, j int) bool {
		ci, cj := a.Clusters[i], a.Clusters[j]
		if ci.Percentage != cj.Percentage {
			return ci.Percentage > cj.Percentage
		}
		return ci.Genre.Name < cj.Genre.Name
	})
}

// Simplify regroups every subgenre cluster under its immediate parent.
// Root clusters, and clusters whose parent is missing from the taxonomy, pass
// through unchanged.
func (a Aggregation) Simplify(genres Genres) Aggregation {
	out := Aggregation{
		Classified:   a.Classified,
		Unclassified: a.Unclassified,
		TotalWeight:  a.TotalWeight,
	}

	buckets := make(map[int64]*Cluster)
	bucket := func(g taxonomy.GenreNode) *Cluster {
		b, ok := buckets[g.ID]
		if !ok {
			b = &Cluster{Genre: g}
			buckets[g.ID] = b
		}
		return b
	}

	for _, c := range a.Clusters {
		target, subgenre := c.Genre, false
		if !c.Genre.IsRoot() {
			if parent, ok := genres.Node(c.Genre.ParentID); ok {
				target, subgenre = parent, true
			}
		}
		bucket(target).merge(c, subgenre)
	}

	for _, b := range buckets {
		out.Clusters = append(out.Clusters, b)
	}
	out.finish()
	return out
}

// Influences converts the top clusters into report entries.
func (a Aggregation) Influences(topN int) []Influence {
	clusters := a.Clusters
	if topN > 0 && len(clusters) > topN {
		clusters = clusters[:topN]
	}

	out := make([]Influence, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, Influence{
			GenreID:       c.Genre.ID,
			GenreName:     c.Genre.Name,
			Slug:          c.Genre.Slug,
			Era:           c.Genre.Era(),
			Percentage:    round(c.Percentage, 2),
			TrackCount:    c.TrackCount,
			WeightedCount: round(c.WeightedCount, 3),
			AvgTempo:      roundedMean(c.tempos, 1),
			AvgEnergy:     roundedMean(c.energies, 2),
			AvgValence:    roundedMean(c.valences, 2),
			Subgenres:     c.Subgenres,
		})
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func roundedMean(values []float64, places int) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := round(mean(values), places)
	return &m
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
