package analysis

import (
	"math"
	"sort"

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
)

const (
	VerdictAbsent       = "genre should not appear in the distribution"
	VerdictLegitimate   = "legitimate"
	VerdictTagDriven    = "suspicious: driven by genre tags rather than sonic features"
	VerdictQuestionable = "questionable: weak matches"
)

// Diagnosis explains why a catalog's tracks match one genre.
type Diagnosis struct {
	Genre      taxonomy.GenreNode `yaml:"-" json:"-"`
	TrackCount int                `yaml:"track_count" json:"track_count"`
	Matches    []DiagnosticMatch  `yaml:"matches" json:"matches"`

	TagMatches     int     `yaml:"tag_matches" json:"tag_matches"`
	InRangeMatches int     `yaml:"in_range_matches" json:"in_range_matches"`
	StrongMatches  int     `yaml:"strong_matches" json:"strong_matches"`
	AvgTempo       float64 `yaml:"avg_tempo,omitempty" json:"avg_tempo,omitempty"`

	Warnings []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Verdict  string   `yaml:"verdict" json:"verdict"`
}

type DiagnosticMatch struct {
	Track     Track          `yaml:"track" json:"track"`
	Breakdown MatchBreakdown `yaml:"breakdown" json:"breakdown"`
	Strength  string         `yaml:"strength" json:"strength"`
}

func Strength(score float64) string {
	switch {
	case score > 60:
		return StrengthStrong
	case score > 45:
		return StrengthModerate
	}
	return StrengthWeak
}

// Diagnose scores every track against g and keeps those above the acceptance
// floor, strongest first.
func (m *Matcher) Diagnose(tracks []Track, g taxonomy.GenreNode) Diagnosis {
	d := Diagnosis{Genre: g, TrackCount: len(tracks)}

	var tempos []float64
	for _, t := range tracks {
		b := m.Explain(t, g)
		if !m.Qualifies(b.Total) {
			continue
		}
		dm := DiagnosticMatch{Track: t, Breakdown: b, Strength: Strength(b.Total)}
		d.Matches = append(d.Matches, dm)

		if b.TagBonus > 0 {
			d.TagMatches++
		}
		if b.InRange {
			d.InRangeMatches++
		}
		if dm.Strength == StrengthStrong {
			d.StrongMatches++
		}
		if b.HasTempo {
			tempos = append(tempos, b.Tempo)
		}
	}
	sort.SliceStable(d.Matches, func(i, j int) bool {
		mi, mj := d.Matches[i], d.Matches[j]
		if mi.Breakdown.Total != mj.Breakdown.Total {
			return mi.Breakdown.Total > mj.Breakdown.Total
		}
		return mi.Track.ID < mj.Track.ID
	})

	n := float64(len(d.Matches))
	if n == 0 {
		d.Verdict = VerdictAbsent
		return d
	}

	if d.TagMatches > d.InRangeMatches {
		d.Warnings = append(d.Warnings, "more tag matches than in-range tempo matches; genre tags may be driving the match")
	}
	if float64(d.StrongMatches) < n*0.3 {
		d.Warnings = append(d.Warnings, "less than 30% of matches are strong; possible false positive")
	}
	if len(tempos) > 0 {
		d.AvgTempo = round(mean(tempos), 1)
		if math.Abs(d.AvgTempo-g.TempoMidpoint()) > 10 {
			d.Warnings = append(d.Warnings, "average tempo of matches is far from the genre centre")
		}
	}

	switch {
	case float64(d.StrongMatches) > n*0.5:
		d.Verdict = VerdictLegitimate
	case float64(d.TagMatches) > float64(d.InRangeMatches)*1.5:
		d.Verdict = VerdictTagDriven
	default:
		d.Verdict = VerdictQuestionable
	}
	return d
}
