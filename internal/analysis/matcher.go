package analysis

import (
	"math"
	"strings"

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

// Matcher scores how well a track fits a genre.
type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// MatchBreakdown explains every factor of one track/genre score.
type MatchBreakdown struct {
	TagBonus  float64 `yaml:"tag_bonus" json:"tag_bonus"`
	TagReason string  `yaml:"tag_reason,omitempty" json:"tag_reason,omitempty"`

	// Conflict is the tag keyword that excluded the genre, if any.
	Conflict string `yaml:"conflict,omitempty" json:"conflict,omitempty"`
	Excluded bool   `yaml:"excluded" json:"excluded"`

	HasTempo   bool    `yaml:"has_tempo" json:"has_tempo"`
	Tempo      float64 `yaml:"tempo,omitempty" json:"tempo,omitempty"`
	InRange    bool    `yaml:"in_range" json:"in_range"`
	TempoScore float64 `yaml:"tempo_score" json:"tempo_score"`

	HasEnergy   bool    `yaml:"has_energy" json:"has_energy"`
	EnergyScore float64 `yaml:"energy_score" json:"energy_score"`

	Dampened     bool    `yaml:"dampened" json:"dampened"`
	DampenFactor float64 `yaml:"dampen_factor,omitempty" json:"dampen_factor,omitempty"`

	Total float64 `yaml:"total" json:"total"`
}

const (
	tagExact   = "exact match"
	tagPartial = "partial match"
)

// Score returns the match score of a track against a genre. It is
// deterministic and unbounded above.
func (m *Matcher) Score(t Track, g taxonomy.GenreNode) float64 {
	return m.Explain(t, g).Total
}

// Qualifies reports whether a score clears the acceptance floor.
func (m *Matcher) Qualifies(score float64) bool {
	return score > m.cfg.AcceptanceFloor
}

func (m *Matcher) Explain(t Track, g taxonomy.GenreNode) MatchBreakdown {
	var b MatchBreakdown

	tag := strings.ToLower(strings.TrimSpace(t.GenreTag))
	name := strings.ToLower(strings.TrimSpace(g.Name))
	b.TagBonus, b.TagReason = m.tagBonus(tag, name)

	rule, hasRule := m.cfg.rule(g.Slug)
	if hasRule && tag != "" {
		for _, c := range rule.Conflicts {
			if containsWord(tag, strings.ToLower(c)) {
				b.Excluded = true
				b.Conflict = c
				return b
			}
		}
	}

	tempo, hasTempo := t.MatchTempo()
	if hasTempo {
		b.HasTempo = true
		b.Tempo = tempo
		b.TempoScore, b.InRange = m.tempoScore(tempo, g)
	}

	if t.Energy != nil {
		b.HasEnergy = true
		b.EnergyScore = math.Max(0, 1-2*math.Abs(*t.Energy-g.EnergyMidpoint()))
	}

	var total float64
	if b.HasEnergy {
		total = (b.TempoScore*m.cfg.TempoWeight+b.EnergyScore*m.cfg.EnergyWeight)*100 + b.TagBonus
	} else {
		total = b.TempoScore*100 + b.TagBonus
	}

	if hasTempo && hasRule && rule.OverlapBand && b.TagBonus == 0 && m.inOverlapBand(tempo) {
		switch {
		case !b.HasEnergy:
			b.DampenFactor = m.cfg.DampenWithoutEnergy
		case b.EnergyScore < m.cfg.WeakEnergyFit:
			b.DampenFactor = m.cfg.DampenWeakEnergy
		}
		if b.DampenFactor > 0 {
			b.Dampened = true
			total *= b.DampenFactor
		}
	}

	b.Total = total
	return b
}

func (m *Matcher) tagBonus(tag, name string) (float64, string) {
	if tag == "" || name == "" {
		return 0, ""
	}
	if tag == name {
		return m.cfg.ExactTagBonus, tagExact
	}
	if containsWord(tag, name) || containsWord(name, tag) {
		return m.cfg.PartialTagBonus, tagPartial
	}
	if kw, ok := m.cfg.sharedKeyword(tag, name); ok {
		return m.cfg.KeywordTagBonus, "shared keyword " + kw
	}
	return 0, ""
}

func (m *Matcher) tempoScore(tempo float64, g taxonomy.GenreNode) (float64, bool) {
	mid := g.TempoMidpoint()
	distance := math.Abs(tempo - mid)

	if tempo >= g.TempoMin && tempo <= g.TempoMax {
		span := g.TempoRange()
		centrality := 1.0
		if span > 0 {
			centrality = 1 - distance/(span/2)
		}
		specificity := math.Max(0, 1-span/m.cfg.SpecificitySpan)
		return centrality*m.cfg.CentralityWeight + specificity*m.cfg.SpecificityWeight, true
	}
	return math.Max(0, m.cfg.OutOfRangeBase-distance/m.cfg.OutOfRangeDecay), false
}

func (m *Matcher) inOverlapBand(tempo float64) bool {
	return tempo >= m.cfg.OverlapBandMin && tempo <= m.cfg.OverlapBandMax
}
