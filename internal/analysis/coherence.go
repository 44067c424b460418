package analysis

import (
	"math"
	"strings"
)

// Number of distinct musical keys (12 tonics, major and minor).
const totalKeys = 24

const neutralCoherence = 0.5

const (
	LabelHighlyFocused = "Highly focused taste - very consistent sonic signature"
	LabelCoherent      = "Coherent taste - recognizable style with some variety"
	LabelDiverse       = "Diverse taste - eclectic mix with common threads"
	LabelHighlyDiverse = "Highly diverse taste - wide-ranging musical exploration"
)

const (
	reasonNoTracks       = "No tracks in scope. Import tracks to analyze this catalog."
	reasonUnclassifiable = "Could not match any track to a genre lineage."
)

// Coherence measures how consistent a catalog is across tempo, energy, genre
// tags, keys and mood. Every sub-score is in [0,1].
func Coherence(tracks []Track) CoherenceReport {
	if len(tracks) == 0 {
		return CoherenceReport{Available: false, Reason: reasonNoTracks}
	}

	var tempos, energies, moods []float64
	var tags, keys []string
	for _, t := range tracks {
		if v, ok := t.MatchTempo(); ok {
			tempos = append(tempos, v)
		}
		if t.Energy != nil {
			energies = append(energies, *t.Energy)
		}
		if v, ok := t.MoodValence(); ok {
			moods = append(moods, v)
		}
		if tag := strings.ToLower(strings.TrimSpace(t.GenreTag)); tag != "" {
			tags = append(tags, tag)
		}
		if key := strings.TrimSpace(t.Key); key != "" {
			keys = append(keys, key)
		}
	}

	r := CoherenceReport{
		Available:         true,
		TempoConsistency:  consistency(tempos),
		EnergyConsistency: consistency(energies),
		GenreCoherence:    entropyCoherence(tags),
		KeyCoherence:      keyCoherence(keys),
		MoodCoherence:     consistency(moods),
	}
	r.Overall = r.TempoConsistency*0.25 +
		r.EnergyConsistency*0.25 +
		r.GenreCoherence*0.20 +
		r.KeyCoherence*0.15 +
		r.MoodCoherence*0.15
	r.InterpretationLabel = InterpretCoherence(r.Overall)
	return r
}

func InterpretCoherence(score float64) string {
	switch {
	case score > 0.8:
		return LabelHighlyFocused
	case score > 0.6:
		return LabelCoherent
	case score > 0.4:
		return LabelDiverse
	}
	return LabelHighlyDiverse
}

// consistency is 1 minus the coefficient of variation, floored at 0.
func consistency(values []float64) float64 {
	if len(values) < 2 {
		return neutralCoherence
	}
	m := mean(values)
	sd := stdDev(values, m)
	if m == 0 {
		if sd == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-sd/math.Abs(m))
}

// entropyCoherence inverts the normalised Shannon entropy of the values. A
// single distinct value is fully coherent.
func entropyCoherence(values []string) float64 {
	if len(values) < 2 {
		return neutralCoherence
	}
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	if len(counts) == 1 {
		return 1
	}

	var entropy float64
	n := float64(len(values))
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return clamp01(1 - entropy/math.Log2(float64(len(counts))))
}

func keyCoherence(keys []string) float64 {
	if len(keys) < 2 {
		return neutralCoherence
	}
	unique := make(map[string]struct{})
	for _, k := range keys {
		unique[k] = struct{}{}
	}
	return clamp01(1 - float64(len(unique))/totalKeys)
}

// stdDev is the population standard deviation.
func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
