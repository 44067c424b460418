package analysis

import (
	"fmt"
	"math"
	"sort"
)

const (
	histogramBins    = 10
	minTrendMonths   = 3
	tempoTrendDelta  = 5
	energyTrendDelta = 0.1
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// CatalogStats summarises a catalog's raw features.
type CatalogStats struct {
	Aggregate AggregateStats     `yaml:"aggregate" json:"aggregate"`
	Tempo     *Distribution      `yaml:"tempo_distribution,omitempty" json:"tempo_distribution,omitempty"`
	Energy    *Distribution      `yaml:"energy_distribution,omitempty" json:"energy_distribution,omitempty"`
	Evolution *Evolution         `yaml:"evolution,omitempty" json:"evolution,omitempty"`
	Contexts  *ContextComparison `yaml:"context_comparison,omitempty" json:"context_comparison,omitempty"`
}

type AggregateStats struct {
	TrackCount           int     `yaml:"track_count" json:"track_count"`
	AvgTempo             float64 `yaml:"avg_tempo" json:"avg_tempo"`
	MinTempo             float64 `yaml:"min_tempo" json:"min_tempo"`
	MaxTempo             float64 `yaml:"max_tempo" json:"max_tempo"`
	TempoRange           float64 `yaml:"tempo_range" json:"tempo_range"`
	AvgEnergy            float64 `yaml:"avg_energy" json:"avg_energy"`
	AvgValence           float64 `yaml:"avg_valence" json:"avg_valence"`
	TotalDurationSeconds float64 `yaml:"total_duration_seconds" json:"total_duration_seconds"`
	AvgDurationSeconds   float64 `yaml:"avg_duration_seconds" json:"avg_duration_seconds"`
	TotalPlays           int64   `yaml:"total_plays" json:"total_plays"`
	AvgPlays             float64 `yaml:"avg_plays" json:"avg_plays"`
}

type Distribution struct {
	Histogram []Bin   `yaml:"histogram" json:"histogram"`
	P25       float64 `yaml:"p25" json:"p25"`
	P50       float64 `yaml:"p50" json:"p50"`
	P75       float64 `yaml:"p75" json:"p75"`
}

type Bin struct {
	Range string `yaml:"range" json:"range"`
	Count int    `yaml:"count" json:"count"`
}

type Evolution struct {
	Months      []MonthStats `yaml:"months" json:"months"`
	TempoTrend  string       `yaml:"tempo_trend,omitempty" json:"tempo_trend,omitempty"`
	EnergyTrend string       `yaml:"energy_trend,omitempty" json:"energy_trend,omitempty"`
}

type MonthStats struct {
	Month      string   `yaml:"month" json:"month"`
	TrackCount int      `yaml:"track_count" json:"track_count"`
	AvgTempo   *float64 `yaml:"avg_tempo,omitempty" json:"avg_tempo,omitempty"`
	AvgEnergy  *float64 `yaml:"avg_energy,omitempty" json:"avg_energy,omitempty"`
}

type ContextComparison struct {
	DJ               ContextStats `yaml:"dj" json:"dj"`
	Personal         ContextStats `yaml:"personal" json:"personal"`
	TempoDifference  float64      `yaml:"tempo_difference" json:"tempo_difference"`
	EnergyDifference float64      `yaml:"energy_difference" json:"energy_difference"`
}

type ContextStats struct {
	TrackCount int     `yaml:"track_count" json:"track_count"`
	AvgTempo   float64 `yaml:"avg_tempo" json:"avg_tempo"`
	AvgEnergy  float64 `yaml:"avg_energy" json:"avg_energy"`
}

// Stats computes catalog statistics. It returns nil for an empty catalog.
func Stats(tracks []Track) *CatalogStats {
	if len(tracks) == 0 {
		return nil
	}

	tempos, energies := featureValues(tracks)
	return &CatalogStats{
		Aggregate: aggregateStats(tracks),
		Tempo:     distribution(tempos),
		Energy:    distribution(energies),
		Evolution: evolution(tracks),
		Contexts:  compareContexts(tracks),
	}
}

func featureValues(tracks []Track) (tempos, energies []float64) {
	for _, t := range tracks {
		if v, ok := t.MatchTempo(); ok {
			tempos = append(tempos, v)
		}
		if t.Energy != nil {
			energies = append(energies, *t.Energy)
		}
	}
	return tempos, energies
}

func aggregateStats(tracks []Track) AggregateStats {
	tempos, energies := featureValues(tracks)
	var valences []float64
	a := AggregateStats{TrackCount: len(tracks)}
	for _, t := range tracks {
		if v, ok := t.MoodValence(); ok {
			valences = append(valences, v)
		}
		a.TotalDurationSeconds += t.DurationSeconds
		a.TotalPlays += t.PlayCount
	}

	if len(tempos) > 0 {
		a.AvgTempo = round(mean(tempos), 1)
		a.MinTempo, a.MaxTempo = tempos[0], tempos[0]
		for _, v := range tempos {
			a.MinTempo = math.Min(a.MinTempo, v)
			a.MaxTempo = math.Max(a.MaxTempo, v)
		}
		a.TempoRange = a.MaxTempo - a.MinTempo
	}
	a.AvgEnergy = round(mean(energies), 3)
	a.AvgValence = round(mean(valences), 3)
	a.AvgDurationSeconds = round(a.TotalDurationSeconds/float64(len(tracks)), 1)
	a.AvgPlays = round(float64(a.TotalPlays)/float64(len(tracks)), 2)
	return a
}

func distribution(values []float64) *Distribution {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return &Distribution{
		Histogram: histogram(sorted, histogramBins),
		P25:       percentile(sorted, 0.25),
		P50:       percentile(sorted, 0.50),
		P75:       percentile(sorted, 0.75),
	}
}

// histogram buckets sorted values into equal-width bins between min and max.
func histogram(sorted []float64, bins int) []Bin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range sorted {
		i := bins - 1
		if width > 0 {
			i = min(int((v-lo)/width), bins-1)
		}
		counts[i]++
	}

	out := make([]Bin, bins)
	for i, c := range counts {
		out[i] = Bin{
			Range: fmt.Sprintf("%.1f-%.1f", lo+float64(i)*width, lo+float64(i+1)*width),
			Count: c,
		}
	}
	return out
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []float64, p float64) float64 {
	i := int(math.Ceil(float64(len(sorted))*p)) - 1
	return sorted[max(i, 0)]
}

func evolution(tracks []Track) *Evolution {
	type month struct {
		key      string
		count    int
		tempos   []float64
		energies []float64
	}
	byMonth := make(map[string]*month)
	var dated int
	for _, t := range tracks {
		if t.ImportedAt.IsZero() {
			continue
		}
		dated++
		key := t.ImportedAt.UTC().Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &month{key: key}
			byMonth[key] = m
		}
		m.count++
		if v, ok := t.MatchTempo(); ok {
			m.tempos = append(m.tempos, v)
		}
		if t.Energy != nil {
			m.energies = append(m.energies, *t.Energy)
		}
	}
	if dated < 2 {
		return nil
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := &Evolution{}
	var tempoSeries, energySeries []float64
	for _, k := range keys {
		m := byMonth[k]
		ms := MonthStats{
			Month:      k,
			TrackCount: m.count,
			AvgTempo:   roundedMean(m.tempos, 1),
			AvgEnergy:  roundedMean(m.energies, 3),
		}
		if len(m.tempos) > 0 {
			tempoSeries = append(tempoSeries, mean(m.tempos))
		}
		if len(m.energies) > 0 {
			energySeries = append(energySeries, mean(m.energies))
		}
		e.Months = append(e.Months, ms)
	}

	if len(e.Months) >= minTrendMonths {
		e.TempoTrend = trend(tempoSeries, tempoTrendDelta)
		e.EnergyTrend = trend(energySeries, energyTrendDelta)
	}
	return e
}

func trend(series []float64, delta float64) string {
	if len(series) == 0 {
		return ""
	}
	change := series[len(series)-1] - series[0]
	switch {
	case change > delta:
		return TrendIncreasing
	case -change > delta:
		return TrendDecreasing
	}
	return TrendStable
}

func compareContexts(tracks []Track) *ContextComparison {
	var dj, personal []Track
	for _, t := range tracks {
		switch t.Source {
		case SourceRekordbox, SourceSerato:
			dj = append(dj, t)
		case SourceUpload:
			personal = append(personal, t)
		}
	}
	if len(dj) == 0 || len(personal) == 0 {
		return nil
	}

	djStats, personalStats := aggregateStats(dj), aggregateStats(personal)
	return &ContextComparison{
		DJ:               ContextStats{TrackCount: len(dj), AvgTempo: djStats.AvgTempo, AvgEnergy: djStats.AvgEnergy},
		Personal:         ContextStats{TrackCount: len(personal), AvgTempo: personalStats.AvgTempo, AvgEnergy: personalStats.AvgEnergy},
		TempoDifference:  round(math.Abs(djStats.AvgTempo-personalStats.AvgTempo), 1),
		EnergyDifference: round(math.Abs(djStats.AvgEnergy-personalStats.AvgEnergy), 3),
	}
}
