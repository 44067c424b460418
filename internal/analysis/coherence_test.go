package analysis

import (
	"fmt"
	"math"
	"testing"
)

func TestCoherenceIdenticalCatalog(t *testing.T) {
	var tracks []Track
	for i := 0; i < 10; i++ {
		tracks = append(tracks, Track{Tempo: f(128), Energy: f(0.8), Valence: f(0.6), Key: "8A", GenreTag: "Tech House"})
	}

	r := Coherence(tracks)
	if !r.Available {
		t.Fatal("coherence unavailable")
	}
	if math.Abs(r.Overall-1) > 0.01 {
		t.Errorf("Overall = %v, want ~1", r.Overall)
	}
	if r.InterpretationLabel != LabelHighlyFocused {
		t.Errorf("label = %q", r.InterpretationLabel)
	}
}

func TestCoherenceDispersedCatalog(t *testing.T) {
	var tracks []Track
	for i := 0; i < 24; i++ {
		tempo, energy := 1.0, 0.0
		if i == 0 {
			tempo, energy = 300, 1
		}
		tracks = append(tracks, Track{
			Tempo:    f(tempo),
			Energy:   f(energy),
			Valence:  f(energy),
			Key:      fmt.Sprintf("key-%d", i),
			GenreTag: fmt.Sprintf("genre-%d", i),
		})
	}

	r := Coherence(tracks)
	if r.Overall > 0.05 {
		t.Errorf("Overall = %v, want ~0 (%+v)", r.Overall, r)
	}
	if r.InterpretationLabel != LabelHighlyDiverse {
		t.Errorf("label = %q", r.InterpretationLabel)
	}
}

func TestCoherenceSparseFeatures(t *testing.T) {
	r := Coherence([]Track{
		{Tempo: f(120)},
		{Tempo: f(120), Energy: f(0.5)},
	})
	if r.TempoConsistency != 1 {
		t.Errorf("TempoConsistency = %v, want 1", r.TempoConsistency)
	}
	for name, v := range map[string]float64{
		"energy": r.EnergyConsistency,
		"genre":  r.GenreCoherence,
		"key":    r.KeyCoherence,
		"mood":   r.MoodCoherence,
	} {
		if v != 0.5 {
			t.Errorf("%s = %v, want neutral 0.5", name, v)
		}
	}
}

func TestCoherenceBounds(t *testing.T) {
	catalogs := [][]Track{
		{{Tempo: f(60)}, {Tempo: f(200)}, {Tempo: f(90)}},
		{{Energy: f(0)}, {Energy: f(0)}},
		{{GenreTag: "a"}, {GenreTag: "a"}, {GenreTag: "b"}},
		{{Key: "1A"}, {Key: "2A"}, {Key: "1A"}},
	}
	for i, tracks := range catalogs {
		r := Coherence(tracks)
		for _, v := range []float64{r.Overall, r.TempoConsistency, r.EnergyConsistency, r.GenreCoherence, r.KeyCoherence, r.MoodCoherence} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Errorf("catalog %d: score %v out of [0,1]: %+v", i, v, r)
			}
		}
	}
}

func TestCoherenceEmpty(t *testing.T) {
	r := Coherence(nil)
	if r.Available || r.Reason == "" {
		t.Errorf("Coherence(nil) = %+v, want unavailable with reason", r)
	}
}

func TestEntropyCoherence(t *testing.T) {
	// Two equally common tags: entropy 1 bit, normalised to 1.
	if got := entropyCoherence([]string{"a", "b", "a", "b"}); math.Abs(got) > 1e-9 {
		t.Errorf("balanced tags = %v, want 0", got)
	}
	// p = 3/4, 1/4.
	want := 1 - (-(0.75*math.Log2(0.75) + 0.25*math.Log2(0.25)))
	if got := entropyCoherence([]string{"a", "a", "a", "b"}); math.Abs(got-want) > 1e-9 {
		t.Errorf("skewed tags = %v, want %v", got, want)
	}
}

func TestInterpretCoherence(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, LabelHighlyFocused},
		{0.8, LabelCoherent},
		{0.61, LabelCoherent},
		{0.5, LabelDiverse},
		{0.4, LabelHighlyDiverse},
		{0, LabelHighlyDiverse},
	}
	for _, tt := range tests {
		if got := InterpretCoherence(tt.score); got != tt.want {
			t.Errorf("InterpretCoherence(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
