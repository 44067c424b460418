package analysis

import (
	"math"
	"testing"
)

func TestPreferenceWeights(t *testing.T) {
	cfg := DefaultConfig()
	tracks := []Track{
		{PlayCount: 20, Rating: 255},
		{PlayCount: 10},
		{Rating: 51},
		{},
		{PlayCount: -3},
	}

	got := PreferenceWeights(tracks, cfg)
	want := []float64{1.0, 0.3, 0.08, 0.1, 0.1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("weight[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPreferenceWeightsWithoutPlays(t *testing.T) {
	// maxPlayCount is floored at 1, so a lone play still normalises to 1.
	got := PreferenceWeights([]Track{{PlayCount: 1}, {}}, DefaultConfig())
	if got[0] != 0.6 || got[1] != 0.1 {
		t.Errorf("weights = %v, want [0.6 0.1]", got)
	}

	if got := PreferenceWeights(nil, DefaultConfig()); len(got) != 0 {
		t.Errorf("weights for no tracks = %v", got)
	}
}

func TestPreferenceWeightsClampRating(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RatingScaleMax = 5

	got := PreferenceWeights([]Track{{PlayCount: 4, Rating: 255}, {Rating: 5}, {Rating: 2}}, cfg)
	want := []float64{1.0, 0.4, 0.16}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("weight[%d] = %v, want %v", i, got[i], want[i])
		}
		if got[i] > 1 {
			t.Errorf("weight[%d] = %v exceeds 1", i, got[i])
		}
	}
}
