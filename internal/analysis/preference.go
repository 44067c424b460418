package analysis

// PreferenceWeights maps each track to a [0,1] weight blending its play count
// relative to the most played track and its rating, capped at the top of the
// rating scale. Tracks with neither get the configured floor so they still
// count. Weights are returned in track order.
func PreferenceWeights(tracks []Track, cfg Config) []float64 {
	var maxPlays int64 = 1
	for _, t := range tracks {
		if t.PlayCount > maxPlays {
			maxPlays = t.PlayCount
		}
	}

	weights := make([]float64, len(tracks))
	for i, t := range tracks {
		plays := float64(max(t.PlayCount, 0)) / float64(maxPlays)
		var rating float64
		if cfg.RatingScaleMax > 0 {
			rating = min(float64(max(t.Rating, 0))/cfg.RatingScaleMax, 1)
		}
		w := plays*cfg.PlayWeight + rating*cfg.RatingWeight
		if w == 0 {
			w = cfg.PreferenceFloor
		}
		weights[i] = w
	}
	return weights
}
