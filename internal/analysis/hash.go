package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// ContentHash fingerprints every track feature the pipeline reads. The hash is
// independent of track order.
func ContentHash(tracks []Track) string {
	lines := make([]string, 0, len(tracks))
	for _, t := range tracks {
		lines = append(lines, strings.Join([]string{
			strconv.FormatInt(t.ID, 10),
			optFloat(t.Tempo),
			optFloat(t.EffectiveTempo),
			optFloat(t.Energy),
			optFloat(t.Valence),
			optFloat(t.EnrichedValence),
			t.GenreTag,
			t.Key,
			strconv.FormatInt(t.PlayCount, 10),
			strconv.FormatInt(t.Rating, 10),
			t.Source,
			strconv.FormatFloat(t.DurationSeconds, 'g', -1, 64),
			strconv.FormatInt(t.ImportedAt.Unix(), 10),
		}, "\x1f"))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// CacheHash combines a catalog content hash with a configuration fingerprint
// into the hash stored alongside a cached report.
func CacheHash(contentHash, fingerprint string) string {
	sum := sha256.Sum256([]byte(contentHash + "\n" + fingerprint))
	return hex.EncodeToString(sum[:])
}
