package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Config holds every tunable constant of the matching and aggregation
// pipeline. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// Tag correspondence bonuses.
	ExactTagBonus   float64 `mapstructure:"exact_tag_bonus"`
	PartialTagBonus float64 `mapstructure:"partial_tag_bonus"`
	KeywordTagBonus float64 `mapstructure:"keyword_tag_bonus"`

	CentralityWeight  float64 `mapstructure:"centrality_weight"`
	SpecificityWeight float64 `mapstructure:"specificity_weight"`
	// SpecificitySpan is the tempo range width at which specificity drops to 0.
	SpecificitySpan float64 `mapstructure:"specificity_span"`
	OutOfRangeBase  float64 `mapstructure:"out_of_range_base"`
	OutOfRangeDecay float64 `mapstructure:"out_of_range_decay"`

	TempoWeight  float64 `mapstructure:"tempo_weight"`
	EnergyWeight float64 `mapstructure:"energy_weight"`

	OverlapBandMin float64 `mapstructure:"overlap_band_min"`
	OverlapBandMax float64 `mapstructure:"overlap_band_max"`
	// The two dampening factors were tuned separately and stay separate.
	DampenWithoutEnergy float64 `mapstructure:"dampen_without_energy"`
	DampenWeakEnergy    float64 `mapstructure:"dampen_weak_energy"`
	WeakEnergyFit       float64 `mapstructure:"weak_energy_fit"`

	AcceptanceFloor float64 `mapstructure:"acceptance_floor"`
	TieBreakMargin  float64 `mapstructure:"tie_break_margin"`
	TopN            int     `mapstructure:"top_n"`

	PlayWeight      float64 `mapstructure:"play_weight"`
	RatingWeight    float64 `mapstructure:"rating_weight"`
	RatingScaleMax  float64 `mapstructure:"rating_scale_max"`
	PreferenceFloor float64 `mapstructure:"preference_floor"`

	CacheExpiry time.Duration `mapstructure:"cache_expiry"`

	Rules    []GenreRule `mapstructure:"rules"`
	Keywords []Keyword   `mapstructure:"keywords"`
}

// GenreRule attaches tag heuristics to one genre slug.
type GenreRule struct {
	Slug string `mapstructure:"slug"`
	// Conflicts are tag keywords that rule the genre out entirely.
	Conflicts []string `mapstructure:"conflicts"`
	// OverlapBand marks narrow genres whose tempo sits in the ambiguous band.
	OverlapBand bool `mapstructure:"overlap_band"`
}

// Keyword is a recognised tag keyword with its spelling variants. A tag and a
// genre name that both mention a keyword share it.
type Keyword struct {
	Name     string   `mapstructure:"name"`
	Variants []string `mapstructure:"variants"`
}

func DefaultConfig() Config {
	return Config{
		ExactTagBonus:   40,
		PartialTagBonus: 25,
		KeywordTagBonus: 30,

		CentralityWeight:  0.4,
		SpecificityWeight: 0.6,
		SpecificitySpan:   30,
		OutOfRangeBase:    0.5,
		OutOfRangeDecay:   40,

		TempoWeight:  0.5,
		EnergyWeight: 0.4,

		OverlapBandMin:      138,
		OverlapBandMax:      143,
		DampenWithoutEnergy: 0.3,
		DampenWeakEnergy:    0.2,
		WeakEnergyFit:       0.7,

		AcceptanceFloor: 30,
		TieBreakMargin:  5,
		TopN:            15,

		PlayWeight:      0.6,
		RatingWeight:    0.4,
		RatingScaleMax:  255,
		PreferenceFloor: 0.1,

		CacheExpiry: 7 * 24 * time.Hour,

		Rules: []GenreRule{
			{Slug: "grime", OverlapBand: true, Conflicts: []string{"techno", "trance", "house"}},
			{Slug: "dubstep", OverlapBand: true, Conflicts: []string{"techno", "trance", "house"}},
			{Slug: "jersey-club", OverlapBand: true, Conflicts: []string{"techno", "trance", "psytrance", "soca", "zouk"}},
		},
		Keywords: []Keyword{
			{Name: "garage", Variants: []string{"garage", "ukg"}},
			{Name: "house", Variants: []string{"house"}},
			{Name: "club", Variants: []string{"club"}},
			{Name: "jersey", Variants: []string{"jersey"}},
			{Name: "techno", Variants: []string{"techno"}},
			{Name: "trance", Variants: []string{"trance"}},
			{Name: "dub", Variants: []string{"dub"}},
			{Name: "drum and bass", Variants: []string{"drum and bass", "drum & bass", "drum n bass", "dnb", "d&b"}},
			{Name: "hip hop", Variants: []string{"hip hop", "hip-hop", "hiphop", "rap"}},
			{Name: "ambient", Variants: []string{"ambient"}},
		},
	}
}

func (c Config) rule(slug string) (GenreRule, bool) {
	for _, r := range c.Rules {
		if r.Slug == slug {
			return r, true
		}
	}
	return GenreRule{}, false
}

// sharedKeyword returns the first keyword that both strings mention.
func (c Config) sharedKeyword(tag, name string) (string, bool) {
	for _, k := range c.Keywords {
		if mentions(tag, k.Variants) && mentions(name, k.Variants) {
			return k.Name, true
		}
	}
	return "", false
}

func mentions(s string, variants []string) bool {
	for _, v := range variants {
		if containsWord(s, v) {
			return true
		}
	}
	return false
}

// containsWord reports whether w occurs in s delimited by non-alphanumeric
// characters, so "rap" matches "road rap" but not "trap".
func containsWord(s, w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i+len(w) <= len(s); {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(w)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		i = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Fingerprint identifies the configuration a result was computed with. Cached
// results computed under a different configuration are stale.
func (c Config) Fingerprint() string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
