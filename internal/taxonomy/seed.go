package taxonomy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSeed = errors.New("invalid genre seed")

//go:embed seed.yaml
var defaultSeed []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Seed is one genre as written in a seed file. Parents are referenced by slug.
type Seed struct {
	Name            string  `yaml:"name" validate:"required"`
	Slug            string  `yaml:"slug" validate:"required"`
	Parent          string  `yaml:"parent,omitempty" validate:"omitempty,nefield=Slug"`
	EraStart        int     `yaml:"era_start" validate:"gte=0"`
	EraEnd          int     `yaml:"era_end,omitempty" validate:"omitempty,gtefield=EraStart"`
	TempoMin        float64 `yaml:"tempo_min" validate:"gte=0"`
	TempoMax        float64 `yaml:"tempo_max" validate:"gtfield=TempoMin"`
	EnergyMin       float64 `yaml:"energy_min" validate:"gte=0,lte=1"`
	EnergyMax       float64 `yaml:"energy_max" validate:"gte=0,lte=1,gtefield=EnergyMin"`
	Description     string  `yaml:"description,omitempty"`
	OriginLocation  string  `yaml:"origin_location,omitempty"`
	CulturalContext string  `yaml:"cultural_context,omitempty"`
}

type seedFile struct {
	Genres []Seed `yaml:"genres" validate:"required,dive"`
}

// LoadSeeds decodes and validates a YAML seed file.
func LoadSeeds(r io.Reader) ([]Seed, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return f.Genres, nil
}

// Resolve assigns IDs in file order and links parents by slug.
func Resolve(seeds []Seed) ([]GenreNode, error) {
	ids := make(map[string]int64, len(seeds))
	for i, s := range seeds {
		if _, exists := ids[s.Slug]; exists {
			return nil, fmt.Errorf("%w: duplicate slug %q", ErrInvalidSeed, s.Slug)
		}
		ids[s.Slug] = int64(i + 1)
	}

	nodes := make([]GenreNode, 0, len(seeds))
	for _, s := range seeds {
		n := GenreNode{
			ID:              ids[s.Slug],
			Name:            s.Name,
			Slug:            s.Slug,
			EraStart:        s.EraStart,
			EraEnd:          s.EraEnd,
			TempoMin:        s.TempoMin,
			TempoMax:        s.TempoMax,
			EnergyMin:       s.EnergyMin,
			EnergyMax:       s.EnergyMax,
			Description:     s.Description,
			OriginLocation:  s.OriginLocation,
			CulturalContext: s.CulturalContext,
		}
		if s.Parent != "" {
			parentID, ok := ids[s.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: genre %q references unknown parent %q", ErrInvalidSeed, s.Slug, s.Parent)
			}
			n.ParentID = parentID
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// DefaultNodes returns the curated taxonomy compiled into the binary.
func DefaultNodes() ([]GenreNode, error) {
	seeds, err := LoadSeeds(bytes.NewReader(defaultSeed))
	if err != nil {
		return nil, err
	}
	return Resolve(seeds)
}

// Default builds the curated taxonomy compiled into the binary.
func Default() (*Taxonomy, error) {
	nodes, err := DefaultNodes()
	if err != nil {
		return nil, err
	}
	return New(nodes)
}
