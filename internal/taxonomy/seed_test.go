package taxonomy

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultTaxonomy(t *testing.T) {
	tax, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	grime, ok := tax.NodeBySlug("grime")
	if !ok {
		t.Fatal("default taxonomy has no grime")
	}
	if got, want := slugs(tax.Lineage(grime.ID)), "reggae,dub,uk-garage,grime"; got != want {
		t.Errorf("Lineage(grime) = %s, want %s", got, want)
	}
	if grime.TempoMin != 138 || grime.TempoMax != 145 {
		t.Errorf("grime tempo = %v-%v", grime.TempoMin, grime.TempoMax)
	}
}

func TestLoadSeedsValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing slug",
			yaml: `
genres:
  - name: House
    tempo_min: 115
    tempo_max: 130
    energy_min: 0.6
    energy_max: 0.85
`,
		},
		{
			name: "inverted tempo",
			yaml: `
genres:
  - name: House
    slug: house
    tempo_min: 130
    tempo_max: 115
    energy_min: 0.6
    energy_max: 0.85
`,
		},
		{
			name: "energy out of range",
			yaml: `
genres:
  - name: House
    slug: house
    tempo_min: 115
    tempo_max: 130
    energy_min: 0.6
    energy_max: 1.5
`,
		},
		{
			name: "self parent",
			yaml: `
genres:
  - name: House
    slug: house
    parent: house
    tempo_min: 115
    tempo_max: 130
    energy_min: 0.6
    energy_max: 0.85
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeeds(strings.NewReader(tt.yaml))
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("LoadSeeds() error = %v, want ErrInvalidSeed", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	seeds := []Seed{
		{Name: "Deep House", Slug: "deep-house", Parent: "house", TempoMin: 115, TempoMax: 125},
		{Name: "House", Slug: "house", TempoMin: 115, TempoMax: 130},
	}

	nodes, err := Resolve(seeds)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if nodes[0].ParentID != nodes[1].ID {
		t.Errorf("deep-house parent = %d, want %d", nodes[0].ParentID, nodes[1].ID)
	}

	_, err = Resolve([]Seed{{Name: "Grime", Slug: "grime", Parent: "uk-garage"}})
	if !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Resolve() with unknown parent error = %v, want ErrInvalidSeed", err)
	}

	_, err = Resolve([]Seed{{Name: "A", Slug: "a"}, {Name: "B", Slug: "a"}})
	if !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Resolve() with duplicate slug error = %v, want ErrInvalidSeed", err)
	}
}
