package taxonomy

import "fmt"

// GenreNode is one entry of the genre tree. Nodes are read-only once the
// taxonomy has been built.
type GenreNode struct {
	ID   int64
	Name string
	Slug string
	// ParentID is 0 for root genres.
	ParentID int64

	EraStart int
	// EraEnd is 0 while the genre is still active.
	EraEnd int

	TempoMin  float64
	TempoMax  float64
	EnergyMin float64
	EnergyMax float64

	Description     string
	OriginLocation  string
	CulturalContext string
}

func (n GenreNode) IsRoot() bool {
	return n.ParentID == 0
}

func (n GenreNode) TempoMidpoint() float64 {
	return (n.TempoMin + n.TempoMax) / 2
}

func (n GenreNode) TempoRange() float64 {
	return n.TempoMax - n.TempoMin
}

func (n GenreNode) EnergyMidpoint() float64 {
	return (n.EnergyMin + n.EnergyMax) / 2
}

// Decade returns the decade the genre emerged in, e.g. "1980s".
func (n GenreNode) Decade() string {
	if n.EraStart == 0 {
		return ""
	}
	return fmt.Sprintf("%ds", n.EraStart/10*10)
}

// Era formats the active years of the genre, e.g. "1985-1995" or "2002-present".
func (n GenreNode) Era() string {
	if n.EraStart == 0 {
		return ""
	}
	if n.EraEnd == 0 {
		return fmt.Sprintf("%d-present", n.EraStart)
	}
	return fmt.Sprintf("%d-%d", n.EraStart, n.EraEnd)
}
