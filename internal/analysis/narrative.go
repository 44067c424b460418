package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

const (
	maxDescendantNames = 5
	maxTreeDescendants = 3
	userNodeID         = "user-current"
)

// BuildGenealogy formats a ranked influence list into the genealogy result:
// lineage of the primary genre, its descendants, a narrative and a tree
// export. It does no scoring of its own.
func BuildGenealogy(influences []Influence, genres Genres, trackCount int, now time.Time) Genealogy {
	if len(influences) == 0 {
		return Genealogy{Available: false, Reason: reasonUnclassifiable}
	}

	primary := influences[0]
	lineage := genres.Lineage(primary.GenreID)
	descendants := genres.Descendants(primary.GenreID)

	g := Genealogy{
		Available:         true,
		Influences:        influences,
		PrimaryGenre:      primary.GenreName,
		MatchScorePercent: primary.Percentage,
		Narrative:         narrative(influences, lineage, genres, trackCount),
	}
	for _, n := range lineage {
		g.Lineage = append(g.Lineage, n.Name)
	}
	for i, n := range descendants {
		if i == maxDescendantNames {
			break
		}
		g.Descendants = append(g.Descendants, n.Name)
	}
	if len(lineage) > 0 {
		g.Tree = buildTree(lineage, descendants, primary, now)
	}
	return g
}

func narrative(influences []Influence, lineage []taxonomy.GenreNode, genres Genres, trackCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your taste spans %d distinct influences across %d tracks:\n\n", len(influences), trackCount)
	for i, inf := range influences {
		fmt.Fprintf(&b, "%d. %s (%.1f%%)", i+1, inf.GenreName, inf.Percentage)
		if n, ok := genres.Node(inf.GenreID); ok && n.CulturalContext != "" {
			fmt.Fprintf(&b, " - %s", n.CulturalContext)
		}
		b.WriteString("\n")
	}

	if len(lineage) > 1 {
		names := make([]string, 0, len(lineage))
		for _, n := range lineage {
			names = append(names, n.Name)
		}
		fmt.Fprintf(&b, "\nPrimary lineage traces: %s", strings.Join(names, " → "))
	}
	return b.String()
}

func genreNodeID(id int64) string {
	return "genre-" + strconv.FormatInt(id, 10)
}

func buildTree(lineage, descendants []taxonomy.GenreNode, primary Influence, now time.Time) *TreeExport {
	tree := &TreeExport{}

	for i, n := range lineage {
		kind := NodeAncestor
		if i == len(lineage)-1 {
			kind = NodeCurrent
		}
		tree.Nodes = append(tree.Nodes, TreeNode{
			ID:          genreNodeID(n.ID),
			Label:       n.Name,
			Era:         n.Decade(),
			Type:        kind,
			Description: n.Description,
		})
		if i > 0 {
			tree.Edges = append(tree.Edges, TreeEdge{
				From:  genreNodeID(lineage[i-1].ID),
				To:    genreNodeID(n.ID),
				Label: eraLabel(n),
			})
		}
	}

	current := lineage[len(lineage)-1]
	year := now.Year()
	tree.Nodes = append(tree.Nodes, TreeNode{
		ID:          userNodeID,
		Label:       fmt.Sprintf("Your Taste (%d)", year),
		Era:         fmt.Sprintf("%ds", year/10*10),
		Type:        NodeUser,
		Description: fmt.Sprintf("%.1f%% match to %s", primary.Percentage, current.Name),
	})
	tree.Edges = append(tree.Edges, TreeEdge{
		From:  genreNodeID(current.ID),
		To:    userNodeID,
		Label: strconv.Itoa(year),
	})

	for i, n := range descendants {
		if i == maxTreeDescendants {
			break
		}
		tree.Nodes = append(tree.Nodes, TreeNode{
			ID:          genreNodeID(n.ID),
			Label:       n.Name,
			Era:         n.Decade(),
			Type:        NodeDescendant,
			Description: n.Description,
		})
		tree.Edges = append(tree.Edges, TreeEdge{
			From:  userNodeID,
			To:    genreNodeID(n.ID),
			Label: eraLabel(n),
			Style: "dashed",
		})
	}
	return tree
}

func eraLabel(n taxonomy.GenreNode) string {
	if n.EraStart == 0 {
		return ""
	}
	return strconv.Itoa(n.EraStart)
}
