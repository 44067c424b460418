// Package taxonomy holds the hierarchical genre tree used to classify a
// catalog. The tree is built once from seed data and only queried afterwards.
package taxonomy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// Taxonomy is an arena of genre nodes indexed by ID. It is safe for
// concurrent readers since nothing mutates it after New returns.
type Taxonomy struct {
	nodes    map[int64]GenreNode
	bySlug   map[string]int64
	children map[int64][]int64
	roots    []int64
	ids      []int64
}

// TreeNode is a node of the full hierarchy returned by FullTree.
type TreeNode struct {
	GenreNode
	Children []TreeNode
}

// New builds a taxonomy, rejecting duplicate IDs or slugs, orphaned parents and
// parent cycles.
func New(nodes []GenreNode) (*Taxonomy, error) {
	t := &Taxonomy{
		nodes:    make(map[int64]GenreNode, len(nodes)),
		bySlug:   make(map[string]int64, len(nodes)),
		children: make(map[int64][]int64),
	}

	for _, n := range nodes {
		if n.ID <= 0 {
			return nil, fmt.Errorf("%w: genre %q has non-positive id %d", ErrInvalidTaxonomy, n.Slug, n.ID)
		}
		if n.Slug == "" {
			return nil, fmt.Errorf("%w: genre %d has an empty slug", ErrInvalidTaxonomy, n.ID)
		}
		if _, exists := t.nodes[n.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidTaxonomy, n.ID)
		}
		if _, exists := t.bySlug[n.Slug]; exists {
			return nil, fmt.Errorf("%w: duplicate slug %q", ErrInvalidTaxonomy, n.Slug)
		}
		t.nodes[n.ID] = n
		t.bySlug[n.Slug] = n.ID
		t.ids = append(t.ids, n.ID)
	}

	for _, id := range t.ids {
		n := t.nodes[id]
		if n.IsRoot() {
			t.roots = append(t.roots, id)
			continue
		}
		if _, ok := t.nodes[n.ParentID]; !ok {
			return nil, fmt.Errorf("%w: genre %q references missing parent %d", ErrInvalidTaxonomy, n.Slug, n.ParentID)
		}
		t.children[n.ParentID] = append(t.children[n.ParentID], id)
	}

	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}

	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	sort.Slice(t.roots, func(i, j int) bool {
		return t.nodes[t.roots[i]].Name < t.nodes[t.roots[j]].Name
	})
	for parent, kids := range t.children {
		sort.Slice(kids, func(i, j int) bool {
			a, b := t.nodes[kids[i]], t.nodes[kids[j]]
			if a.EraStart != b.EraStart {
				return a.EraStart < b.EraStart
			}
			return a.ID < b.ID
		})
		t.children[parent] = kids
	}

	return t, nil
}

func (t *Taxonomy) checkAcyclic() error {
	// Every walk upward must hit a root within len(nodes) steps.
	for _, id := range t.ids {
		current := t.nodes[id]
		for steps := 0; !current.IsRoot(); steps++ {
			if steps > len(t.nodes) {
				return fmt.Errorf("%w: parent cycle through %q", ErrInvalidTaxonomy, t.nodes[id].Slug)
			}
			current = t.nodes[current.ParentID]
		}
	}
	return nil
}

func (t *Taxonomy) Len() int {
	return len(t.nodes)
}

// Node returns the genre with the given ID. The boolean is false when the ID
// is unknown, which callers treat as a data gap.
func (t *Taxonomy) Node(id int64) (GenreNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Taxonomy) NodeBySlug(slug string) (GenreNode, bool) {
	id, ok := t.bySlug[slug]
	if !ok {
		return GenreNode{}, false
	}
	return t.nodes[id], true
}

// Lookup resolves a numeric ID or a slug.
func (t *Taxonomy) Lookup(idOrSlug string) (GenreNode, bool) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil {
		return t.Node(id)
	}
	return t.NodeBySlug(idOrSlug)
}

// All returns every node ordered by ID.
func (t *Taxonomy) All() []GenreNode {
	out := make([]GenreNode, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// Children returns the direct descendants of a node ordered by era start.
func (t *Taxonomy) Children(id int64) []GenreNode {
	kids := t.children[id]
	out := make([]GenreNode, 0, len(kids))
	for _, k := range kids {
		out = append(out, t.nodes[k])
	}
	return out
}

// Lineage returns the path from the root down to the node, inclusive. An
// unknown ID yields an empty lineage.
func (t *Taxonomy) Lineage(id int64) []GenreNode {
	current, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var lineage []GenreNode
	for {
		lineage = append(lineage, current)
		if current.IsRoot() {
			break
		}
		current = t.nodes[current.ParentID]
	}
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}
	return lineage
}

// Descendants walks all children transitively, breadth first.
func (t *Taxonomy) Descendants(id int64) []GenreNode {
	var out []GenreNode
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, k := range t.children[current] {
			out = append(out, t.nodes[k])
			queue = append(queue, k)
		}
	}
	return out
}

// Roots returns the genres without a parent ordered by name.
func (t *Taxonomy) Roots() []GenreNode {
	out := make([]GenreNode, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.nodes[id])
	}
	return out
}

func (t *Taxonomy) FullTree() []TreeNode {
	var build func(n GenreNode) TreeNode
	build = func(n GenreNode) TreeNode {
		tn := TreeNode{GenreNode: n}
		for _, c := range t.Children(n.ID) {
			tn.Children = append(tn.Children, build(c))
		}
		return tn
	}

	var out []TreeNode
	for _, r := range t.Roots() {
		out = append(out, build(r))
	}
	return out
}

// FindBySonicSignature returns up to 10 genres whose tempo and energy ranges
// both contain the given values, closest midpoints first.
func (t *Taxonomy) FindBySonicSignature(tempo, energy float64) []GenreNode {
	type candidate struct {
		node     GenreNode
		distance float64
	}
	var candidates []candidate
	for _, n := range t.All() {
		if tempo < n.TempoMin || tempo > n.TempoMax {
			continue
		}
		if energy < n.EnergyMin || energy > n.EnergyMax {
			continue
		}
		candidates = append(candidates, candidate{
			node:     n,
			distance: math.Abs(n.TempoMidpoint()-tempo) + math.Abs(n.EnergyMidpoint()-energy),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}
	out := make([]GenreNode, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.node)
	}
	return out
}
