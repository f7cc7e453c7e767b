package overlay

import (
	"cmp"
	"slices"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// Stats summarizes a snapshot.
type Stats struct {
	NodeCount      int     `json:"node_count"`
	EdgeCount      int     `json:"edge_count"`
	Density        float64 `json:"density"`
	ComponentCount int     `json:"component_count"`
}

// ComputeStats returns the node count, edge count, density and number of
// weakly connected components of snap.
//
// Density is 2*E / (N*(N-1)) and 0 for graphs with fewer than two nodes.
func ComputeStats(snap graph.Snapshot) Stats {
	n := snap.NodeCount()
	e := snap.EdgeCount()
	st := Stats{NodeCount: n, EdgeCount: e, ComponentCount: Components(snap)}
	if n > 1 {
		st.Density = 2 * float64(e) / float64(n*(n-1))
	}
	return st
}

// Components counts weakly connected components with union-find over the
// undirected edge set. Edges whose endpoints are missing are ignored.
func Components(snap graph.Snapshot) int {
	uf := newUnionFind(snap.NodeIDs())
	for _, e := range snap.Edges {
		uf.union(e.Source, e.Target)
	}
	return uf.sets
}

// Degree is the number of edges touching a node, in either direction.
type Degree struct {
	ID     string
	Degree int
}

// Degrees returns every node's degree, highest first and ties by id.
// Self-loops count twice.
func Degrees(snap graph.Snapshot) []Degree {
	counts := make(map[string]int, snap.NodeCount())
	for id := range snap.Nodes {
		counts[id] = 0
	}
	for _, e := range snap.Edges {
		if _, ok := counts[e.Source]; ok {
			counts[e.Source]++
		}
		if _, ok := counts[e.Target]; ok {
			counts[e.Target]++
		}
	}
	out := make([]Degree, 0, len(counts))
	for id, d := range counts {
		out = append(out, Degree{ID: id, Degree: d})
	}
	slices.SortFunc(out, func(a, b Degree) int {
		if c := cmp.Compare(b.Degree, a.Degree); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// =============================================================================
// Union-Find
// =============================================================================

type unionFind struct {
	parent map[string]string
	rank   map[string]int
	sets   int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
		sets:   len(ids),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(x string) string {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b string) {
	if _, ok := uf.parent[a]; !ok {
		return
	}
	if _, ok := uf.parent[b]; !ok {
		return
	}
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	uf.sets--
}
