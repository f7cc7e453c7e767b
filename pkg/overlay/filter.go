package overlay

import (
	"strings"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// Result is the output of [Filter].
type Result struct {
	Query        string       // normalized query
	VisibleNodes []string     // matching node ids, sorted
	Edges        []graph.Edge // every edge of the snapshot, sorted by id
}

// IsVisible reports whether id is in the visible set.
func (r Result) IsVisible(id string) bool {
	for _, v := range r.VisibleNodes {
		if v == id {
			return true
		}
	}
	return false
}

// Filter returns the ids of nodes whose label or id contains query,
// ignoring case. A blank query matches every node.
func Filter(snap graph.Snapshot, query string) Result {
	q := strings.ToLower(strings.TrimSpace(query))
	res := Result{Query: q, VisibleNodes: []string{}, Edges: snap.SortedEdges()}
	for _, n := range snap.SortedNodes() {
		if q == "" || Matches(n, q) {
			res.VisibleNodes = append(res.VisibleNodes, n.ID)
		}
	}
	return res
}

// Matches reports whether the node's label or id contains the lower-cased
// query.
func Matches(n graph.Node, q string) bool {
	return strings.Contains(strings.ToLower(n.Label), q) ||
		strings.Contains(strings.ToLower(n.ID), q)
}
