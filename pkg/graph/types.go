package graph

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultNodeType is the type assigned to nodes whose id carries no
// "prefix:" hint and whose endpoint did not declare a type.
const DefaultNodeType = "entity"

// DefaultWeight is the weight of an edge created from a triple without one.
const DefaultWeight = 1.0

// =============================================================================
// Position
// =============================================================================

// Position is a 2D coordinate in layout space.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Positions maps node ids to coordinates.
type Positions map[string]Position

// Clone returns a copy of the map. A nil map clones to an empty map.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	maps.Copy(out, p)
	return out
}

// =============================================================================
// Node
// =============================================================================

// Node is a graph entity. ID is a stable external identifier and is never
// regenerated.
type Node struct {
	ID       string    `json:"id" bson:"id"`
	Label    string    `json:"label,omitempty" bson:"label,omitempty"`
	Type     string    `json:"type,omitempty" bson:"type,omitempty"`
	Position *Position `json:"position,omitempty" bson:"position,omitempty"`
	Locked   bool      `json:"locked,omitempty" bson:"locked,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// HasPosition reports whether the node has been placed.
func (n *Node) HasPosition() bool { return n.Position != nil }

// clone returns a copy that shares no memory with n.
func (n Node) clone() Node {
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	return n
}

// InferType derives a node type from its id. Ids of the form "P:alice"
// yield "P"; anything else yields [DefaultNodeType].
func InferType(id string) string {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok || prefix == "" {
		return DefaultNodeType
	}
	return prefix
}

// stubNode creates the placeholder node used when an edge references an id
// the store has not seen yet.
func stubNode(id string) Node {
	return Node{ID: id, Label: id, Type: InferType(id)}
}

// =============================================================================
// Edge
// =============================================================================

// Edge is a directed, labeled relation between two nodes.
type Edge struct {
	ID     string  `json:"id" bson:"id"`
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Label  string  `json:"label" bson:"label"`
	Weight float64 `json:"weight" bson:"weight"`
}

// EdgeID returns the deterministic id of the relation (source, label, target).
// Two fetches describing the same relation always produce the same id, so a
// repeated fetch updates the edge rather than duplicating it.
//
// The id is "source-label-target". When source or label contain a hyphen
// the joined form no longer identifies a single relation ("a-b","c" and
// "a","b-c" both join to "a-b-c-..."), so a short digest of the parts is
// appended.
func EdgeID(source, label, target string) string {
	id := source + "-" + label + "-" + target
	if !strings.Contains(source, "-") && !strings.Contains(label, "-") {
		return id
	}
	sum := sha256.Sum256([]byte(source + "\x00" + label + "\x00" + target))
	return id + "~" + hex.EncodeToString(sum[:4])
}

// =============================================================================
// RelationTriple - Neighbor Service Record
// =============================================================================

// Endpoint identifies one side of a relation. ID takes precedence over Name
// when resolving the node id; Name doubles as the display label.
type Endpoint struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// NodeID resolves the endpoint's node id: ID if set, otherwise Name.
func (e *Endpoint) NodeID() string {
	if e == nil {
		return ""
	}
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	return strings.TrimSpace(e.Name)
}

// RelationTriple is a raw relation record as returned by the neighbor service.
type RelationTriple struct {
	From   *Endpoint `json:"from"`
	To     *Endpoint `json:"to"`
	Rel    string    `json:"rel"`
	Weight *float64  `json:"weight,omitempty"`
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is an immutable copy of the store contents.
type Snapshot struct {
	Nodes map[string]Node `json:"nodes"`
	Edges map[string]Edge `json:"edges"`
}

// EmptySnapshot returns a snapshot with no nodes and no edges.
func EmptySnapshot() Snapshot {
	return Snapshot{Nodes: map[string]Node{}, Edges: map[string]Edge{}}
}

// NodeCount returns the number of nodes.
func (s Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges.
func (s Snapshot) EdgeCount() int { return len(s.Edges) }

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// SortedNodes returns the nodes ordered by id, for deterministic iteration.
func (s Snapshot) SortedNodes() []Node {
	nodes := slices.Collect(maps.Values(s.Nodes))
	slices.SortFunc(nodes, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	return nodes
}

// SortedEdges returns the edges ordered by id, for deterministic iteration.
func (s Snapshot) SortedEdges() []Edge {
	edges := slices.Collect(maps.Values(s.Edges))
	slices.SortFunc(edges, func(a, b Edge) int { return cmp.Compare(a.ID, b.ID) })
	return edges
}

// NodeIDs returns all node ids in sorted order.
func (s Snapshot) NodeIDs() []string {
	return slices.Sorted(maps.Keys(s.Nodes))
}

// Positions returns the coordinates of every placed node.
func (s Snapshot) Positions() Positions {
	out := make(Positions, len(s.Nodes))
	for id, n := range s.Nodes {
		if n.Position != nil {
			out[id] = *n.Position
		}
	}
	return out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make(map[string]Node, len(s.Nodes)),
		Edges: make(map[string]Edge, len(s.Edges)),
	}
	for id, n := range s.Nodes {
		out.Nodes[id] = n.clone()
	}
	maps.Copy(out.Edges, s.Edges)
	return out
}
