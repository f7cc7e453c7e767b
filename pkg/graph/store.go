package graph

import (
	"errors"
	"sync"
)

var (
	// ErrUnknownNode is returned by lock and move operations when the node
	// id is not present in the store.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidNodeID is returned when a node without an id is upserted.
	ErrInvalidNodeID = errors.New("node ID must not be empty")
)

// Store holds the canonical node and edge set.
//
// The zero value is not usable - use NewStore.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string]*Edge
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// NewStoreFrom creates a store holding a deep copy of snap.
// Edges whose endpoints are missing from snap receive stub nodes.
func NewStoreFrom(snap Snapshot) *Store {
	s := NewStore()
	s.replaceLocked(snap)
	return s
}

// =============================================================================
// Reads
// =============================================================================

// Snapshot returns a deep copy of the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	out := Snapshot{
		Nodes: make(map[string]Node, len(s.nodes)),
		Edges: make(map[string]Edge, len(s.edges)),
	}
	for id, n := range s.nodes {
		out.Nodes[id] = n.clone()
	}
	for id, e := range s.edges {
		out.Edges[id] = *e
	}
	return out
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Has reports whether a node with the given id exists.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Positions returns the coordinates of every placed node.
func (s *Store) Positions() Positions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Positions, len(s.nodes))
	for id, n := range s.nodes {
		if n.Position != nil {
			out[id] = *n.Position
		}
	}
	return out
}

// =============================================================================
// Whole-store Mutations
// =============================================================================

// Reset clears all nodes and edges unconditionally.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]*Node)
	s.edges = make(map[string]*Edge)
}

// Replace swaps the store contents for a deep copy of snap in one step.
// Readers observe either the old or the new contents, never a mix.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(snap)
}

func (s *Store) replaceLocked(snap Snapshot) {
	s.nodes = make(map[string]*Node, len(snap.Nodes))
	s.edges = make(map[string]*Edge, len(snap.Edges))
	for id, n := range snap.Nodes {
		c := n.clone()
		c.ID = id
		s.nodes[id] = &c
	}
	for id, e := range snap.Edges {
		c := e
		c.ID = id
		s.ensureNode(c.Source)
		s.ensureNode(c.Target)
		s.edges[id] = &c
	}
}

// =============================================================================
// Node Mutations
// =============================================================================

// UpsertNodes inserts or replaces the given nodes by id.
// Nodes with an empty id are skipped; the count of skipped nodes is returned
// alongside ErrInvalidNodeID so callers can surface a warning.
func (s *Store) UpsertNodes(nodes []Node) (skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		if n.ID == "" {
			skipped++
			continue
		}
		c := n.clone()
		s.nodes[n.ID] = &c
	}
	if skipped > 0 {
		return skipped, ErrInvalidNodeID
	}
	return 0, nil
}

// UpsertEdges inserts or replaces the given edges. The edge id is always
// recomputed with [EdgeID]. Unknown endpoints receive stub nodes; the number
// of stubs created is returned.
func (s *Store) UpsertEdges(edges []Edge) (stubs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		if s.ensureNode(e.Source) {
			stubs++
		}
		if s.ensureNode(e.Target) {
			stubs++
		}
		c := e
		c.ID = EdgeID(e.Source, e.Label, e.Target)
		s.edges[c.ID] = &c
	}
	return stubs
}

// ensureNode creates a stub node for id if it is missing.
// Reports whether a stub was created. Caller must hold the write lock.
func (s *Store) ensureNode(id string) bool {
	if _, ok := s.nodes[id]; ok {
		return false
	}
	n := stubNode(id)
	s.nodes[id] = &n
	return true
}

// SetLocked sets the locked flag of a node.
func (s *Store) SetLocked(id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	n.Locked = locked
	return nil
}

// ToggleLocked flips the locked flag of a node and returns the new value.
func (s *Store) ToggleLocked(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return false, ErrUnknownNode
	}
	n.Locked = !n.Locked
	return n.Locked, nil
}

// LockAll locks every node in the store.
func (s *Store) LockAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		n.Locked = true
	}
}

// MoveNode places a node explicitly, as a user drag does. Unlike
// ApplyPositions it also moves locked nodes.
func (s *Store) MoveNode(id string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	p := pos
	n.Position = &p
	return nil
}

// ApplyPositions writes layout output into the store. Locked nodes that
// already have a position are left untouched; ids not in the store are
// ignored. Returns the number of nodes moved.
func (s *Store) ApplyPositions(positions Positions) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for id, pos := range positions {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		if n.Locked && n.Position != nil {
			continue
		}
		p := pos
		n.Position = &p
		applied++
	}
	return applied
}
