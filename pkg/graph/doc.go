// Package graph is the canonical, deduplicated node/edge model of linkscope.
//
// Every other component (layout, selection, overlays, view persistence)
// reads from or writes to a single [Store]. No component keeps its own
// copy of the graph: readers receive deep-copied [Snapshot] values.
//
// # Core Types
//
//   - [Node]: entity with a stable external id (e.g. "P:alice"), a label,
//     a type, an optional position and a locked flag
//   - [Edge]: relation whose id is [EdgeID](source, label, target)
//   - [RelationTriple]: raw record returned by the neighbor service
//   - [Snapshot]: immutable copy of the store contents
//   - [Positions]: node id → coordinate map produced by layouts
//
// # Merging
//
// [Store.Merge] folds triples into the store:
//
//	s := graph.NewStore()
//	snap, report := s.Merge([]graph.RelationTriple{
//	    {From: &graph.Endpoint{ID: "P:alice"}, To: &graph.Endpoint{ID: "P:bob"}, Rel: "knows"},
//	})
//	// snap has 2 nodes and the edge "P:alice-knows-P:bob"
//
// Merge is idempotent and commutative on structure. Attributes carried by a
// triple (name, type, weight) overwrite older values, so conflicting updates
// are last-write-wins. Triples missing required fields are skipped and
// listed in [MergeReport.Warnings]; Merge never fails as a whole.
//
// # Invariants
//
//  1. Node ids are unique; re-adding an id updates the node.
//  2. Every edge endpoint resolves to a node of the same store. Unknown
//     endpoints become stub nodes.
//  3. Merge is idempotent and commutative on structure.
//  4. A locked node keeps its position through [Store.ApplyPositions];
//     only [Store.MoveNode] or unlocking changes it.
//
// # Concurrency
//
// Store is safe for concurrent use. Each mutating call holds the store lock
// for its whole duration, so two merges arriving from concurrent expansions
// are applied atomically one after the other.
package graph
