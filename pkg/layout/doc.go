// Package layout computes node positions for a graph snapshot.
//
// Layout algorithms are pure functions of type [Algorithm]: given the
// nodes, the edges and [Params], they return a position for every node.
// The [Engine] looks algorithms up by name, passes the positions of locked
// nodes in [Params.Fixed], and re-asserts those positions on the result, so
// a locked node never moves no matter what the algorithm does.
//
// # Built-in Algorithms
//
//   - force (default): spring/repulsion simulation, seeded
//   - grid: row-major cells in id order
//   - circle: evenly spaced on one ring
//   - breadthfirst: BFS levels from a root, one row per level
//   - concentric: rings by degree, highest degree innermost
//
// Every built-in is deterministic. The force layout draws its random start
// positions from a PCG generator seeded with [Config.Seed]; unlocked nodes
// that already have a position start from it, which keeps the picture
// stable as the graph grows.
//
// # Caching
//
// [Runner] wraps an Engine with a [cache.Cache]. Results are keyed by a
// hash of the graph structure, the pinned and prior positions, and the
// config, so re-applying an unchanged layout is a cache hit.
//
// [cache.Cache]: github.com/matzehuels/linkscope/pkg/cache.Cache
package layout
