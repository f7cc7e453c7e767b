// Package overlay computes derived, read-only views over a graph snapshot.
//
// [Filter] narrows the visible node set by a case-insensitive substring
// query; [ComputeStats] reports node/edge counts, density and the number of
// connected components. Neither function mutates its input, so clearing a
// filter always restores the full view.
//
// Filtering keeps every edge, even when one of its endpoints is hidden. A
// renderer may therefore draw an edge that dangles toward a filtered-out
// node.
package overlay
