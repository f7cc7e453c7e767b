package graph

import (
	"fmt"
	"math"
	"strings"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
)

// Warning describes a triple that Merge skipped.
type Warning struct {
	Index  int    // position of the triple in the merged slice
	Reason string // why it was skipped
}

// String formats the warning for logs and notifications.
func (w Warning) String() string {
	return fmt.Sprintf("triple %d: %s", w.Index, w.Reason)
}

// Err returns the warning as a MALFORMED_DATA error.
func (w Warning) Err() error {
	return lserrors.New(lserrors.ErrCodeMalformedData, "%s", w.String())
}

// MergeReport summarizes the effect of a Merge call.
type MergeReport struct {
	NodesAdded   int
	NodesUpdated int
	EdgesAdded   int
	EdgesUpdated int
	Warnings     []Warning
}

// Changed reports whether the merge modified the store.
func (r MergeReport) Changed() bool {
	return r.NodesAdded+r.NodesUpdated+r.EdgesAdded+r.EdgesUpdated > 0
}

// Merge folds relation triples into the store and returns the resulting
// snapshot. Node ids are resolved as endpoint.ID, falling back to
// endpoint.Name. Missing nodes are created with an inferred type; edges are
// inserted or updated by their deterministic id.
//
// Triples missing an endpoint, an endpoint id/name, or a relation are
// skipped and recorded in the report. Merge never fails as a whole.
//
// The whole call runs under the store lock, so concurrent merges are
// applied one after the other.
func (s *Store) Merge(triples []RelationTriple) (Snapshot, MergeReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report MergeReport
	for i, t := range triples {
		if reason := validateTriple(t); reason != "" {
			report.Warnings = append(report.Warnings, Warning{Index: i, Reason: reason})
			continue
		}
		from := s.mergeEndpoint(t.From, &report)
		to := s.mergeEndpoint(t.To, &report)
		if reason := s.mergeEdge(from, to, t, &report); reason != "" {
			report.Warnings = append(report.Warnings, Warning{Index: i, Reason: reason})
		}
	}
	return s.snapshotLocked(), report
}

func validateTriple(t RelationTriple) string {
	switch {
	case t.From == nil:
		return "missing from endpoint"
	case t.To == nil:
		return "missing to endpoint"
	case t.From.NodeID() == "":
		return "from endpoint has neither id nor name"
	case t.To.NodeID() == "":
		return "to endpoint has neither id nor name"
	case strings.TrimSpace(t.Rel) == "":
		return "missing rel"
	case t.Weight != nil && (math.IsNaN(*t.Weight) || math.IsInf(*t.Weight, 0)):
		return "weight is not a finite number"
	}
	return ""
}

// mergeEndpoint inserts the endpoint's node or updates its attributes.
// Only attributes present on the endpoint overwrite stored values, so a
// bare-id reference never erases a label learned from an earlier fetch.
func (s *Store) mergeEndpoint(ep *Endpoint, report *MergeReport) string {
	id := ep.NodeID()
	name := strings.TrimSpace(ep.Name)
	typ := strings.TrimSpace(ep.Type)

	n, ok := s.nodes[id]
	if !ok {
		created := Node{ID: id, Label: id, Type: InferType(id)}
		if name != "" {
			created.Label = name
		}
		if typ != "" {
			created.Type = typ
		}
		s.nodes[id] = &created
		report.NodesAdded++
		return id
	}

	changed := false
	if name != "" && n.Label != name {
		n.Label = name
		changed = true
	}
	if typ != "" && n.Type != typ {
		n.Type = typ
		changed = true
	}
	if changed {
		report.NodesUpdated++
	}
	return id
}

// mergeEdge inserts or updates the triple's edge. It returns a non-empty
// reason when the id is already held by a different relation; the stored
// edge is then left untouched.
func (s *Store) mergeEdge(from, to string, t RelationTriple, report *MergeReport) string {
	rel := strings.TrimSpace(t.Rel)
	id := EdgeID(from, rel, to)
	e, ok := s.edges[id]
	if !ok {
		weight := DefaultWeight
		if t.Weight != nil {
			weight = *t.Weight
		}
		s.edges[id] = &Edge{ID: id, Source: from, Target: to, Label: rel, Weight: weight}
		report.EdgesAdded++
		return ""
	}
	if e.Source != from || e.Label != rel || e.Target != to {
		return fmt.Sprintf("edge id %q already used by %s-%s->%s", id, e.Source, e.Label, e.Target)
	}
	if t.Weight != nil && e.Weight != *t.Weight {
		e.Weight = *t.Weight
		report.EdgesUpdated++
	}
	return ""
}
