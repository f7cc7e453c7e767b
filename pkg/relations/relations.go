// Package relations indexes a static dataset of relation triples by node so
// it can answer neighbor queries. It backs the reference server and lets
// the explorer run offline against a local file.
//
// A dataset file is either a JSON array of triples or JSON Lines with one
// triple per line:
//
//	[{"from": {"id": "P:alice"}, "to": {"name": "Acme", "type": "O"}, "rel": "works_at", "weight": 0.8}]
package relations

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// Dataset is an immutable, node-indexed set of triples. It is safe for
// concurrent use.
type Dataset struct {
	triples []graph.RelationTriple
	byNode  map[string][]int
}

// New indexes triples. Triples whose endpoints cannot be resolved are kept
// in Len but never returned by Neighbors.
func New(triples []graph.RelationTriple) *Dataset {
	d := &Dataset{
		triples: slices.Clone(triples),
		byNode:  make(map[string][]int),
	}
	for i, t := range d.triples {
		from, to := t.From.NodeID(), t.To.NodeID()
		if from != "" {
			d.byNode[from] = append(d.byNode[from], i)
		}
		if to != "" && to != from {
			d.byNode[to] = append(d.byNode[to], i)
		}
	}
	return d
}

// Load reads a dataset from r, accepting a JSON array or JSON Lines.
func Load(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return New(nil), nil
	}
	if err != nil {
		return nil, err
	}

	var triples []graph.RelationTriple
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&triples); err != nil {
			return nil, fmt.Errorf("decode dataset: %w", err)
		}
		return New(triples), nil
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var t graph.RelationTriple
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("decode dataset line %d: %w", line, err)
		}
		triples = append(triples, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return New(triples), nil
}

// LoadFile reads a dataset from path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// Len returns the number of triples in the dataset.
func (d *Dataset) Len() int { return len(d.triples) }

// Nodes returns every resolvable node id, sorted.
func (d *Dataset) Nodes() []string {
	ids := make([]string, 0, len(d.byNode))
	for id := range d.byNode {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Has reports whether any triple touches id.
func (d *Dataset) Has(id string) bool {
	_, ok := d.byNode[id]
	return ok
}

// Neighbors returns up to limit triples in which nodeID appears on either
// side, in dataset order. A limit of 0 or less returns all of them. An
// unknown node yields an empty slice.
func (d *Dataset) Neighbors(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := d.byNode[nodeID]
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]graph.RelationTriple, len(idx))
	for i, j := range idx {
		out[i] = cloneTriple(d.triples[j])
	}
	return out, nil
}

func cloneTriple(t graph.RelationTriple) graph.RelationTriple {
	if t.From != nil {
		ep := *t.From
		t.From = &ep
	}
	if t.To != nil {
		ep := *t.To
		t.To = &ep
	}
	if t.Weight != nil {
		w := *t.Weight
		t.Weight = &w
	}
	return t
}
