// Package views saves and restores named snapshots of the graph together
// with their layout.
//
// A [Record] is self-contained: the full node and edge set plus a position
// for every placed node. [Service.Save] never sends a filtered subset, so a
// reload reproduces the picture exactly. [Service.Load] validates the
// record, rebuilds the store in one atomic step and locks every restored
// node so the next layout pass does not disturb the arrangement.
//
// Storage is pluggable through [Repository]:
//
//   - [MemoryRepository]: process-local, for tests and demos
//   - [FileRepository]: one JSON file per view
//   - [RedisRepository]: go-redis, JSON value plus a sorted index
//   - [MongoRepository]: one document per view
//   - [BadgerRepository]: embedded key-value store
//
// The HTTP client in pkg/backend implements Repository against a remote
// server, which in turn stores views in one of the repositories above.
package views

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// ErrNotFound is returned by repositories when a view id does not exist.
var ErrNotFound = errors.New("view not found")

// Record is a persisted view.
type Record struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	Nodes     []graph.Node    `json:"nodes" bson:"nodes"`
	Edges     []graph.Edge    `json:"edges" bson:"edges"`
	Positions graph.Positions `json:"positions" bson:"positions"`
	CreatedAt time.Time       `json:"created_at,omitzero" bson:"created_at"`
}

// Summary identifies a view in listings.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at,omitzero" bson:"created_at"`
}

// Summary returns the listing entry of r.
func (r Record) Summary() Summary {
	return Summary{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

// Repository stores view records. Create assigns the id; Get returns
// ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, rec Record) (string, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Summary, error)
}

// Violation describes a part of a record that breaks its consistency rules.
type Violation struct {
	Kind   string `json:"kind"` // "node", "edge" or "position"
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Kind + " " + v.ID + ": " + v.Reason
}

// Validate reports nodes without ids, duplicate node ids, and edges whose
// endpoints are not in the record's own node list.
func (r Record) Validate() []Violation {
	var out []Violation
	ids := make(map[string]bool, len(r.Nodes))
	for i, n := range r.Nodes {
		switch {
		case n.ID == "":
			out = append(out, Violation{Kind: "node", ID: "#" + strconv.Itoa(i), Reason: "missing id"})
		case ids[n.ID]:
			out = append(out, Violation{Kind: "node", ID: n.ID, Reason: "duplicate id"})
		default:
			ids[n.ID] = true
		}
	}
	for _, e := range r.Edges {
		id := e.ID
		if id == "" {
			id = graph.EdgeID(e.Source, e.Label, e.Target)
		}
		if !ids[e.Source] {
			out = append(out, Violation{Kind: "edge", ID: id, Reason: "source " + e.Source + " not in view"})
		} else if !ids[e.Target] {
			out = append(out, Violation{Kind: "edge", ID: id, Reason: "target " + e.Target + " not in view"})
		}
	}
	return out
}

// sortSummaries orders summaries oldest first, ties by id.
func sortSummaries(s []Summary) {
	slices.SortFunc(s, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
