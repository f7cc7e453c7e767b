package views

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/observability"
)

// LoadReport summarizes a successful Load.
type LoadReport struct {
	ID         string
	Name       string
	Nodes      int
	Edges      int
	Positioned int
	Dropped    []Violation
}

// Service validates and converts between the graph store and view records.
type Service struct {
	repo   Repository
	logger *log.Logger
}

// NewService creates a view service over repo. A nil logger discards
// output.
func NewService(repo Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{repo: repo, logger: logger}
}

// NewRecord builds the record Save would send: every node and edge of snap
// and a position for every placed node. An explicit entry in positions
// wins over the node's own position.
func NewRecord(name string, snap graph.Snapshot, positions graph.Positions) Record {
	rec := Record{
		Name:      strings.TrimSpace(name),
		Nodes:     snap.SortedNodes(),
		Edges:     snap.SortedEdges(),
		Positions: make(graph.Positions, snap.NodeCount()),
	}
	for _, n := range rec.Nodes {
		if p, ok := positions[n.ID]; ok {
			rec.Positions[n.ID] = p
		} else if n.Position != nil {
			rec.Positions[n.ID] = *n.Position
		}
	}
	return rec
}

// Save stores snap and positions under name and returns the new view id.
// A blank name is rejected before the repository is called.
func (s *Service) Save(ctx context.Context, name string, snap graph.Snapshot, positions graph.Positions) (string, error) {
	if err := lserrors.ValidateViewName(name); err != nil {
		return "", err
	}
	rec := NewRecord(name, snap, positions)
	if v := rec.Validate(); len(v) > 0 {
		return "", lserrors.New(lserrors.ErrCodeMalformedData, "snapshot is inconsistent: %s", v[0])
	}

	start := time.Now()
	id, err := s.repo.Create(ctx, rec)
	observability.Explorer().OnViewSave(ctx, len(rec.Nodes), time.Since(start), err)
	if err != nil {
		return "", classify(err, "save view %q", rec.Name)
	}
	s.logger.Info("view saved", "id", id, "name", rec.Name, "nodes", len(rec.Nodes), "edges", len(rec.Edges))
	return id, nil
}

// Load fetches view id and replaces the contents of store with it.
//
// Edges whose endpoints are not in the record's node list are dropped and
// listed in the report. Every restored node is locked. On any error the
// store is left exactly as it was.
func (s *Service) Load(ctx context.Context, id string, store *graph.Store) (LoadReport, error) {
	if err := lserrors.ValidateViewID(id); err != nil {
		return LoadReport{}, err
	}

	start := time.Now()
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		err = classify(err, "load view %s", id)
		observability.Explorer().OnViewLoad(ctx, 0, time.Since(start), err)
		return LoadReport{}, err
	}

	snap, report := Restore(rec)
	store.Replace(snap)
	observability.Explorer().OnViewLoad(ctx, report.Nodes, time.Since(start), nil)

	for _, v := range report.Dropped {
		s.logger.Warn("dropped view element", "view", id, "kind", v.Kind, "id", v.ID, "reason", v.Reason)
	}
	s.logger.Info("view loaded", "id", id, "name", rec.Name, "nodes", report.Nodes, "edges", report.Edges)
	report.ID = id
	return report, nil
}

// List returns the stored views.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify(err, "list views")
	}
	return list, nil
}

// Restore converts a record into a snapshot without touching any store.
// Nodes without ids and edges with endpoints outside the record are
// skipped. Positions from the record map win over positions embedded in
// the nodes; every node comes back locked.
func Restore(rec Record) (graph.Snapshot, LoadReport) {
	report := LoadReport{ID: rec.ID, Name: rec.Name}
	scratch := graph.NewStore()

	ids := make(map[string]bool, len(rec.Nodes))
	nodes := make([]graph.Node, 0, len(rec.Nodes))
	for _, n := range rec.Nodes {
		if n.ID == "" {
			continue
		}
		ids[n.ID] = true
		nodes = append(nodes, n)
	}
	for _, v := range rec.Validate() {
		if v.Kind == "edge" || (v.Kind == "node" && v.Reason == "missing id") {
			report.Dropped = append(report.Dropped, v)
		}
	}
	_, _ = scratch.UpsertNodes(nodes)

	edges := make([]graph.Edge, 0, len(rec.Edges))
	for _, e := range rec.Edges {
		if ids[e.Source] && ids[e.Target] {
			edges = append(edges, e)
		}
	}
	scratch.UpsertEdges(edges)

	for id, p := range rec.Positions {
		if !ids[id] {
			report.Dropped = append(report.Dropped, Violation{Kind: "position", ID: id, Reason: "node not in view"})
			continue
		}
		_ = scratch.MoveNode(id, p)
		report.Positioned++
	}
	scratch.LockAll()

	snap := scratch.Snapshot()
	report.Nodes = snap.NodeCount()
	report.Edges = snap.EdgeCount()
	return snap, report
}

// classify maps repository errors onto the error taxonomy.
func classify(err error, format string, args ...any) error {
	switch {
	case lserrors.GetCode(err) != "":
		return err
	case errors.Is(err, ErrNotFound):
		return lserrors.Wrap(lserrors.ErrCodePersistenceConflict, err, format, args...)
	case errors.Is(err, context.DeadlineExceeded):
		return lserrors.Wrap(lserrors.ErrCodeTimeout, err, format, args...)
	default:
		return lserrors.Wrap(lserrors.ErrCodeNetwork, err, format, args...)
	}
}
