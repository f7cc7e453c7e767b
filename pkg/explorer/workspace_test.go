package explorer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/linkscope/pkg/cache"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/layout"
	"github.com/matzehuels/linkscope/pkg/relations"
	"github.com/matzehuels/linkscope/pkg/render"
	"github.com/matzehuels/linkscope/pkg/selection"
	"github.com/matzehuels/linkscope/pkg/views"
)

const dataset = `
{"from": {"id": "P:alice", "name": "Alice"}, "to": {"id": "P:bob", "name": "Bob"}, "rel": "knows"}
{"from": {"id": "P:alice"}, "to": {"id": "O:acme", "name": "Acme"}, "rel": "works_at", "weight": 0.7}
{"from": {"id": "P:bob"}, "to": {"id": "P:carol"}, "rel": "knows"}
{"from": {"id": "P:carol"}, "to": {"id": "O:acme"}, "rel": "works_at"}
`

func newWorkspace(t *testing.T, repo views.Repository) *Workspace {
	t.Helper()
	d, err := relations.Load(strings.NewReader(dataset))
	if err != nil {
		t.Fatal(err)
	}
	w, err := New(Options{
		Source:      d,
		Views:       repo,
		LayoutCache: cache.NewMemoryCache(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{}); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("missing source: %v", err)
	}
	src := expansion.SourceFunc(func(context.Context, string, int) ([]graph.RelationTriple, error) { return nil, nil })
	if _, err := New(Options{Source: src, Layout: layout.Config{Algorithm: "spiral"}}); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("unknown algorithm: %v", err)
	}
}

func TestSeedAndExpand(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil)

	if _, err := w.Seed(ctx, "P:alice"); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if got := w.Store().NodeCount(); got != 3 {
		t.Errorf("after seed: %d nodes, want 3", got)
	}
	for id, n := range w.Snapshot().Nodes {
		if n.Position == nil {
			t.Errorf("%s not placed after seed", id)
		}
	}

	if _, err := w.Expand(ctx, "P:bob", 0); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	snap := w.Snapshot()
	if snap.NodeCount() != 4 || snap.EdgeCount() != 3 {
		t.Errorf("after expand: %d nodes, %d edges; want 4, 3", snap.NodeCount(), snap.EdgeCount())
	}
	if n, _ := snap.Node("P:carol"); n.Position == nil {
		t.Error("new node not placed")
	}
}

func TestSeedUnknownNode(t *testing.T) {
	w := newWorkspace(t, nil)
	if _, err := w.Seed(context.Background(), "nobody"); err != nil {
		t.Fatal(err)
	}
	if !w.Store().Has("nobody") || w.Store().NodeCount() != 1 {
		t.Errorf("isolated seed should be the only node, got %d", w.Store().NodeCount())
	}
}

func TestSeedFailureKeepsGraph(t *testing.T) {
	calls := 0
	src := expansion.SourceFunc(func(ctx context.Context, id string, limit int) ([]graph.RelationTriple, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("connection refused")
		}
		return []graph.RelationTriple{{From: &graph.Endpoint{ID: "a"}, To: &graph.Endpoint{ID: "b"}, Rel: "r"}}, nil
	})
	w, err := New(Options{Source: src})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := w.Seed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	_, err = w.Seed(ctx, "c")
	if !lserrors.Is(err, lserrors.ErrCodeNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
	if !w.Store().Has("a") || w.Store().NodeCount() != 2 {
		t.Error("failed seed discarded the existing graph")
	}
}

func TestRelayoutKeepsLockedNodes(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil)
	if _, err := w.Seed(ctx, "P:alice"); err != nil {
		t.Fatal(err)
	}

	if err := w.Selection().Tap("P:alice"); err != nil {
		t.Fatal(err)
	}
	locked, err := w.Selection().DoubleTap("P:alice")
	if err != nil || !locked {
		t.Fatalf("DoubleTap = %v, %v", locked, err)
	}
	before, _ := w.Store().Node("P:alice")

	for _, alg := range []string{layout.Grid, layout.Circle, layout.Force} {
		if _, err := w.SetAlgorithm(ctx, alg); err != nil {
			t.Fatalf("SetAlgorithm(%s): %v", alg, err)
		}
		after, _ := w.Store().Node("P:alice")
		if *after.Position != *before.Position {
			t.Errorf("%s moved locked node: %v -> %v", alg, *before.Position, *after.Position)
		}
	}

	if id, err := w.ExpandSelected(ctx); err != nil || id != "P:alice" {
		t.Fatalf("ExpandSelected() = %q, %v; want P:alice", id, err)
	}
	after, _ := w.Store().Node("P:alice")
	if *after.Position != *before.Position {
		t.Error("expansion moved locked node")
	}
}

func TestSetLayoutRejectsUnknown(t *testing.T) {
	w := newWorkspace(t, nil)
	before := w.LayoutConfig()
	if _, err := w.SetAlgorithm(context.Background(), "spiral"); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("error = %v", err)
	}
	if w.LayoutConfig() != before {
		t.Error("config changed after rejected algorithm")
	}
}

func TestExpandSelectedRequiresSelection(t *testing.T) {
	w := newWorkspace(t, nil)
	if _, err := w.ExpandSelected(context.Background()); !errors.Is(err, selection.ErrNoSelection) {
		t.Errorf("error = %v, want ErrNoSelection", err)
	}
}

func TestMove(t *testing.T) {
	w := newWorkspace(t, nil)
	_, _ = w.Seed(context.Background(), "P:alice")
	_ = w.Store().SetLocked("P:bob", true)

	if err := w.Move("P:bob", graph.Position{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	n, _ := w.Store().Node("P:bob")
	if *n.Position != (graph.Position{X: 1, Y: 2}) {
		t.Errorf("position = %v", *n.Position)
	}
	if err := w.Move("ghost", graph.Position{}); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("move unknown: %v", err)
	}
}

func TestSaveLoadView(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, views.NewMemoryRepository())
	_, _ = w.Seed(ctx, "P:alice")
	_, _ = w.Expand(ctx, "P:bob", 0)
	saved := w.Snapshot()

	id, err := w.SaveView(ctx, "investigation")
	if err != nil {
		t.Fatal(err)
	}

	w.Reset()
	_, _ = w.Seed(ctx, "P:carol")
	_ = w.Selection().Tap("P:carol")

	report, err := w.LoadView(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if report.Nodes != saved.NodeCount() || report.Edges != saved.EdgeCount() {
		t.Errorf("report = %+v", report)
	}

	got := w.Snapshot()
	for id, want := range saved.Nodes {
		n, ok := got.Node(id)
		if !ok {
			t.Fatalf("%s missing", id)
		}
		if *n.Position != *want.Position {
			t.Errorf("%s position = %v, want %v", id, *n.Position, *want.Position)
		}
		if !n.Locked {
			t.Errorf("%s not locked", id)
		}
	}

	list, err := w.ListViews(ctx)
	if err != nil || len(list) != 1 || list[0].Name != "investigation" {
		t.Errorf("ListViews = %v, %v", list, err)
	}
}

func TestViewsWithoutRepository(t *testing.T) {
	w := newWorkspace(t, nil)
	if w.HasViews() {
		t.Error("HasViews() = true")
	}
	if _, err := w.SaveView(context.Background(), "x"); !lserrors.Is(err, lserrors.ErrCodeUnsupported) {
		t.Errorf("SaveView error = %v", err)
	}
}

func TestFilterAndStats(t *testing.T) {
	w := newWorkspace(t, nil)
	_, _ = w.Seed(context.Background(), "P:alice")

	w.SetQuery("ACME")
	res := w.Visible()
	if len(res.VisibleNodes) != 1 || res.VisibleNodes[0] != "O:acme" {
		t.Errorf("visible = %v", res.VisibleNodes)
	}
	if len(res.Edges) != 2 {
		t.Errorf("edges = %d, want all 2", len(res.Edges))
	}

	st := w.Stats()
	if st.NodeCount != 3 || st.EdgeCount != 2 || st.ComponentCount != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestExport(t *testing.T) {
	w := newWorkspace(t, nil)
	_, _ = w.Seed(context.Background(), "P:alice")
	w.SetQuery("alice")

	dot, err := w.Export(context.Background(), render.DOT)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(dot, []byte(`"P:alice"`)) || bytes.Contains(dot, []byte(`"O:acme" [`)) {
		t.Errorf("export ignores filter:\n%s", dot)
	}
}

func TestConcurrentExpansions(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil)
	_, _ = w.Seed(ctx, "P:alice")

	var wg sync.WaitGroup
	for _, id := range []string{"P:bob", "O:acme", "P:alice", "P:bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Expand(ctx, id, 0); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := w.Store().NodeCount(); got != 4 {
		t.Errorf("nodes = %d, want 4", got)
	}
	if got := w.Store().EdgeCount(); got != 4 {
		t.Errorf("edges = %d, want 4", got)
	}
}
