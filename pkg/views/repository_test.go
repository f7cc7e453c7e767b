package views

import (
	"context"
	"errors"
	"testing"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// testRepository runs the behavior every Repository must share.
func testRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List on empty repository: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("empty repository lists %d views", len(list))
	}

	rec := Record{
		Name:      "first",
		Nodes:     []graph.Node{{ID: "a", Label: "A", Type: "P"}, {ID: "b", Label: "B", Type: "P", Locked: true}},
		Edges:     []graph.Edge{{ID: "a-r-b", Source: "a", Target: "b", Label: "r", Weight: 2}},
		Positions: graph.Positions{"a": {X: 1.5, Y: -2}, "b": {X: 3, Y: 4}},
	}
	id1, err := repo.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id2, err := repo.Create(ctx, Record{Name: "second"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Fatalf("ids = %q, %q; want distinct non-empty", id1, id2)
	}

	got, err := repo.Get(ctx, id1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id1 || got.Name != "first" {
		t.Errorf("got %q/%q, want %q/first", got.ID, got.Name, id1)
	}
	if len(got.Nodes) != 2 || len(got.Edges) != 1 {
		t.Errorf("got %d nodes, %d edges; want 2, 1", len(got.Nodes), len(got.Edges))
	}
	if got.Positions["a"] != (graph.Position{X: 1.5, Y: -2}) {
		t.Errorf("position a = %v", got.Positions["a"])
	}
	if got.Edges[0].Weight != 2 {
		t.Errorf("weight = %v, want 2", got.Edges[0].Weight)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	list, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List returned %d views, want 2", len(list))
	}
	names := map[string]string{}
	for _, s := range list {
		names[s.ID] = s.Name
	}
	if names[id1] != "first" || names[id2] != "second" {
		t.Errorf("list = %v", list)
	}

	if _, err := repo.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown id error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryCopies(t *testing.T) {
	repo := NewMemoryRepository()
	rec := Record{Name: "v", Nodes: []graph.Node{{ID: "a"}}, Positions: graph.Positions{"a": {X: 1}}}
	id, _ := repo.Create(context.Background(), rec)
	rec.Nodes[0].ID = "mutated"
	rec.Positions["a"] = graph.Position{X: 99}

	got, _ := repo.Get(context.Background(), id)
	if got.Nodes[0].ID != "a" || got.Positions["a"].X != 1 {
		t.Errorf("stored record shares memory with caller: %+v", got)
	}
}

func TestFileRepository(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testRepository(t, repo)
}

func TestFileRepositoryRejectsTraversal(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(context.Background(), "../etc/passwd"); err == nil {
		t.Error("expected error for path traversal id")
	}
}

func TestBadgerRepository(t *testing.T) {
	repo, err := OpenBadgerRepository("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	testRepository(t, repo)
}
