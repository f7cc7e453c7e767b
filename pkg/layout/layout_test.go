package layout

import (
	"context"
	"math"
	"testing"

	"github.com/matzehuels/linkscope/pkg/cache"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
)

func newStore(triples ...[3]string) *graph.Store {
	s := graph.NewStore()
	var ts []graph.RelationTriple
	for _, t := range triples {
		ts = append(ts, graph.RelationTriple{
			From: &graph.Endpoint{ID: t[0]},
			To:   &graph.Endpoint{ID: t[2]},
			Rel:  t[1],
		})
	}
	s.Merge(ts)
	return s
}

func sample() *graph.Store {
	return newStore(
		[3]string{"P:alice", "knows", "P:bob"},
		[3]string{"P:bob", "knows", "P:carol"},
		[3]string{"P:carol", "knows", "P:alice"},
		[3]string{"P:dave", "works_at", "O:acme"},
	)
}

func TestApplyAllAlgorithms(t *testing.T) {
	e := NewEngine()
	for _, name := range e.Algorithms() {
		t.Run(name, func(t *testing.T) {
			snap := sample().Snapshot()
			cfg := DefaultConfig()
			cfg.Algorithm = name

			got, err := e.Apply(snap, cfg)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if len(got) != snap.NodeCount() {
				t.Fatalf("positions = %d, want %d", len(got), snap.NodeCount())
			}
			for id, p := range got {
				if math.IsNaN(p.X) || math.IsNaN(p.Y) {
					t.Errorf("%s has NaN position", id)
				}
				if p.X < 0 || p.X > cfg.Width || p.Y < 0 || p.Y > cfg.Height {
					t.Errorf("%s = %v outside canvas", id, p)
				}
			}
		})
	}
}

func TestApplyLockedNodeKeepsPosition(t *testing.T) {
	e := NewEngine()
	for _, name := range e.Algorithms() {
		t.Run(name, func(t *testing.T) {
			s := newStore([3]string{"P:alice", "knows", "P:bob"})
			pinned := graph.Position{X: 123.5, Y: 77.25}
			_ = s.MoveNode("P:alice", pinned)
			_ = s.SetLocked("P:alice", true)

			cfg := DefaultConfig()
			cfg.Algorithm = name
			got, err := e.Apply(s.Snapshot(), cfg)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got["P:alice"] != pinned {
				t.Errorf("P:alice = %v, want %v", got["P:alice"], pinned)
			}

			s.ApplyPositions(got)
			alice, _ := s.Node("P:alice")
			if *alice.Position != pinned {
				t.Errorf("stored P:alice = %v, want %v", *alice.Position, pinned)
			}
			bob, _ := s.Node("P:bob")
			if !bob.HasPosition() {
				t.Error("P:bob was not placed")
			}
		})
	}
}

func TestApplyMisbehavingAlgorithmCannotMoveLocked(t *testing.T) {
	e := NewEngine()
	_ = e.Register("origin", func(nodes []graph.Node, _ []graph.Edge, _ Params) graph.Positions {
		out := graph.Positions{"ghost": {X: 1, Y: 1}}
		for _, n := range nodes {
			out[n.ID] = graph.Position{X: math.NaN(), Y: 0}
		}
		return out
	})

	s := newStore([3]string{"a", "r", "b"})
	_ = s.MoveNode("a", graph.Position{X: 5, Y: 5})
	_ = s.SetLocked("a", true)

	got, err := e.Apply(s.Snapshot(), Config{Algorithm: "origin"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got["a"] != (graph.Position{X: 5, Y: 5}) {
		t.Errorf("a = %v, want pinned {5 5}", got["a"])
	}
	if got["b"] != (graph.Position{X: DefaultWidth / 2, Y: DefaultHeight / 2}) {
		t.Errorf("b = %v, want canvas center for non-finite output", got["b"])
	}
	if _, ok := got["ghost"]; ok {
		t.Error("positions for unknown nodes should be dropped")
	}
}

func TestApplyDeterministic(t *testing.T) {
	snap := sample().Snapshot()
	first, _ := Apply(snap, Config{Algorithm: Force, Seed: 7})
	second, _ := Apply(snap, Config{Algorithm: Force, Seed: 7})

	for id, p := range first {
		q := second[id]
		if math.Abs(p.X-q.X) > 1e-9 || math.Abs(p.Y-q.Y) > 1e-9 {
			t.Errorf("%s: %v != %v", id, p, q)
		}
	}
}

func TestApplyUnknownAlgorithm(t *testing.T) {
	_, err := NewEngine().Apply(sample().Snapshot(), Config{Algorithm: "spiral"})
	if !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestApplyEmptySnapshot(t *testing.T) {
	for _, name := range NewEngine().Algorithms() {
		got, err := Apply(graph.EmptySnapshot(), Config{Algorithm: name})
		if err != nil || len(got) != 0 {
			t.Errorf("%s: got %v, %v; want empty", name, got, err)
		}
	}
}

func TestRegister(t *testing.T) {
	e := NewEngine()
	if err := e.Register("", nil); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("Register(\"\", nil) = %v, want VALIDATION_ERROR", err)
	}
	called := false
	_ = e.Register("custom", func(nodes []graph.Node, _ []graph.Edge, p Params) graph.Positions {
		called = true
		return GridLayout(nodes, nil, p)
	})
	if !e.Has("custom") {
		t.Fatal("custom algorithm not registered")
	}
	if _, err := e.Apply(sample().Snapshot(), Config{Algorithm: "custom"}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("custom algorithm was not invoked")
	}
}

func TestBreadthFirstRoot(t *testing.T) {
	snap := newStore(
		[3]string{"root", "r", "a"},
		[3]string{"a", "r", "b"},
	).Snapshot()

	got := BreadthFirstLayout(snap.SortedNodes(), snap.SortedEdges(), paramsFor(snap.SortedNodes(), Config{Root: "root"}.WithDefaults()))
	if !(got["root"].Y < got["a"].Y && got["a"].Y < got["b"].Y) {
		t.Errorf("levels not ordered by depth from root: %v", got)
	}
}

func TestConcentricHubInCenter(t *testing.T) {
	snap := newStore(
		[3]string{"hub", "r", "a"},
		[3]string{"hub", "r", "b"},
		[3]string{"hub", "r", "c"},
	).Snapshot()
	cfg := DefaultConfig()
	got := ConcentricLayout(snap.SortedNodes(), snap.SortedEdges(), paramsFor(snap.SortedNodes(), cfg))
	if got["hub"] != (graph.Position{X: cfg.Width / 2, Y: cfg.Height / 2}) {
		t.Errorf("hub = %v, want center", got["hub"])
	}
}

func TestRunnerCachesLayout(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(NewEngine(), cache.NewMemoryCache(), nil, nil)
	snap := sample().Snapshot()

	first, hit, err := r.ApplyWithCacheInfo(ctx, snap, DefaultConfig())
	if err != nil || hit {
		t.Fatalf("first apply = hit %v, err %v; want miss", hit, err)
	}
	second, hit, err := r.ApplyWithCacheInfo(ctx, snap, DefaultConfig())
	if err != nil || !hit {
		t.Fatalf("second apply = hit %v, err %v; want hit", hit, err)
	}
	for id, p := range first {
		if second[id] != p {
			t.Errorf("%s: cached %v != computed %v", id, second[id], p)
		}
	}

	cfg := DefaultConfig()
	cfg.Algorithm = Circle
	if _, hit, _ := r.ApplyWithCacheInfo(ctx, snap, cfg); hit {
		t.Error("different config should miss")
	}
}

func TestRunnerUnknownAlgorithm(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if _, err := r.Apply(context.Background(), sample().Snapshot(), Config{Algorithm: "nope"}); err == nil {
		t.Error("expected error")
	}
}

func TestWithDefaults(t *testing.T) {
	tests := []struct {
		name        string
		in          Config
		wantPadding float64
		wantSeed    uint64
	}{
		{"zero selects defaults", Config{}, DefaultPadding, DefaultSeed},
		{"explicit values kept", Config{Padding: 5, Seed: 7}, 5, 7},
		{"no padding kept", Config{Padding: NoPadding}, NoPadding, DefaultSeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.WithDefaults()
			if got.Padding != tt.wantPadding || got.Seed != tt.wantSeed {
				t.Errorf("WithDefaults() padding=%v seed=%v, want %v and %v", got.Padding, got.Seed, tt.wantPadding, tt.wantSeed)
			}
			if again := got.WithDefaults(); again != got {
				t.Errorf("WithDefaults() is not idempotent: %+v then %+v", got, again)
			}
		})
	}
}

func TestApplyNoPadding(t *testing.T) {
	snap := sample().Snapshot()
	minX := func(pos graph.Positions) float64 {
		m := math.Inf(1)
		for _, p := range pos {
			m = math.Min(m, p.X)
		}
		return m
	}

	padded, err := Apply(snap, Config{Algorithm: Grid})
	if err != nil {
		t.Fatal(err)
	}
	flush, err := Apply(snap, Config{Algorithm: Grid, Padding: NoPadding})
	if err != nil {
		t.Fatal(err)
	}
	if got := minX(padded); got != DefaultPadding {
		t.Errorf("default grid starts at x=%v, want %v", got, DefaultPadding)
	}
	if got := minX(flush); got != 0 {
		t.Errorf("grid without padding starts at x=%v, want 0", got)
	}
}
