package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/linkscope/pkg/graph"
)

func sample() graph.Snapshot {
	s := graph.NewStore()
	w := 2.0
	s.Merge([]graph.RelationTriple{
		{From: &graph.Endpoint{ID: "P:alice", Name: "Alice"}, To: &graph.Endpoint{ID: "P:bob"}, Rel: "knows", Weight: &w},
		{From: &graph.Endpoint{ID: "P:bob"}, To: &graph.Endpoint{ID: "O:acme"}, Rel: "works_at"},
	})
	_ = s.MoveNode("P:alice", graph.Position{X: 100, Y: 50})
	_ = s.SetLocked("P:alice", true)
	return s.Snapshot()
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(), graph.Positions{"P:bob": {X: 10, Y: 20}}, Options{EdgeLabels: true, Selected: "P:bob"})

	wants := []string{
		`"P:alice" [label="Alice"`,
		`pos="100.00,-50.00!"`,
		`pos="10.00,-20.00"`,
		`"P:alice" -> "P:bob"`,
		`label="knows"`,
		`color="#d62728"`,
	}
	for _, w := range wants {
		if !strings.Contains(dot, w) {
			t.Errorf("DOT missing %q:\n%s", w, dot)
		}
	}
	for _, line := range strings.Split(dot, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), `"O:acme" [`) && strings.Contains(line, "pos=") {
			t.Errorf("unplaced node has a pos attribute: %s", line)
		}
	}
}

func TestToDOTVisible(t *testing.T) {
	dot := ToDOT(sample(), nil, Options{Visible: []string{"P:alice", "P:bob"}})
	if strings.Contains(dot, "O:acme") {
		t.Errorf("hidden node or its edge drawn:\n%s", dot)
	}
	if !strings.Contains(dot, `"P:alice" -> "P:bob"`) {
		t.Error("edge between visible nodes missing")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sample(), nil, Options{Detailed: true})
	if !strings.Contains(dot, `label="Alice\nP"`) {
		t.Errorf("detailed label missing type:\n%s", dot)
	}
}

func TestTypeColorStable(t *testing.T) {
	if TypeColor("P") != TypeColor("P") {
		t.Error("TypeColor not deterministic")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", SVG, false},
		{".PNG", PNG, false},
		{"gv", DOT, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	dot := ToDOT(sample(), nil, Options{})
	svg, err := Render(context.Background(), dot, SVG)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output is not SVG")
	}
}

func TestRenderDOTPassthrough(t *testing.T) {
	out, err := Render(context.Background(), "digraph G {}", DOT)
	if err != nil || string(out) != "digraph G {}" {
		t.Errorf("Render(DOT) = %q, %v", out, err)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
}
