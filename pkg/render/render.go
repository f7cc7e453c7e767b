// Package render draws a graph snapshot with its current layout as a
// Graphviz node-link diagram.
//
// [ToDOT] emits DOT source in which every placed node carries its layout
// coordinates. Locked nodes are pinned with pos="x,y!" so the neato engine
// keeps them exactly where the analyst left them; unlocked nodes use their
// position as a starting point only. [Render] turns the DOT into SVG or PNG
// in-process through go-graphviz.
//
//	dot := render.ToDOT(snap, positions, render.Options{Selected: "P:alice"})
//	svg, err := render.Render(ctx, dot, render.SVG)
package render

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// Format is an output format supported by [Render].
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
	DOT Format = "dot"
)

// ParseFormat maps a file extension or format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "svg":
		return SVG, nil
	case "png":
		return PNG, nil
	case "dot", "gv":
		return DOT, nil
	}
	return "", fmt.Errorf("unsupported format %q (want svg, png or dot)", s)
}

// Options configures DOT generation.
type Options struct {
	// Detailed adds the node type under the label.
	Detailed bool
	// EdgeLabels prints relation labels on edges.
	EdgeLabels bool
	// Selected highlights one node.
	Selected string
	// Visible restricts drawing to these node ids. Nil draws everything.
	// Edges are drawn only when both endpoints are drawn.
	Visible []string
}

var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3",
	"#fdb462", "#b3de69", "#fccde5", "#d9d9d9", "#bc80bd",
}

// TypeColor returns the fill color used for nodes of type t.
func TypeColor(t string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t))
	return palette[h.Sum32()%uint32(len(palette))]
}

// ToDOT converts snap to DOT. positions override the nodes' own
// positions. Layout space has y growing downwards; DOT y grows upwards, so
// y is negated.
func ToDOT(snap graph.Snapshot, positions graph.Positions, opts Options) string {
	visible := map[string]bool(nil)
	if opts.Visible != nil {
		visible = make(map[string]bool, len(opts.Visible))
		for _, id := range opts.Visible {
			visible[id] = true
		}
	}
	shown := func(id string) bool { return visible == nil || visible[id] }

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontsize=9, color=\"#666666\", arrowsize=0.6];\n")
	buf.WriteString("\n")

	for _, n := range snap.SortedNodes() {
		if !shown(n.ID) {
			continue
		}
		pos, placed := positions[n.ID]
		if !placed && n.Position != nil {
			pos, placed = *n.Position, true
		}
		attrs := nodeAttrs(n, opts)
		if placed && finite(pos) {
			pin := ""
			if n.Locked {
				pin = "!"
			}
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s%s\"", fmtCoord(pos.X), fmtCoord(-pos.Y), pin))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range snap.SortedEdges() {
		if !shown(e.Source) || !shown(e.Target) {
			continue
		}
		attrs := []string{fmt.Sprintf("penwidth=%s", fmtCoord(edgeWidth(e.Weight)))}
		if opts.EdgeLabels && e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n graph.Node, opts Options) []string {
	label := n.DisplayLabel()
	if opts.Detailed && n.Type != "" {
		label += "\n" + n.Type
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", TypeColor(n.Type)),
	}
	switch {
	case n.ID == opts.Selected:
		attrs = append(attrs, "penwidth=3", "color=\"#d62728\"")
	case n.Locked:
		attrs = append(attrs, "penwidth=2", "color=\"#333333\"")
	}
	return attrs
}

func edgeWidth(w float64) float64 {
	if w <= 0 || math.IsNaN(w) {
		return 1
	}
	return min(1+math.Log1p(w), 5)
}

func finite(p graph.Position) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Render renders DOT source in the given format. DOT is returned as-is.
func Render(ctx context.Context, dot string, format Format) ([]byte, error) {
	if format == DOT {
		return []byte(dot), nil
	}
	var gvFormat graphviz.Format
	switch format {
	case SVG:
		gvFormat = graphviz.SVG
	case PNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if format == SVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's fixed pt sizes with a scalable root
// element.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
