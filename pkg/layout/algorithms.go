package layout

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/linkscope/pkg/graph"
)

// =============================================================================
// Force-directed
// =============================================================================

// Force simulation constants.
const (
	springK   = 0.005
	repulsion = 2000.0
	damping   = 0.85
	gravity   = 0.001
	minDist2  = 1.0
)

// ForceDirected is a spring/repulsion simulation. Every pair of nodes
// repels, edges act as springs of rest length 4*NodeSize, and a weak pull
// toward the center keeps disconnected parts on the canvas. Fixed nodes
// exert forces but never move.
func ForceDirected(nodes []graph.Node, edges []graph.Edge, p Params) graph.Positions {
	n := len(nodes)
	if n == 0 {
		return graph.Positions{}
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0xdeadbeef))
	index := make(map[string]int, n)
	pos := make([]graph.Position, n)
	vel := make([]graph.Position, n)
	fixed := make([]bool, n)
	center := p.Center()
	spread := math.Min(p.Width, p.Height) / 2

	for i, node := range nodes {
		index[node.ID] = i
		switch {
		case p.IsFixed(node.ID):
			pos[i] = p.Fixed[node.ID]
			fixed[i] = true
		case hasInitial(p, node.ID):
			pos[i] = p.Initial[node.ID]
		default:
			pos[i] = graph.Position{
				X: center.X + (rng.Float64()-0.5)*spread,
				Y: center.Y + (rng.Float64()-0.5)*spread,
			}
		}
	}

	springLen := 4 * p.NodeSize
	for range p.Iterations {
		for i := range pos {
			vel[i].X += (center.X - pos[i].X) * gravity
			vel[i].Y += (center.Y - pos[i].Y) * gravity
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy := pos[j].X-pos[i].X, pos[j].Y-pos[i].Y
				d2 := dx*dx + dy*dy
				if d2 < minDist2 {
					if dx == 0 && dy == 0 {
						dx = 1
					}
					d2 = minDist2
				}
				f := repulsion / d2
				fx, fy := dx*f, dy*f
				vel[i].X -= fx
				vel[i].Y -= fy
				vel[j].X += fx
				vel[j].Y += fy
			}
		}
		for _, e := range edges {
			a, okA := index[e.Source]
			b, okB := index[e.Target]
			if !okA || !okB || a == b {
				continue
			}
			dx, dy := pos[b].X-pos[a].X, pos[b].Y-pos[a].Y
			d := math.Sqrt(dx*dx + dy*dy)
			if d == 0 {
				d = 1
			}
			f := (d - springLen) * springK
			fx, fy := dx/d*f, dy/d*f
			vel[a].X += fx
			vel[a].Y += fy
			vel[b].X -= fx
			vel[b].Y -= fy
		}
		for i := range pos {
			if fixed[i] {
				vel[i] = graph.Position{}
				continue
			}
			vel[i].X *= damping
			vel[i].Y *= damping
			pos[i].X = clamp(pos[i].X+vel[i].X, p.Padding, p.Width-p.Padding)
			pos[i].Y = clamp(pos[i].Y+vel[i].Y, p.Padding, p.Height-p.Padding)
		}
	}

	out := make(graph.Positions, n)
	for i, node := range nodes {
		out[node.ID] = pos[i]
	}
	return out
}

func hasInitial(p Params, id string) bool {
	_, ok := p.Initial[id]
	return ok
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// =============================================================================
// Grid
// =============================================================================

// GridLayout places free nodes row by row in id order on a grid of
// ceil(sqrt(n)) columns spanning the padded canvas.
func GridLayout(nodes []graph.Node, _ []graph.Edge, p Params) graph.Positions {
	out := fixedCopy(p)
	free := freeNodes(nodes, p)
	if len(free) == 0 {
		return out
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(free)))))
	rows := (len(free) + cols - 1) / cols
	cellW := (p.Width - 2*p.Padding) / float64(max(cols-1, 1))
	cellH := (p.Height - 2*p.Padding) / float64(max(rows-1, 1))
	for i, id := range free {
		r, c := i/cols, i%cols
		out[id] = graph.Position{
			X: p.Padding + float64(c)*cellW,
			Y: p.Padding + float64(r)*cellH,
		}
	}
	return out
}

// =============================================================================
// Circle
// =============================================================================

// CircleLayout spaces free nodes evenly on a ring around the center,
// starting at twelve o'clock and going clockwise in id order.
func CircleLayout(nodes []graph.Node, _ []graph.Edge, p Params) graph.Positions {
	out := fixedCopy(p)
	free := freeNodes(nodes, p)
	if len(free) == 0 {
		return out
	}
	c := p.Center()
	if len(free) == 1 {
		out[free[0]] = c
		return out
	}
	ring(out, free, c, radius(p))
	return out
}

// =============================================================================
// Breadth-first
// =============================================================================

// BreadthFirstLayout arranges nodes in rows by BFS depth over the undirected
// edge set. The traversal starts at p.Root when it exists, otherwise at the
// highest-degree node. Disconnected parts follow as further levels, each
// rooted at its own highest-degree node.
func BreadthFirstLayout(nodes []graph.Node, edges []graph.Edge, p Params) graph.Positions {
	out := fixedCopy(p)
	if len(nodes) == 0 {
		return out
	}

	adj := adjacency(nodes, edges)
	order := byDegree(nodes, adj)
	if p.Root != "" {
		if _, ok := adj[p.Root]; ok {
			order = append([]string{p.Root}, slices.DeleteFunc(order, func(id string) bool { return id == p.Root })...)
		}
	}

	var levels [][]string
	visited := make(map[string]bool, len(nodes))
	for _, root := range order {
		if visited[root] {
			continue
		}
		visited[root] = true
		frontier := []string{root}
		for len(frontier) > 0 {
			levels = append(levels, frontier)
			var next []string
			for _, id := range frontier {
				for _, nb := range adj[id] {
					if !visited[nb] {
						visited[nb] = true
						next = append(next, nb)
					}
				}
			}
			slices.Sort(next)
			frontier = next
		}
	}

	rowH := (p.Height - 2*p.Padding) / float64(max(len(levels)-1, 1))
	for depth, level := range levels {
		free := slices.DeleteFunc(slices.Clone(level), p.IsFixed)
		y := p.Padding + float64(depth)*rowH
		if len(levels) == 1 {
			y = p.Height / 2
		}
		step := (p.Width - 2*p.Padding) / float64(len(free)+1)
		for i, id := range free {
			out[id] = graph.Position{X: p.Padding + float64(i+1)*step, Y: y}
		}
	}
	return out
}

// =============================================================================
// Concentric
// =============================================================================

// ConcentricLayout puts nodes on rings by degree: the highest degree sits
// innermost. A single node on the innermost ring is placed at the center.
func ConcentricLayout(nodes []graph.Node, edges []graph.Edge, p Params) graph.Positions {
	out := fixedCopy(p)
	free := freeNodes(nodes, p)
	if len(free) == 0 {
		return out
	}

	adj := adjacency(nodes, edges)
	byDeg := make(map[int][]string)
	for _, id := range free {
		d := len(adj[id])
		byDeg[d] = append(byDeg[d], id)
	}
	degrees := make([]int, 0, len(byDeg))
	for d := range byDeg {
		degrees = append(degrees, d)
	}
	slices.SortFunc(degrees, func(a, b int) int { return cmp.Compare(b, a) })

	c := p.Center()
	spacing := radius(p) / float64(max(len(degrees), 1))
	r := 0.0
	for i, d := range degrees {
		ids := byDeg[d]
		slices.Sort(ids)
		if i == 0 && len(ids) == 1 {
			out[ids[0]] = c
			continue
		}
		r += spacing
		ring(out, ids, c, r)
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

func fixedCopy(p Params) graph.Positions {
	out := make(graph.Positions, len(p.Fixed))
	for id, pos := range p.Fixed {
		out[id] = pos
	}
	return out
}

// freeNodes returns the ids of nodes that are not fixed, in input order.
func freeNodes(nodes []graph.Node, p Params) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !p.IsFixed(n.ID) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func radius(p Params) float64 {
	return math.Max(math.Min(p.Width, p.Height)/2-p.Padding, p.NodeSize)
}

func ring(out graph.Positions, ids []string, c graph.Position, r float64) {
	step := 2 * math.Pi / float64(len(ids))
	for i, id := range ids {
		a := float64(i)*step - math.Pi/2
		out[id] = graph.Position{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
}

// adjacency builds sorted undirected neighbor lists. Self-loops and edges
// to unknown nodes are ignored.
func adjacency(nodes []graph.Node, edges []graph.Edge) map[string][]string {
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		adj[n.ID] = nil
	}
	seen := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if _, ok := adj[e.Source]; !ok {
			continue
		}
		if _, ok := adj[e.Target]; !ok {
			continue
		}
		key := [2]string{min(e.Source, e.Target), max(e.Source, e.Target)}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for id := range adj {
		slices.Sort(adj[id])
	}
	return adj
}

// byDegree returns node ids ordered by degree descending, ties by id.
func byDegree(nodes []graph.Node, adj map[string][]string) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(len(adj[b]), len(adj[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}
