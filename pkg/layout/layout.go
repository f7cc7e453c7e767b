package layout

import (
	"maps"
	"math"
	"slices"
	"sync"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
)

// Algorithm names of the built-in layouts.
const (
	Force        = "force"
	Grid         = "grid"
	Circle       = "circle"
	BreadthFirst = "breadthfirst"
	Concentric   = "concentric"
)

// Default configuration values.
const (
	DefaultAlgorithm  = Force
	DefaultWidth      = 800.0
	DefaultHeight     = 600.0
	DefaultNodeSize   = 30.0
	DefaultPadding    = 30.0
	DefaultSeed       = 42
	DefaultIterations = 300
)

// NoPadding asks for a layout that reaches the canvas edges. A zero
// Config.Padding means DefaultPadding.
const NoPadding = -1.0

// Algorithm computes positions for nodes. Implementations must return the
// entries of p.Fixed unchanged and should return a position for every node.
type Algorithm func(nodes []graph.Node, edges []graph.Edge, p Params) graph.Positions

// Params is the input handed to an Algorithm.
type Params struct {
	Width      float64
	Height     float64
	NodeSize   float64
	Padding    float64
	Iterations int
	Seed       uint64
	Root       string

	// Fixed holds locked nodes that already have a position.
	Fixed graph.Positions
	// Initial holds prior positions of unlocked nodes.
	Initial graph.Positions
}

// Center returns the midpoint of the canvas.
func (p Params) Center() graph.Position {
	return graph.Position{X: p.Width / 2, Y: p.Height / 2}
}

// IsFixed reports whether id is pinned.
func (p Params) IsFixed(id string) bool {
	_, ok := p.Fixed[id]
	return ok
}

// Config selects an algorithm and its settings. Zero values select the
// defaults, so Padding 0 means DefaultPadding (use NoPadding for none) and
// Seed 0 means DefaultSeed; every other seed is used as given.
type Config struct {
	Algorithm  string  `toml:"algorithm" json:"algorithm" envconfig:"ALGORITHM"`
	NodeSize   float64 `toml:"node_size" json:"node_size" envconfig:"NODE_SIZE" validate:"gte=0"`
	Animate    bool    `toml:"animate" json:"animate" envconfig:"ANIMATE"`
	Width      float64 `toml:"width" json:"width" envconfig:"WIDTH" validate:"gte=0"`
	Height     float64 `toml:"height" json:"height" envconfig:"HEIGHT" validate:"gte=0"`
	Padding    float64 `toml:"padding" json:"padding" envconfig:"PADDING" validate:"gte=-1"`
	Seed       uint64  `toml:"seed" json:"seed" envconfig:"SEED"`
	Iterations int     `toml:"iterations" json:"iterations" envconfig:"ITERATIONS" validate:"gte=0"`
	Root       string  `toml:"root" json:"root,omitempty" envconfig:"ROOT"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Algorithm:  DefaultAlgorithm,
		NodeSize:   DefaultNodeSize,
		Animate:    true,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Padding:    DefaultPadding,
		Seed:       DefaultSeed,
		Iterations: DefaultIterations,
	}
}

// WithDefaults fills zero fields from [DefaultConfig]. A negative Padding
// is kept; it is clamped to 0 when the algorithm runs.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Algorithm == "" {
		c.Algorithm = d.Algorithm
	}
	if c.NodeSize <= 0 {
		c.NodeSize = d.NodeSize
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.Padding == 0 {
		c.Padding = d.Padding
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	return c
}

// =============================================================================
// Engine
// =============================================================================

// Engine is a registry of named algorithms.
type Engine struct {
	mu         sync.RWMutex
	algorithms map[string]Algorithm
}

// NewEngine creates an Engine with the built-in algorithms registered.
func NewEngine() *Engine {
	e := &Engine{algorithms: make(map[string]Algorithm)}
	e.algorithms[Force] = ForceDirected
	e.algorithms[Grid] = GridLayout
	e.algorithms[Circle] = CircleLayout
	e.algorithms[BreadthFirst] = BreadthFirstLayout
	e.algorithms[Concentric] = ConcentricLayout
	return e
}

// Register adds or replaces an algorithm.
func (e *Engine) Register(name string, alg Algorithm) error {
	if name == "" || alg == nil {
		return lserrors.New(lserrors.ErrCodeValidation, "layout algorithm needs a name and a function")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.algorithms[name] = alg
	return nil
}

// Algorithms returns the registered algorithm names, sorted.
func (e *Engine) Algorithms() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.algorithms))
}

// Has reports whether an algorithm is registered under name.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.algorithms[name]
	return ok
}

// Apply computes positions for every node of snap.
//
// Locked nodes with a position are passed to the algorithm as fixed and
// are returned exactly as they were. Locked nodes without a position are
// placed like any other node. Non-finite coordinates returned by the
// algorithm are replaced by the canvas center.
func (e *Engine) Apply(snap graph.Snapshot, cfg Config) (graph.Positions, error) {
	cfg = cfg.WithDefaults()
	e.mu.RLock()
	alg, ok := e.algorithms[cfg.Algorithm]
	e.mu.RUnlock()
	if !ok {
		return nil, lserrors.New(lserrors.ErrCodeValidation, "unknown layout algorithm %q", cfg.Algorithm)
	}

	nodes := snap.SortedNodes()
	p := paramsFor(nodes, cfg)
	out := alg(nodes, snap.SortedEdges(), p)
	if out == nil {
		out = make(graph.Positions, len(nodes))
	}

	center := p.Center()
	for _, n := range nodes {
		pos, ok := out[n.ID]
		if !ok || !finite(pos) {
			out[n.ID] = center
		}
	}
	for id := range out {
		if _, ok := snap.Nodes[id]; !ok {
			delete(out, id)
		}
	}
	maps.Copy(out, p.Fixed)
	return out, nil
}

// paramsFor splits node positions into fixed and initial sets.
func paramsFor(nodes []graph.Node, cfg Config) Params {
	p := Params{
		Width:      cfg.Width,
		Height:     cfg.Height,
		NodeSize:   cfg.NodeSize,
		Padding:    max(cfg.Padding, 0),
		Iterations: cfg.Iterations,
		Seed:       cfg.Seed,
		Root:       cfg.Root,
		Fixed:      graph.Positions{},
		Initial:    graph.Positions{},
	}
	for _, n := range nodes {
		if n.Position == nil {
			continue
		}
		if n.Locked {
			p.Fixed[n.ID] = *n.Position
		} else {
			p.Initial[n.ID] = *n.Position
		}
	}
	return p
}

func finite(p graph.Position) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

var defaultEngine = NewEngine()

// Apply runs cfg's algorithm on the package default engine.
func Apply(snap graph.Snapshot, cfg Config) (graph.Positions, error) {
	return defaultEngine.Apply(snap, cfg)
}

// Register adds an algorithm to the package default engine.
func Register(name string, alg Algorithm) error {
	return defaultEngine.Register(name, alg)
}

// Default returns the package default engine.
func Default() *Engine { return defaultEngine }
