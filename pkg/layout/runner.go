package layout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkscope/pkg/cache"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/observability"
)

// Runner applies layouts with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner.
type Runner struct {
	Engine *Engine
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner around engine.
// If engine is nil, the package default engine is used.
// If c is nil, a NullCache is used (caching disabled).
// If keyer is nil, a DefaultKeyer is used.
func NewRunner(engine *Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if engine == nil {
		engine = defaultEngine
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Engine: engine, Cache: c, Keyer: keyer, Logger: logger}
}

// layoutInput is everything an algorithm sees, in hashable form.
type layoutInput struct {
	Nodes   []string        `json:"nodes"`
	Edges   []string        `json:"edges"`
	Fixed   graph.Positions `json:"fixed"`
	Initial graph.Positions `json:"initial"`
}

// ApplyWithCacheInfo computes positions for snap and reports whether they
// came from the cache.
func (r *Runner) ApplyWithCacheInfo(ctx context.Context, snap graph.Snapshot, cfg Config) (graph.Positions, bool, error) {
	cfg = cfg.WithDefaults()
	hooks := observability.Explorer()
	hooks.OnLayoutStart(ctx, cfg.Algorithm, snap.NodeCount())
	start := time.Now()

	key, keyErr := r.key(snap, cfg)
	if keyErr == nil {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached graph.Positions
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				hooks.OnLayoutComplete(ctx, cfg.Algorithm, time.Since(start), nil)
				r.Logger.Debug("layout cache hit", "algorithm", cfg.Algorithm, "nodes", len(cached))
				return cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	positions, err := r.Engine.Apply(snap, cfg)
	hooks.OnLayoutComplete(ctx, cfg.Algorithm, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	r.Logger.Debug("layout computed", "algorithm", cfg.Algorithm, "nodes", len(positions), "elapsed", time.Since(start))

	if keyErr == nil {
		if data, err := json.Marshal(positions); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
	}
	return positions, false, nil
}

// Apply is a convenience wrapper that discards the cache hit info.
func (r *Runner) Apply(ctx context.Context, snap graph.Snapshot, cfg Config) (graph.Positions, error) {
	positions, _, err := r.ApplyWithCacheInfo(ctx, snap, cfg)
	return positions, err
}

func (r *Runner) key(snap graph.Snapshot, cfg Config) (string, error) {
	in := layoutInput{Nodes: snap.NodeIDs()}
	for _, e := range snap.SortedEdges() {
		in.Edges = append(in.Edges, e.ID)
	}
	p := paramsFor(snap.SortedNodes(), cfg)
	in.Fixed, in.Initial = p.Fixed, p.Initial

	hash, err := cache.HashJSON(in)
	if err != nil {
		return "", err
	}
	return r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		Algorithm:  cfg.Algorithm,
		Width:      cfg.Width,
		Height:     cfg.Height,
		NodeSize:   cfg.NodeSize,
		Padding:    cfg.Padding,
		Seed:       cfg.Seed,
		Iterations: cfg.Iterations,
		Root:       cfg.Root,
	}), nil
}
