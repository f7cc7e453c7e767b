// Package explorer wires the graph engine into one [Workspace]:
//
//	select -> expand -> merge -> layout -> render
//
// A Workspace owns a graph store and connects it to a neighbor source, a
// layout runner, a selection controller, the filter overlay and, when a
// repository is configured, view persistence. Every mutating operation
// that changes the graph's structure triggers a relayout. Locked nodes
// keep their positions through every relayout.
//
// A Workspace is safe for concurrent use. Expansions may overlap; each one
// merges and relayouts when it completes.
package explorer

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkscope/pkg/cache"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/layout"
	"github.com/matzehuels/linkscope/pkg/overlay"
	"github.com/matzehuels/linkscope/pkg/render"
	"github.com/matzehuels/linkscope/pkg/selection"
	"github.com/matzehuels/linkscope/pkg/views"
)

// ErrNoRepository is returned by view operations when the workspace was
// created without a repository.
var ErrNoRepository = lserrors.New(lserrors.ErrCodeUnsupported, "view persistence is not configured")

// Options configures a Workspace.
type Options struct {
	// Source answers neighbor queries. Required.
	Source expansion.NeighborSource
	// Views stores saved views. Optional.
	Views views.Repository
	// Expansion tunes neighbor fetching.
	Expansion expansion.Options
	// Layout is the initial layout configuration.
	Layout layout.Config
	// Engine holds the layout algorithms. Nil uses the default engine.
	Engine *layout.Engine
	// LayoutCache caches computed positions. Nil disables caching.
	LayoutCache cache.Cache
	// Logger receives progress and warnings. Nil discards output.
	Logger *log.Logger
}

// Workspace is one exploration session.
type Workspace struct {
	store     *graph.Store
	source    expansion.NeighborSource
	selection *selection.Controller
	expander  *expansion.Service
	runner    *layout.Runner
	views     *views.Service
	logger    *log.Logger

	mu        sync.Mutex
	layoutCfg layout.Config
	query     string

	layoutMu sync.Mutex
}

// New creates an empty workspace.
func New(opts Options) (*Workspace, error) {
	if opts.Source == nil {
		return nil, lserrors.New(lserrors.ErrCodeValidation, "a neighbor source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	engine := opts.Engine
	if engine == nil {
		engine = layout.Default()
	}
	cfg := opts.Layout.WithDefaults()
	if !engine.Has(cfg.Algorithm) {
		return nil, lserrors.New(lserrors.ErrCodeValidation, "unknown layout algorithm %q", cfg.Algorithm)
	}

	w := &Workspace{
		store:     graph.NewStore(),
		source:    opts.Source,
		runner:    layout.NewRunner(engine, opts.LayoutCache, nil, logger),
		logger:    logger,
		layoutCfg: cfg,
	}
	w.expander = expansion.NewService(opts.Source, w.store, opts.Expansion, logger)
	w.selection = selection.NewController(w.store, selection.ExpanderFunc(w.expandNode))
	if opts.Views != nil {
		w.views = views.NewService(opts.Views, logger)
	}
	return w, nil
}

// Store returns the underlying graph store.
func (w *Workspace) Store() *graph.Store { return w.store }

// Selection returns the selection controller.
func (w *Workspace) Selection() *selection.Controller { return w.selection }

// Snapshot returns a copy of the current graph.
func (w *Workspace) Snapshot() graph.Snapshot { return w.store.Snapshot() }

// =============================================================================
// Expansion
// =============================================================================

// Seed clears the workspace and expands nodeID as the new root. The old
// graph is only discarded once the fetch succeeds.
func (w *Workspace) Seed(ctx context.Context, nodeID string) (expansion.Result, error) {
	if err := lserrors.ValidateNodeID(nodeID); err != nil {
		return expansion.Result{}, err
	}
	scratch := graph.NewStore()
	svc := expansion.NewService(w.source, scratch, w.expander.Options(), w.logger)
	res, err := svc.Expand(ctx, nodeID, 0)
	if err != nil {
		return res, err
	}
	if scratch.NodeCount() == 0 {
		// A seed with no relations still becomes a node on the canvas.
		_, _ = scratch.UpsertNodes([]graph.Node{{ID: nodeID, Label: nodeID, Type: graph.InferType(nodeID)}})
	}
	w.store.Replace(scratch.Snapshot())
	w.selection.Sync()
	if _, err := w.Relayout(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Expand fetches the neighbors of nodeID, merges them and relayouts.
// limit 0 uses the configured default.
func (w *Workspace) Expand(ctx context.Context, nodeID string, limit int) (expansion.Result, error) {
	res, err := w.expander.Expand(ctx, nodeID, limit)
	if err != nil {
		return res, err
	}
	if res.Report.Changed() {
		if _, err := w.Relayout(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (w *Workspace) expandNode(ctx context.Context, nodeID string) error {
	_, err := w.Expand(ctx, nodeID, 0)
	return err
}

// ExpandSelected expands the selected node and returns its id. It fails
// with a validation error when nothing is selected.
func (w *Workspace) ExpandSelected(ctx context.Context) (string, error) {
	return w.selection.Expand(ctx)
}

// =============================================================================
// Layout
// =============================================================================

// Relayout computes positions for the current graph and applies them.
// Locked nodes that already have a position are not moved.
func (w *Workspace) Relayout(ctx context.Context) (graph.Positions, error) {
	w.layoutMu.Lock()
	defer w.layoutMu.Unlock()

	cfg := w.LayoutConfig()
	positions, err := w.runner.Apply(ctx, w.store.Snapshot(), cfg)
	if err != nil {
		return nil, err
	}
	w.store.ApplyPositions(positions)
	return w.store.Positions(), nil
}

// LayoutConfig returns the active layout configuration.
func (w *Workspace) LayoutConfig() layout.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layoutCfg
}

// SetLayout switches the layout configuration and relayouts. An unknown
// algorithm is rejected and the previous configuration stays active.
func (w *Workspace) SetLayout(ctx context.Context, cfg layout.Config) (graph.Positions, error) {
	cfg = cfg.WithDefaults()
	if !w.runner.Engine.Has(cfg.Algorithm) {
		return nil, lserrors.New(lserrors.ErrCodeValidation, "unknown layout algorithm %q", cfg.Algorithm)
	}
	w.mu.Lock()
	w.layoutCfg = cfg
	w.mu.Unlock()
	return w.Relayout(ctx)
}

// SetAlgorithm switches the layout algorithm and keeps every other
// setting.
func (w *Workspace) SetAlgorithm(ctx context.Context, name string) (graph.Positions, error) {
	cfg := w.LayoutConfig()
	cfg.Algorithm = name
	return w.SetLayout(ctx, cfg)
}

// Algorithms lists the available layout algorithms.
func (w *Workspace) Algorithms() []string { return w.runner.Engine.Algorithms() }

// Move places a node by hand, as a drag would. Locked nodes move too.
func (w *Workspace) Move(id string, pos graph.Position) error {
	if err := w.store.MoveNode(id, pos); err != nil {
		return lserrors.Wrap(lserrors.ErrCodeValidation, err, "move %q", id)
	}
	return nil
}

// =============================================================================
// Overlay
// =============================================================================

// SetQuery sets the filter query used by Visible.
func (w *Workspace) SetQuery(q string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.query = q
}

// Query returns the active filter query.
func (w *Workspace) Query() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.query
}

// Visible applies the active filter to the current graph.
func (w *Workspace) Visible() overlay.Result {
	return overlay.Filter(w.store.Snapshot(), w.Query())
}

// Stats summarizes the current graph.
func (w *Workspace) Stats() overlay.Stats {
	return overlay.ComputeStats(w.store.Snapshot())
}

// Export renders the current graph. Only nodes passing the active filter
// are drawn.
func (w *Workspace) Export(ctx context.Context, format render.Format) ([]byte, error) {
	snap := w.store.Snapshot()
	opts := render.Options{EdgeLabels: true}
	if id, ok := w.selection.Selected(); ok {
		opts.Selected = id
	}
	if q := w.Query(); q != "" {
		opts.Visible = overlay.Filter(snap, q).VisibleNodes
	}
	return render.Render(ctx, render.ToDOT(snap, snap.Positions(), opts), format)
}

// =============================================================================
// Views
// =============================================================================

// SaveView stores the whole graph and its positions under name.
func (w *Workspace) SaveView(ctx context.Context, name string) (string, error) {
	if w.views == nil {
		return "", ErrNoRepository
	}
	return w.views.Save(ctx, name, w.store.Snapshot(), w.store.Positions())
}

// LoadView replaces the graph with a saved view. All restored nodes are
// locked. On failure the graph is unchanged.
func (w *Workspace) LoadView(ctx context.Context, id string) (views.LoadReport, error) {
	if w.views == nil {
		return views.LoadReport{}, ErrNoRepository
	}
	report, err := w.views.Load(ctx, id, w.store)
	if err != nil {
		return report, err
	}
	w.selection.Sync()
	if report.Positioned < report.Nodes {
		if _, err := w.Relayout(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// ListViews returns the saved views.
func (w *Workspace) ListViews(ctx context.Context) ([]views.Summary, error) {
	if w.views == nil {
		return nil, ErrNoRepository
	}
	return w.views.List(ctx)
}

// HasViews reports whether view persistence is configured.
func (w *Workspace) HasViews() bool { return w.views != nil }

// Reset clears the graph and the selection.
func (w *Workspace) Reset() {
	w.store.Reset()
	w.selection.Sync()
}
