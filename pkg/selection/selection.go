// Package selection implements the interaction state machine of the
// explorer.
//
// The controller has two states, [Idle] and [NodeSelected]. The locked flag
// is orthogonal to the selection and lives on the node in the graph store:
//
//	Idle         --Tap(n)-------> NodeSelected(n)
//	NodeSelected --Tap(m)-------> NodeSelected(m)
//	NodeSelected --TapCanvas()--> Idle
//	any          --DoubleTap(n)-> NodeSelected(n), n.locked toggled
//
// [Controller.Expand] is only valid while a node is selected. It never
// changes the selection. Selection is ephemeral and is never persisted.
package selection

import (
	"context"
	"errors"
	"sync"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
)

// State is the selection state.
type State int

const (
	Idle State = iota
	NodeSelected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case NodeSelected:
		return "node-selected"
	default:
		return "unknown"
	}
}

// ErrNoSelection is returned by Expand when no node is selected.
var ErrNoSelection = lserrors.New(lserrors.ErrCodeValidation, "no node selected")

// Expander fetches the neighbors of a node into the graph.
type Expander interface {
	ExpandNode(ctx context.Context, nodeID string) error
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(ctx context.Context, nodeID string) error

// ExpandNode calls f.
func (f ExpanderFunc) ExpandNode(ctx context.Context, nodeID string) error { return f(ctx, nodeID) }

// Controller tracks the selected node and forwards lock and expand intents.
// It is safe for concurrent use; Expand does not hold the controller lock
// while the expander runs.
type Controller struct {
	mu       sync.Mutex
	store    *graph.Store
	expander Expander
	state    State
	selected string
}

// NewController creates an idle controller. expander may be nil, in which
// case Expand only validates the selection.
func NewController(store *graph.Store, expander Expander) *Controller {
	return &Controller{store: store, expander: expander}
}

// Tap selects a node. Tapping an unknown node is a validation error and
// leaves the state unchanged.
func (c *Controller) Tap(nodeID string) error {
	if !c.store.Has(nodeID) {
		return lserrors.New(lserrors.ErrCodeValidation, "unknown node %q", nodeID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = NodeSelected
	c.selected = nodeID
	return nil
}

// TapCanvas clears the selection.
func (c *Controller) TapCanvas() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	c.selected = ""
}

// DoubleTap selects a node and toggles its locked flag. It returns the new
// locked value.
func (c *Controller) DoubleTap(nodeID string) (bool, error) {
	if err := c.Tap(nodeID); err != nil {
		return false, err
	}
	locked, err := c.store.ToggleLocked(nodeID)
	if errors.Is(err, graph.ErrUnknownNode) {
		return false, lserrors.Wrap(lserrors.ErrCodeValidation, err, "toggle lock of %q", nodeID)
	}
	return locked, err
}

// Expand asks the expander for the neighbors of the selected node and
// returns the id it expanded. The selection is read once, so a Tap that
// lands while the expansion runs does not change which node is reported.
// It returns ErrNoSelection in the Idle state.
func (c *Controller) Expand(ctx context.Context) (string, error) {
	c.mu.Lock()
	state, id := c.state, c.selected
	c.mu.Unlock()

	if state != NodeSelected {
		return "", ErrNoSelection
	}
	if c.expander == nil {
		return id, nil
	}
	return id, c.expander.ExpandNode(ctx, id)
}

// Selected returns the selected node id.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.state == NodeSelected
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sync returns to Idle if the selected node is no longer in the store, as
// happens after a reset or a view load.
func (c *Controller) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == NodeSelected && !c.store.Has(c.selected) {
		c.state = Idle
		c.selected = ""
	}
}
