// Package expansion fetches the neighbors of a seed node from a
// [NeighborSource] and merges them into the graph store.
//
// A failed fetch leaves the store untouched and returns an error coded
// NETWORK_ERROR or TIMEOUT, both of which the user may retry. By default
// each call makes a single attempt; [Options.Attempts] opts into
// exponential backoff for transient failures.
//
// Several expansions may run at once. Earlier ones are never cancelled, and
// each completion is merged atomically when it arrives, so the last
// completion wins on conflicting labels or weights.
package expansion

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/httputil"
	"github.com/matzehuels/linkscope/pkg/observability"
)

// Defaults for [Options].
const (
	DefaultLimit      = 25
	DefaultTimeout    = 15 * time.Second
	DefaultRetryDelay = 500 * time.Millisecond
)

// NeighborSource returns the relations of a node. Order is not guaranteed.
type NeighborSource interface {
	Neighbors(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error)
}

// SourceFunc adapts a function to the NeighborSource interface.
type SourceFunc func(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error)

// Neighbors calls f.
func (f SourceFunc) Neighbors(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error) {
	return f(ctx, nodeID, limit)
}

// Options controls an expansion.
type Options struct {
	// Limit is the neighbor limit sent when Expand is called with 0.
	Limit int `toml:"limit" envconfig:"LIMIT" validate:"gte=0,lte=1000"`
	// Attempts is the number of tries for retryable failures. Values
	// below 2 mean a single attempt.
	Attempts int `toml:"attempts" envconfig:"ATTEMPTS" validate:"gte=0,lte=10"`
	// Timeout bounds one Expand call, retries included. Zero uses
	// DefaultTimeout; a negative value disables the timeout.
	Timeout time.Duration `toml:"timeout" envconfig:"TIMEOUT"`
	// RetryDelay is the first backoff delay.
	RetryDelay time.Duration `toml:"retry_delay" envconfig:"RETRY_DELAY"`
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Result describes a completed expansion.
type Result struct {
	Seed     string
	Triples  []graph.RelationTriple
	Snapshot graph.Snapshot
	Report   graph.MergeReport
	Duration time.Duration
}

// Service connects a NeighborSource to a graph store.
type Service struct {
	source NeighborSource
	store  *graph.Store
	opts   Options
	logger *log.Logger
}

// NewService creates an expansion service. A nil logger discards output.
func NewService(source NeighborSource, store *graph.Store, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{source: source, store: store, opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }

// Expand fetches up to limit relations of nodeID and merges them into the
// store. A limit of 0 uses the configured default.
//
// Input is validated before any call is made. If the fetch fails the store
// is left unchanged. Skipped triples are logged as warnings and reported in
// Result.Report; they do not fail the expansion.
func (s *Service) Expand(ctx context.Context, nodeID string, limit int) (Result, error) {
	if err := lserrors.ValidateNodeID(nodeID); err != nil {
		return Result{}, err
	}
	if err := lserrors.ValidateLimit(limit); err != nil {
		return Result{}, err
	}
	if limit == 0 {
		limit = s.opts.Limit
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	hooks := observability.Explorer()
	hooks.OnExpandStart(ctx, nodeID, limit)
	start := time.Now()

	triples, err := s.fetch(ctx, nodeID, limit)
	if err != nil {
		hooks.OnExpandComplete(ctx, nodeID, 0, time.Since(start), err)
		s.logger.Warn("expansion failed", "node", nodeID, "err", err)
		return Result{}, err
	}

	snap, report := s.store.Merge(triples)
	elapsed := time.Since(start)
	hooks.OnExpandComplete(ctx, nodeID, len(triples), elapsed, nil)

	for _, w := range report.Warnings {
		s.logger.Warn("skipped triple", "node", nodeID, "index", w.Index, "reason", w.Reason)
	}
	s.logger.Debug("expanded",
		"node", nodeID,
		"triples", len(triples),
		"nodes_added", report.NodesAdded,
		"edges_added", report.EdgesAdded,
		"elapsed", elapsed,
	)
	return Result{Seed: nodeID, Triples: triples, Snapshot: snap, Report: report, Duration: elapsed}, nil
}

// ExpandNode expands nodeID with the default limit, discarding the result.
func (s *Service) ExpandNode(ctx context.Context, nodeID string) error {
	_, err := s.Expand(ctx, nodeID, 0)
	return err
}

func (s *Service) fetch(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error) {
	var triples []graph.RelationTriple
	call := func() error {
		var err error
		triples, err = s.source.Neighbors(ctx, nodeID, limit)
		if err == nil {
			return nil
		}
		err = classify(ctx, nodeID, err)
		if lserrors.Retryable(err) && s.opts.Attempts > 1 {
			s.logger.Debug("retrying neighbor fetch", "node", nodeID, "err", err)
			return &httputil.RetryableError{Err: err}
		}
		return err
	}

	if s.opts.Attempts <= 1 {
		return triples, call()
	}
	err := httputil.Retry(ctx, s.opts.Attempts, s.opts.RetryDelay, call)
	var re *httputil.RetryableError
	if errors.As(err, &re) {
		err = re.Err
	}
	if err != nil && !isCoded(err) {
		err = classify(ctx, nodeID, err)
	}
	return triples, err
}

// classify maps a source error onto the error taxonomy. Errors that
// already carry a code keep it.
func classify(ctx context.Context, nodeID string, err error) error {
	if isCoded(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return lserrors.Wrap(lserrors.ErrCodeTimeout, err, "fetch neighbors of %s timed out", nodeID)
	}
	return lserrors.Wrap(lserrors.ErrCodeNetwork, err, "fetch neighbors of %s", nodeID)
}

func isCoded(err error) bool {
	return lserrors.GetCode(err) != ""
}
