package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/internal/config"
	"github.com/matzehuels/linkscope/pkg/backend"
	"github.com/matzehuels/linkscope/pkg/buildinfo"
	"github.com/matzehuels/linkscope/pkg/cache"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/explorer"
	"github.com/matzehuels/linkscope/pkg/httputil"
	"github.com/matzehuels/linkscope/pkg/relations"
	"github.com/matzehuels/linkscope/pkg/views"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "linkscope"

	httpCacheDir   = "http"
	layoutCacheDir = "layout"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Linkscope explores relationship graphs interactively",
		Long:         `Linkscope incrementally builds a node/edge graph from a relationship service, lays it out, lets you pin nodes in place and saves named views with their exact positions.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/linkscope/config.toml)")

	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.viewsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Source Factory
// =============================================================================

// sourceFlags selects where neighbors come from. Flags override the
// [backend] section of the config.
type sourceFlags struct {
	dataset string
	url     string
	refresh bool
	noCache bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "read relations from a local JSON or JSON Lines file")
	cmd.Flags().StringVar(&f.url, "url", "", "backend base URL")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached neighbor responses")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable all caching")
}

// backendSession is a neighbor source plus the repository saved views go
// to.
type backendSession struct {
	source expansion.NeighborSource
	views  views.Repository
	label  string
}

// openBackend resolves flags and config into a session. A dataset wins
// over a URL; dataset sessions keep views on the local filesystem.
func (c *CLI) openBackend(f sourceFlags) (*backendSession, error) {
	bc := c.cfg.Backend
	if f.dataset != "" {
		bc.Dataset = f.dataset
	}
	if f.url != "" {
		bc.URL = f.url
		if f.dataset == "" {
			bc.Dataset = ""
		}
	}
	noCache := f.noCache || bc.NoCache

	if bc.Dataset != "" {
		ds, err := relations.LoadFile(bc.Dataset)
		if err != nil {
			return nil, err
		}
		repo, err := views.NewFileRepository("")
		if err != nil {
			return nil, lserrors.Wrap(lserrors.ErrCodeInternal, err, "open view directory")
		}
		c.Logger.Debug("using dataset", "path", bc.Dataset, "triples", ds.Len())
		return &backendSession{source: ds, views: repo, label: bc.Dataset}, nil
	}

	if err := lserrors.ValidateURL(bc.URL); err != nil {
		return nil, err
	}
	opts := backend.Options{Refresh: f.refresh, Timeout: bc.Timeout}
	if !noCache {
		hc, err := c.httpCache(bc)
		if err != nil {
			c.Logger.Warn("neighbor cache disabled", "error", err)
		} else {
			opts.Cache = hc
		}
	}
	client, err := backend.NewClient(bc.URL, opts)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("using backend", "url", client.BaseURL(), "cached", opts.Cache != nil)
	return &backendSession{source: client, views: client, label: client.BaseURL()}, nil
}

func (c *CLI) httpCache(bc config.BackendConfig) (*httputil.Cache, error) {
	dir := bc.CacheDir
	if dir == "" {
		base, err := cacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, httpCacheDir)
	}
	return httputil.NewCache(dir, bc.CacheTTL)
}

// newLayoutCache returns the position cache, or nil when caching is off.
func newLayoutCache(noCache bool) cache.Cache {
	if noCache {
		return nil
	}
	dir, err := cacheDir()
	if err != nil {
		return nil
	}
	fc, err := cache.NewFileCache(filepath.Join(dir, layoutCacheDir))
	if err != nil {
		return nil
	}
	return fc
}

// newWorkspace builds a workspace over a session with the configured
// expansion and layout settings.
func (c *CLI) newWorkspace(s *backendSession, noCache bool) (*explorer.Workspace, error) {
	return c.workspace(s, noCache, c.Logger)
}

func (c *CLI) workspace(s *backendSession, noCache bool, logger *log.Logger) (*explorer.Workspace, error) {
	return explorer.New(explorer.Options{
		Source:      s.source,
		Views:       s.views,
		Expansion:   c.cfg.Expansion,
		Layout:      c.cfg.Layout,
		LayoutCache: newLayoutCache(noCache || c.cfg.Backend.NoCache),
		Logger:      logger,
	})
}

// growStep is told about every node grow is about to expand, with the
// current round and node count.
type growStep func(id string, round, nodes int)

// grow seeds the workspace with the first id, expands the others, then
// expands every node reached so far depth-1 more times. step may be nil.
func grow(ctx context.Context, ws *explorer.Workspace, ids []string, depth int, step growStep) error {
	expand := func(id string, round int) error {
		if step != nil {
			step(id, round, ws.Store().NodeCount())
		}
		_, err := ws.Expand(ctx, id, 0)
		return err
	}

	if step != nil {
		step(ids[0], 1, 0)
	}
	if _, err := ws.Seed(ctx, ids[0]); err != nil {
		return err
	}
	expanded := map[string]bool{ids[0]: true}
	for _, id := range ids[1:] {
		if err := expand(id, 1); err != nil {
			return err
		}
		expanded[id] = true
	}
	for round := 2; round <= depth; round++ {
		for _, id := range ws.Snapshot().NodeIDs() {
			if expanded[id] {
				continue
			}
			expanded[id] = true
			if err := expand(id, round); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/linkscope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
